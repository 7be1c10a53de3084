// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retrieval

import (
	"strings"

	"github.com/your-org/hatchery-assistant/internal/formula"
)

// Reason names a violated aggregation invariant
type Reason string

const (
	// ReasonEmpty means no aggregated rows were produced
	ReasonEmpty Reason = "empty_result"
	// ReasonInsufficientGroups means fewer resolved labels than required
	ReasonInsufficientGroups Reason = "insufficient_groups"
	// ReasonUnresolvedLabels means unknown labels cover more fact rows than allowed
	ReasonUnresolvedLabels Reason = "unresolved_labels_dominate"
	// ReasonMetricOutOfRange means a percentage fell outside [0,100]
	ReasonMetricOutOfRange Reason = "metric_out_of_range"
)

// Verdict is the outcome of validating an aggregated row set
type Verdict struct {
	Passed  bool     `json:"passed"`
	Reasons []Reason `json:"reasons,omitempty"`
}

// Has reports whether the verdict lists the given reason
func (v Verdict) Has(reason Reason) bool {
	for _, r := range v.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Rules are the thresholds applied by Validate
type Rules struct {
	MinGroups          int
	MaxUnknownFraction float64
}

// Validate checks rows against the aggregation invariants, in a fixed order
func Validate(rows []Row, unknownFraction float64, rules Rules) Verdict {
	var reasons []Reason

	if len(rows) == 0 {
		reasons = append(reasons, ReasonEmpty)
	}

	resolved := 0
	for _, r := range rows {
		if isResolved(r.Label) {
			resolved++
		}
	}
	minGroups := rules.MinGroups
	if minGroups < 1 {
		minGroups = 1
	}
	if resolved < minGroups {
		reasons = append(reasons, ReasonInsufficientGroups)
	}

	if rules.MaxUnknownFraction > 0 && unknownFraction > rules.MaxUnknownFraction {
		reasons = append(reasons, ReasonUnresolvedLabels)
	}

	for _, r := range rows {
		if !formula.InRange(r.FertilityPercent) || !formula.InRange(r.HatchPercent) ||
			!formula.InRange(r.HOFPercent) || !formula.InRange(r.HOIPercent) {
			reasons = append(reasons, ReasonMetricOutOfRange)
			break
		}
	}

	return Verdict{Passed: len(reasons) == 0, Reasons: reasons}
}

func isResolved(label string) bool {
	l := strings.TrimSpace(label)
	return l != "" && l != UnknownHouse && l != UnknownUnit && l != UnknownBatch
}
