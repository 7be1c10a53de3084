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
	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/store"
)

// Fact is one normalized fertility analysis row
type Fact struct {
	ID               int64   `json:"id"`
	BatchID          int64   `json:"batch_id"`
	AnalysisDate     string  `json:"analysis_date"`
	SampleSize       int64   `json:"sample_size"`
	FertileEggs      int64   `json:"fertile_eggs"`
	InfertileEggs    int64   `json:"infertile_eggs"`
	FertilityPercent float64 `json:"fertility_percent"`
	HatchPercent     float64 `json:"hatch_percent"`
	HOFPercent       float64 `json:"hof_percent"`
	HOIPercent       float64 `json:"hoi_percent"`
}

// NormalizeFact converts a fertility_analyses row. A stored percentage is used
// when it is a valid percentage; otherwise it is derived from the counts, and a
// metric with neither contributes 0.
func NormalizeFact(r store.Row) Fact {
	sample := r.FloatOr("sample_size", 0)
	fertile := r.FloatOr("fertile_eggs", 0)
	hatched := r.FloatOr("chicks_hatched", 0)
	injected := r.FloatOr("eggs_injected", 0)

	return Fact{
		ID:               r.Int64("id"),
		BatchID:          r.Int64("batch_id"),
		AnalysisDate:     r.DateString("analysis_date"),
		SampleSize:       int64(sample),
		FertileEggs:      int64(fertile),
		InfertileEggs:    r.Int64("infertile_eggs"),
		FertilityPercent: storedOr(r, "fertility_percent", formula.Fertility(fertile, sample)),
		HatchPercent:     storedOr(r, "hatch_percent", formula.Hatch(hatched, sample)),
		HOFPercent:       storedOr(r, "hof_percent", formula.HatchOfFertile(hatched, fertile)),
		HOIPercent:       storedOr(r, "hoi_percent", formula.HatchOfInjection(hatched, injected)),
	}
}

func storedOr(r store.Row, column string, derived float64) float64 {
	if v, ok := r.Float(column); ok && formula.InRange(v) {
		return v
	}
	return derived
}
