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

package charts

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/hatchery-assistant/internal/tools"
)

// ErrNotChartable is returned for payloads with no chart representation
var ErrNotChartable = errors.New("payload cannot be charted")

// Request selects what to synthesize from one tool result
type Request struct {
	// Explicit overrides every family heuristic with a single chart
	Explicit ChartType
	// Requested lists families whose keywords appeared in the message
	Requested []ChartType
	Result    tools.Result
	Now       time.Time
}

// Chartable reports whether a result carries data Synthesize can chart
func Chartable(r tools.Result) bool {
	if !r.OK || r.Payload == nil || r.Payload.RowCount() == 0 {
		return false
	}
	switch p := r.Payload.(type) {
	case tools.ActivityDigest:
		return len(p.Batches) > 0
	case tools.BatchOverview, tools.BatchLookup,
		tools.FertilityReport, tools.MachineStatus, tools.AlertList:
		return true
	}
	return false
}

// Synthesize builds an analytics envelope from a tool result
func Synthesize(req Request) (*Envelope, error) {
	if !Chartable(req.Result) {
		return nil, fmt.Errorf("%w: %s", ErrNotChartable, req.Result.Tool)
	}
	if req.Now.IsZero() {
		req.Now = time.Now()
	}

	var env *Envelope
	switch p := req.Result.Payload.(type) {
	case tools.BatchOverview:
		env = batchEnvelope(p.Batches, p.Analytics, req)
	case tools.ActivityDigest:
		env = batchEnvelope(p.Batches, tools.AnalyzeBatches(p.Batches, req.Now), req)
		env.Title = fmt.Sprintf("Recent Activity (last %d days)", p.DaysBack)
		env.Metrics = append(env.Metrics,
			MetricCard{Label: "Fertility analyses", Value: fmt.Sprint(len(p.Analyses))},
			MetricCard{Label: "Active alerts", Value: fmt.Sprint(len(p.ActiveAlerts))},
		)
	case tools.BatchLookup:
		one := []tools.BatchRow{*p.Batch}
		env = batchEnvelope(one, tools.AnalyzeBatches(one, req.Now), req)
		env.Title = "Batch " + p.Batch.BatchNumber
	case tools.FertilityReport:
		env = fertilityEnvelope(p, req)
	case tools.MachineStatus:
		env = machineEnvelope(p, req)
	case tools.AlertList:
		env = alertEnvelope(p, req)
	}
	if len(env.Charts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotChartable, req.Result.Tool)
	}
	env.Actions = StandardActions()
	return env, nil
}

// FirstChartable returns the first result Synthesize can chart
func FirstChartable(results []tools.Result) (tools.Result, bool) {
	for _, r := range results {
		if Chartable(r) {
			return r, true
		}
	}
	return tools.Result{}, false
}

func requested(req Request, t ChartType) bool {
	for _, r := range req.Requested {
		if r == t {
			return true
		}
	}
	return false
}

// families resolves which families to draw given a default set
func families(req Request, defaults ...ChartType) []ChartType {
	if req.Explicit != "" {
		return []ChartType{req.Explicit}
	}
	return defaults
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
