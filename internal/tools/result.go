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

package tools

import (
	"encoding/json"

	"github.com/your-org/hatchery-assistant/internal/retrieval"
)

// Kind identifies the normalized shape of a payload
type Kind string

const (
	KindBatchOverview  Kind = "batch_overview"
	KindBatchLookup    Kind = "batch_lookup"
	KindFertility      Kind = "fertility_report"
	KindMachineStatus  Kind = "machine_status"
	KindAlerts         Kind = "alerts"
	KindRecentActivity Kind = "recent_activity"
)

// Payload is a tool's normalized result
type Payload interface {
	Kind() Kind
	RowCount() int
}

// Invocation is one model-requested tool call
type Invocation struct {
	CallID    string `json:"call_id"`
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
}

// Result is the outcome of one invocation, matched to it by CallID
type Result struct {
	CallID     string                 `json:"call_id"`
	Tool       string                 `json:"tool"`
	OK         bool                   `json:"ok"`
	Payload    Payload                `json:"payload,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// ModelContent renders the result as the tool message sent back to the model.
// Failures use the {error, tool, parameters} shape.
func (r Result) ModelContent() string {
	var body interface{}
	if r.OK {
		body = r.Payload
	} else {
		params := r.Parameters
		if params == nil {
			params = map[string]interface{}{}
		}
		body = map[string]interface{}{
			"error":      r.Error,
			"tool":       r.Tool,
			"parameters": params,
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return `{"error":"failed to encode tool result","tool":"` + r.Tool + `"}`
	}
	return string(b)
}

// BatchRow is a denormalized batch
type BatchRow struct {
	ID                int64   `json:"id"`
	BatchNumber       string  `json:"batch_number"`
	Status            string  `json:"status"`
	SetDate           string  `json:"set_date,omitempty"`
	ExpectedHatchDate string  `json:"expected_hatch_date,omitempty"`
	TotalEggsSet      int64   `json:"total_eggs_set"`
	EggsInjected      int64   `json:"eggs_injected"`
	ChicksHatched     int64   `json:"chicks_hatched"`
	HatchRate         float64 `json:"hatch_rate"`
	MachineID         int64   `json:"machine_id,omitempty"`
}

// BatchAnalytics is computed over every batch matching the filter, not only
// the listed prefix
type BatchAnalytics struct {
	TotalBatches       int            `json:"total_batches"`
	StatusCounts       map[string]int `json:"status_counts"`
	TotalEggsSet       int64          `json:"total_eggs_set"`
	TotalChicksHatched int64          `json:"total_chicks_hatched"`
	AverageHatchRate   float64        `json:"average_hatch_rate"`
	UpcomingCount      int            `json:"upcoming_count"`
	OverdueCount       int            `json:"overdue_count"`
}

// DateRange records the window a listing was filtered by
type DateRange struct {
	Field   string `json:"field"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Display string `json:"display"`
}

// BatchOverview is the payload of the batch listing tools
type BatchOverview struct {
	Status    string         `json:"status,omitempty"`
	Range     *DateRange     `json:"range,omitempty"`
	Batches   []BatchRow     `json:"batches"`
	Analytics BatchAnalytics `json:"analytics"`
}

func (BatchOverview) Kind() Kind { return KindBatchOverview }
func (p BatchOverview) RowCount() int { return len(p.Batches) }

// BatchLookup is the payload of find_batch. Found is false when nothing matched.
// DaysRemaining is negative for an overdue batch.
type BatchLookup struct {
	Query         string    `json:"query"`
	Found         bool      `json:"found"`
	Batch         *BatchRow `json:"batch,omitempty"`
	DaysRemaining int       `json:"days_remaining"`
	Overdue       bool      `json:"overdue"`
	HatchRate     float64   `json:"hatch_rate"`
	Alternatives  []string  `json:"alternatives,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func (BatchLookup) Kind() Kind { return KindBatchLookup }

func (p BatchLookup) RowCount() int {
	if p.Found {
		return 1
	}
	return 0
}

// FertilityRow is a fertility fact labelled with its batch number
type FertilityRow struct {
	retrieval.Fact
	BatchNumber string `json:"batch_number"`
}

// FertilitySummary averages the facts or groups in a report
type FertilitySummary struct {
	Count            int     `json:"count"`
	AverageFertility float64 `json:"average_fertility"`
	AverageHatch     float64 `json:"average_hatch"`
	AverageHOF       float64 `json:"average_hof"`
	AverageHOI       float64 `json:"average_hoi"`
}

// FertilityReport holds either raw facts or a validated aggregation
type FertilityReport struct {
	GroupBy     string                 `json:"group_by,omitempty"`
	Rows        []FertilityRow         `json:"rows,omitempty"`
	Aggregation *retrieval.Aggregation `json:"aggregation,omitempty"`
	Summary     FertilitySummary       `json:"summary"`
}

func (FertilityReport) Kind() Kind { return KindFertility }

func (p FertilityReport) RowCount() int {
	if p.Aggregation != nil {
		return len(p.Aggregation.Rows)
	}
	return len(p.Rows)
}

// MachineRow is a machine with its current load
type MachineRow struct {
	ID            int64   `json:"id"`
	MachineNumber string  `json:"machine_number"`
	MachineType   string  `json:"machine_type"`
	Status        string  `json:"status"`
	Location      string  `json:"location,omitempty"`
	Capacity      int64   `json:"capacity"`
	ActiveBatches int     `json:"active_batches"`
	Utilization   float64 `json:"utilization"`
}

// MachineSummary counts machines by status
type MachineSummary struct {
	Total              int     `json:"total"`
	Operational        int     `json:"operational"`
	Maintenance        int     `json:"maintenance"`
	Offline            int     `json:"offline"`
	AverageUtilization float64 `json:"average_utilization"`
}

// MachineStatus is the payload of get_machine_status
type MachineStatus struct {
	Machines []MachineRow   `json:"machines"`
	Summary  MachineSummary `json:"summary"`
}

func (MachineStatus) Kind() Kind { return KindMachineStatus }
func (p MachineStatus) RowCount() int { return len(p.Machines) }

// AlertRow is one alert
type AlertRow struct {
	ID        int64  `json:"id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	BatchID   int64  `json:"batch_id,omitempty"`
	MachineID int64  `json:"machine_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// AlertList is the payload of get_alerts
type AlertList struct {
	Status         string         `json:"status"`
	Alerts         []AlertRow     `json:"alerts"`
	SeverityCounts map[string]int `json:"severity_counts"`
}

func (AlertList) Kind() Kind { return KindAlerts }
func (p AlertList) RowCount() int { return len(p.Alerts) }

// ActivityDigest is the payload of get_recent_activity
type ActivityDigest struct {
	DaysBack     int            `json:"days_back"`
	Since        string         `json:"since"`
	Batches      []BatchRow     `json:"batches"`
	Analyses     []FertilityRow `json:"analyses"`
	ActiveAlerts []AlertRow     `json:"active_alerts"`
}

func (ActivityDigest) Kind() Kind { return KindRecentActivity }

func (p ActivityDigest) RowCount() int {
	return len(p.Batches) + len(p.Analyses) + len(p.ActiveAlerts)
}
