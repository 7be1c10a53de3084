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
	"github.com/your-org/hatchery-assistant/internal/tools"
)

// Column is a table column
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Table is a CSV-able overview of a tool result
type Table struct {
	Type      string                   `json:"type"`
	Tool      string                   `json:"tool"`
	Title     string                   `json:"title"`
	Columns   []Column                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	Analytics interface{}              `json:"analytics,omitempty"`
}

// TableType marks a tabular payload
const TableType = "table"

// Tabulate builds a table from the first result that has rows
func Tabulate(results []tools.Result) (*Table, bool) {
	for _, r := range results {
		if !r.OK || r.Payload == nil || r.Payload.RowCount() == 0 {
			continue
		}
		if t := tabulate(r); t != nil {
			return t, true
		}
	}
	return nil, false
}

func tabulate(r tools.Result) *Table {
	t := &Table{Type: TableType, Tool: r.Tool}
	switch p := r.Payload.(type) {
	case tools.BatchOverview:
		t.Title = "Batches"
		t.Columns = batchColumns
		t.Rows = batchRows(p.Batches)
		t.Analytics = p.Analytics
	case tools.ActivityDigest:
		if len(p.Batches) == 0 {
			return nil
		}
		t.Title = "Recent batches"
		t.Columns = batchColumns
		t.Rows = batchRows(p.Batches)
	case tools.FertilityReport:
		t.Title = "Fertility"
		t.Columns = []Column{
			{"label", "Group"}, {"fertility", "Fertility %"}, {"hatch", "Hatch %"},
			{"hof", "HOF %"}, {"hoi", "HOI %"}, {"samples", "Samples"},
		}
		for _, pt := range fertilityPoints(p) {
			t.Rows = append(t.Rows, map[string]interface{}{
				"label": pt.label, "fertility": pt.fertility, "hatch": pt.hatch,
				"hof": pt.hof, "hoi": pt.hoi, "samples": pt.samples,
			})
		}
		t.Analytics = p.Summary
	case tools.MachineStatus:
		t.Title = "Machines"
		t.Columns = []Column{
			{"machine_number", "Machine"}, {"machine_type", "Type"}, {"status", "Status"},
			{"active_batches", "Active"}, {"capacity", "Capacity"}, {"utilization", "Utilization %"},
		}
		for _, m := range p.Machines {
			t.Rows = append(t.Rows, map[string]interface{}{
				"machine_number": m.MachineNumber, "machine_type": m.MachineType, "status": m.Status,
				"active_batches": m.ActiveBatches, "capacity": m.Capacity, "utilization": m.Utilization,
			})
		}
		t.Analytics = p.Summary
	case tools.AlertList:
		t.Title = "Alerts"
		t.Columns = []Column{{"severity", "Severity"}, {"alert_type", "Type"}, {"message", "Message"}, {"status", "Status"}, {"created_at", "Created"}}
		for _, a := range p.Alerts {
			t.Rows = append(t.Rows, map[string]interface{}{
				"severity": a.Severity, "alert_type": a.AlertType, "message": a.Message,
				"status": a.Status, "created_at": a.CreatedAt,
			})
		}
	case tools.BatchLookup:
		t.Title = "Batch " + p.Batch.BatchNumber
		t.Columns = batchColumns
		t.Rows = batchRows([]tools.BatchRow{*p.Batch})
	default:
		return nil
	}
	return t
}

var batchColumns = []Column{
	{"batch_number", "Batch"}, {"status", "Status"}, {"set_date", "Set"},
	{"expected_hatch_date", "Expected hatch"}, {"total_eggs_set", "Eggs set"},
	{"chicks_hatched", "Chicks hatched"}, {"hatch_rate", "Hatch %"},
}

func batchRows(batches []tools.BatchRow) []map[string]interface{} {
	rows := make([]map[string]interface{}, len(batches))
	for i, b := range batches {
		rows[i] = map[string]interface{}{
			"batch_number": b.BatchNumber, "status": b.Status, "set_date": b.SetDate,
			"expected_hatch_date": b.ExpectedHatchDate, "total_eggs_set": b.TotalEggsSet,
			"chicks_hatched": b.ChicksHatched, "hatch_rate": b.HatchRate,
		}
	}
	return rows
}
