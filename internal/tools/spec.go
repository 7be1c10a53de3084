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

// Tool names
const (
	ToolGetBatches          = "get_batches"
	ToolGetBatchesByDate    = "get_batches_by_date_range"
	ToolFindBatch           = "find_batch"
	ToolGetFertility        = "get_fertility_analysis"
	ToolGetMachineStatus    = "get_machine_status"
	ToolGetAlerts           = "get_alerts"
	ToolGetRecentActivity   = "get_recent_activity"
	defaultBatchLimit       = 20
	defaultDateRangeDays    = 30
	defaultAlertLimit       = 50
	defaultActivityDaysBack = 7
	defaultActivityLimit    = 10
)

// ParamType is a JSON schema primitive type
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeArray   ParamType = "array"
)

// Param describes one tool argument. Rule is a go-playground/validator tag
// applied to the coerced value.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
	Rule        string
	Default     interface{}
}

// Spec is an immutable tool description advertised to the model
type Spec struct {
	Name        string
	Description string
	Params      []Param
}

// Schema renders the parameter list as a JSON schema object
func (s Spec) Schema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Params))
	required := make([]string, 0)
	for _, p := range s.Params {
		prop := map[string]interface{}{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			if p.Type == TypeArray {
				prop["items"] = map[string]interface{}{"type": "string", "enum": p.Enum}
			} else {
				prop["enum"] = p.Enum
			}
		} else if p.Type == TypeArray {
			prop["items"] = map[string]interface{}{"type": "string"}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var (
	batchStatuses = []string{"planned", "setting", "incubating", "hatching", "completed", "cancelled"}
	dateFields    = []string{"set_date", "expected_hatch_date", "created_at"}
	machineTypes  = []string{"setter", "hatcher", "combo"}
	machineStates = []string{"operational", "maintenance", "offline"}
	alertStatuses = []string{"active", "acknowledged", "resolved", "all"}
	severities    = []string{"low", "medium", "high", "critical"}
	dimensions    = []string{"house", "unit", "batch"}
)

// Catalog returns the fixed tool catalog
func Catalog() []Spec {
	return []Spec{
		{
			Name:        ToolGetBatches,
			Description: "List hatchery batches with status, dates, eggs set and hatch results. Includes analytics over every matching batch: status counts, totals, average hatch rate, upcoming and overdue hatches.",
			Params: []Param{
				{Name: "status", Type: TypeString, Description: "Only batches in this status", Enum: batchStatuses},
				{Name: "limit", Type: TypeInteger, Description: "Maximum batches to list (default 20)", Rule: "min=1,max=500", Default: defaultBatchLimit},
			},
		},
		{
			Name:        ToolGetBatchesByDate,
			Description: "List batches whose date column falls within the last N days, with the same analytics as get_batches.",
			Params: []Param{
				{Name: "days_back", Type: TypeInteger, Description: "Look back this many days (default 30)", Rule: "min=1,max=365", Default: defaultDateRangeDays},
				{Name: "date_field", Type: TypeString, Description: "Date column to filter on", Enum: dateFields, Default: "set_date"},
				{Name: "status", Type: TypeString, Description: "Only batches in this status", Enum: batchStatuses},
				{Name: "limit", Type: TypeInteger, Description: "Maximum batches to list (default 20)", Rule: "min=1,max=500", Default: defaultBatchLimit},
			},
		},
		{
			Name:        ToolFindBatch,
			Description: "Find a single batch by batch number (partial, case-insensitive) or numeric id. Returns days remaining until hatch and the hatch rate.",
			Params: []Param{
				{Name: "query", Type: TypeString, Description: "Batch number or id", Required: true, Rule: "min=1,max=64"},
			},
		},
		{
			Name:        ToolGetFertility,
			Description: "Fertility analyses. Without group_by returns the raw analyses newest first. With group_by returns mean fertility, hatch, hatch-of-fertile and hatch-of-injection percentages per house, unit or batch, validated and regrouped by unit when houses cannot be resolved.",
			Params: []Param{
				{Name: "group_by", Type: TypeString, Description: "Grouping dimension", Enum: dimensions},
				{Name: "days_back", Type: TypeInteger, Description: "Only analyses from the last N days", Rule: "min=1,max=3650"},
				{Name: "limit", Type: TypeInteger, Description: "Maximum analyses to read (default 200)", Rule: "min=1,max=1000", Default: 200},
				{Name: "filter", Type: TypeArray, Description: "Keep only groups whose label contains one of these values"},
				{Name: "min_groups", Type: TypeInteger, Description: "Minimum distinct groups for a valid result", Rule: "min=1,max=50"},
			},
		},
		{
			Name:        ToolGetMachineStatus,
			Description: "Setter and hatcher machines with status, capacity, active batches and utilization percentage.",
			Params: []Param{
				{Name: "machine_type", Type: TypeString, Description: "Only machines of this type", Enum: machineTypes},
				{Name: "status", Type: TypeString, Description: "Only machines in this status", Enum: machineStates},
			},
		},
		{
			Name:        ToolGetAlerts,
			Description: "Operational alerts, newest first, with counts per severity.",
			Params: []Param{
				{Name: "status", Type: TypeString, Description: "Alert status, or all (default active)", Enum: alertStatuses, Default: "active"},
				{Name: "severity", Type: TypeString, Description: "Only alerts with this severity", Enum: severities},
				{Name: "limit", Type: TypeInteger, Description: "Maximum alerts (default 50)", Rule: "min=1,max=500", Default: defaultAlertLimit},
			},
		},
		{
			Name:        ToolGetRecentActivity,
			Description: "Digest of recent activity: batches set, fertility analyses and active alerts over the last N days.",
			Params: []Param{
				{Name: "days_back", Type: TypeInteger, Description: "Look back this many days (default 7)", Rule: "min=1,max=90", Default: defaultActivityDaysBack},
				{Name: "limit", Type: TypeInteger, Description: "Maximum items per section (default 10)", Rule: "min=1,max=100", Default: defaultActivityLimit},
			},
		},
	}
}
