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

// Package charts turns tool payloads into chart descriptors and analytics
// envelopes for the UI.
package charts

import "strings"

// ChartType is a chart family
type ChartType string

const (
	Bar     ChartType = "bar"
	Line    ChartType = "line"
	Area    ChartType = "area"
	Pie     ChartType = "pie"
	Radar   ChartType = "radar"
	Scatter ChartType = "scatter"
)

// ScanOrder is the order in which chart families are detected and emitted
var ScanOrder = []ChartType{Bar, Line, Area, Pie, Radar, Scatter}

// ParseChartType maps a family name to a ChartType
func ParseChartType(s string) (ChartType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range ScanOrder {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// EnvelopeType marks a chart-bearing reply
const EnvelopeType = "analytics"

// Palette is the series color cycle
var Palette = []string{"#2563eb", "#16a34a", "#f59e0b", "#dc2626", "#7c3aed", "#0891b2", "#db2777", "#65a30d"}

func color(i int) string {
	return Palette[i%len(Palette)]
}

// Series is one plotted value key
type Series struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Chart is a fully configured chart descriptor. Data rows are plain maps so
// the UI can bind them by key.
type Chart struct {
	Type        ChartType                `json:"type"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Data        []map[string]interface{} `json:"data"`
	XAxisKey    string                   `json:"x_axis_key,omitempty"`
	YAxisLabel  string                   `json:"y_axis_label,omitempty"`
	NameKey     string                   `json:"name_key,omitempty"`
	ValueKey    string                   `json:"value_key,omitempty"`
	Series      []Series                 `json:"series,omitempty"`
	Colors      []string                 `json:"colors,omitempty"`
	Insights    string                   `json:"insights,omitempty"`
}

// MetricCard is a headline number
type MetricCard struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Action is a follow-up the UI can offer
type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// Standard actions offered with tabular data
var (
	ActionExportCSV = Action{Type: "export_csv", Label: "Export as CSV"}
	ActionViewTable = Action{Type: "view_table", Label: "View full table"}
	ActionRefresh   = Action{Type: "refresh", Label: "Refresh data"}
)

// StandardActions returns the actions offered with tabular data
func StandardActions() []Action {
	return []Action{ActionViewTable, ActionExportCSV, ActionRefresh}
}

// Envelope is the canonical chart-bearing response
type Envelope struct {
	Type            string       `json:"type"`
	Title           string       `json:"title"`
	Summary         string       `json:"summary"`
	Charts          []Chart      `json:"charts"`
	Metrics         []MetricCard `json:"metrics"`
	Insights        []string     `json:"insights"`
	Recommendations []string     `json:"recommendations"`
	Actions         []Action     `json:"actions,omitempty"`
}

func newEnvelope(title, summary string) *Envelope {
	return &Envelope{
		Type:            EnvelopeType,
		Title:           title,
		Summary:         summary,
		Charts:          []Chart{},
		Metrics:         []MetricCard{},
		Insights:        []string{},
		Recommendations: []string{},
	}
}

func (e *Envelope) add(c Chart) {
	e.Charts = append(e.Charts, c)
	if c.Insights != "" {
		e.Insights = append(e.Insights, c.Insights)
	}
}
