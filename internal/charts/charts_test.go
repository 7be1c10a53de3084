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
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/hatchery-assistant/internal/retrieval"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

var now = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func batchResult() tools.Result {
	batches := []tools.BatchRow{
		{BatchNumber: "B-1", Status: "completed", SetDate: "2026-09-01", TotalEggsSet: 1000, ChicksHatched: 850, HatchRate: 85},
		{BatchNumber: "B-2", Status: "incubating", SetDate: "2026-10-01", ExpectedHatchDate: "2026-10-18", TotalEggsSet: 1200},
		{BatchNumber: "B-3", Status: "incubating", SetDate: "2026-09-20", ExpectedHatchDate: "2026-10-11", TotalEggsSet: 900},
	}
	return tools.Result{
		CallID: "c1", Tool: tools.ToolGetBatches, OK: true,
		Payload: tools.BatchOverview{Batches: batches, Analytics: tools.AnalyzeBatches(batches, now)},
	}
}

func fertilityResult() tools.Result {
	return tools.Result{
		CallID: "c2", Tool: tools.ToolGetFertility, OK: true,
		Payload: tools.FertilityReport{
			GroupBy: "house",
			Aggregation: &retrieval.Aggregation{
				RequestedDimension: retrieval.DimensionHouse,
				Dimension:          retrieval.DimensionUnit,
				Retried:            true,
				UnknownFraction:    0.6,
				Verdict:            retrieval.Verdict{Passed: true},
				Rows: []retrieval.Row{
					{Label: "Unit A", FertilityPercent: 91.5, HatchPercent: 84, HOFPercent: 91.8, SampleCount: 2},
					{Label: "Unit B", FertilityPercent: 76.2, HatchPercent: 70, HOFPercent: 91.9, SampleCount: 3},
				},
			},
			Summary: tools.FertilitySummary{Count: 2, AverageFertility: 83.9, AverageHatch: 77},
		},
	}
}

func chartTypes(env *Envelope) []ChartType {
	out := make([]ChartType, len(env.Charts))
	for i, c := range env.Charts {
		out[i] = c.Type
	}
	return out
}

func TestParseChartType(t *testing.T) {
	ct, ok := ParseChartType(" PIE ")
	assert.True(t, ok)
	assert.Equal(t, Pie, ct)

	_, ok = ParseChartType("donut")
	assert.False(t, ok)
}

func TestBatchDefaults(t *testing.T) {
	env, err := Synthesize(Request{Result: batchResult(), Now: now})
	require.NoError(t, err)

	assert.Equal(t, EnvelopeType, env.Type)
	assert.Equal(t, []ChartType{Pie, Bar}, chartTypes(env))
	assert.Equal(t, StandardActions(), env.Actions)

	status := env.Charts[0]
	assert.Equal(t, "status", status.NameKey)
	require.Len(t, status.Data, 2)
	assert.Equal(t, "incubating", status.Data[0]["status"])
	assert.Equal(t, 2, status.Data[0]["count"])
	assert.Contains(t, status.Insights, "incubating")

	perf := env.Charts[1]
	assert.Contains(t, perf.Insights, "B-1 at 85.0%")

	cards := map[string]string{}
	for _, m := range env.Metrics {
		cards[m.Label] = m.Value
	}
	assert.Equal(t, "1", cards["Upcoming hatches"])
	assert.Equal(t, "1", cards["Overdue"])
}

func TestBatchSingleRowHasNoPerformanceChart(t *testing.T) {
	res := batchResult()
	p := res.Payload.(tools.BatchOverview)
	p.Batches = p.Batches[:1]
	res.Payload = p

	env, err := Synthesize(Request{Result: res, Now: now})
	require.NoError(t, err)
	assert.Equal(t, []ChartType{Pie}, chartTypes(env))
}

func TestExplicitFamilyOverrides(t *testing.T) {
	for _, family := range ScanOrder {
		t.Run(string(family), func(t *testing.T) {
			for _, res := range []tools.Result{batchResult(), fertilityResult()} {
				env, err := Synthesize(Request{Explicit: family, Result: res, Now: now})
				require.NoError(t, err)
				assert.Equal(t, []ChartType{family}, chartTypes(env))
			}
		})
	}
}

func TestFertilityFamilies(t *testing.T) {
	env, err := Synthesize(Request{Result: fertilityResult(), Now: now})
	require.NoError(t, err)
	assert.Equal(t, []ChartType{Bar}, chartTypes(env))

	env, err = Synthesize(Request{Requested: []ChartType{Radar, Pie}, Result: fertilityResult(), Now: now})
	require.NoError(t, err)
	assert.Equal(t, []ChartType{Bar, Pie, Radar}, chartTypes(env))

	pie := env.Charts[1]
	require.Len(t, pie.Data, 2)
	assert.Equal(t, "excellent", pie.Data[0]["bucket"])
	assert.Equal(t, "average", pie.Data[1]["bucket"])
}

func TestFertilityChartMatchesAggregation(t *testing.T) {
	res := fertilityResult()
	env, err := Synthesize(Request{Result: res, Now: now})
	require.NoError(t, err)

	bar := env.Charts[0]
	agg := res.Payload.(tools.FertilityReport).Aggregation
	require.Len(t, bar.Data, len(agg.Rows))
	for i, row := range agg.Rows {
		assert.Equal(t, row.Label, bar.Data[i]["label"])
		assert.Equal(t, row.FertilityPercent, bar.Data[i]["fertility"])
	}
	assert.Equal(t, "Highest fertility: Unit A at 91.5%; lowest: Unit B at 76.2%.", bar.Insights)
	assert.Equal(t, "Fertility by Unit", env.Title)
	assert.Contains(t, env.Insights[len(env.Insights)-1], "grouped by unit")
	assert.Contains(t, env.Recommendations[0], "Unit B")
}

// Every number quoted in an insight must come from the chart's own data
func TestInsightsReferenceChartData(t *testing.T) {
	results := []tools.Result{batchResult(), fertilityResult(), machineResult()}
	for _, res := range results {
		for _, family := range append([]ChartType{""}, ScanOrder...) {
			env, err := Synthesize(Request{Explicit: family, Result: res, Now: now})
			require.NoError(t, err)
			for _, c := range env.Charts {
				if c.Insights == "" {
					continue
				}
				data, err := json.Marshal(c.Data)
				require.NoError(t, err)
				for _, n := range numbersIn(c.Insights) {
					assert.True(t, containsNumber(string(data), n, len(c.Data)),
						"insight %q quotes %s not found in %s", c.Insights, n, data)
				}
			}
		}
	}
}

func machineResult() tools.Result {
	return tools.Result{
		Tool: tools.ToolGetMachineStatus, OK: true,
		Payload: tools.MachineStatus{
			Machines: []tools.MachineRow{
				{MachineNumber: "S-01", Status: "operational", Capacity: 4, ActiveBatches: 2, Utilization: 50},
				{MachineNumber: "H-01", Status: "maintenance", Capacity: 2, ActiveBatches: 1, Utilization: 50},
				{MachineNumber: "C-01", Status: "offline", Capacity: 0, Utilization: 0},
			},
			Summary: tools.MachineSummary{Total: 3, Operational: 1, Maintenance: 1, Offline: 1, AverageUtilization: 33.3},
		},
	}
}

func TestMachineEnvelope(t *testing.T) {
	env, err := Synthesize(Request{Result: machineResult(), Now: now})
	require.NoError(t, err)
	assert.Equal(t, []ChartType{Bar}, chartTypes(env))
	assert.Equal(t, "utilization", env.Charts[0].Series[0].Key)
	require.Len(t, env.Recommendations, 1)
	assert.Contains(t, env.Recommendations[0], "H-01")
}

func TestNotChartable(t *testing.T) {
	_, err := Synthesize(Request{Result: tools.Result{Tool: "x", OK: false, Error: "boom"}})
	assert.True(t, errors.Is(err, ErrNotChartable))

	_, err = Synthesize(Request{Result: tools.Result{Tool: tools.ToolFindBatch, OK: true, Payload: tools.BatchLookup{Query: "zzz"}}})
	assert.True(t, errors.Is(err, ErrNotChartable))

	_, ok := FirstChartable([]tools.Result{{OK: false}})
	assert.False(t, ok)
}

func TestTabulate(t *testing.T) {
	table, ok := Tabulate([]tools.Result{{OK: false}, batchResult()})
	require.True(t, ok)
	assert.Equal(t, TableType, table.Type)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, "batch_number", table.Columns[0].Key)
	assert.NotNil(t, table.Analytics)

	_, ok = Tabulate(nil)
	assert.False(t, ok)
}

var insightNumber = regexp.MustCompile(`(?:^|[\s(])(\d+(?:\.\d+)?)`)

func numbersIn(s string) []string {
	var out []string
	for _, m := range insightNumber.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// containsNumber reports whether n is a value in the encoded data rows or
// the number of rows
func containsNumber(data, n string, rows int) bool {
	want, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return false
	}
	if want == float64(rows) {
		return true
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		return false
	}
	for _, row := range decoded {
		for _, v := range row {
			if f, ok := v.(float64); ok && math.Abs(f-want) < 0.05 {
				return true
			}
		}
	}
	return false
}
