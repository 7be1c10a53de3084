package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/hatchery-assistant/internal/charts"
	"github.com/your-org/hatchery-assistant/internal/retrieval"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

var now = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func batchResult(n int) tools.Result {
	batches := make([]tools.BatchRow, n)
	for i := range batches {
		batches[i] = tools.BatchRow{BatchNumber: "B-" + string(rune('A'+i)), Status: "incubating", SetDate: "2026-10-01"}
	}
	return tools.Result{
		CallID: "b", Tool: tools.ToolGetBatches, OK: true,
		Payload: tools.BatchOverview{Batches: batches, Analytics: tools.AnalyzeBatches(batches, now)},
	}
}

func fertilityResult() tools.Result {
	return tools.Result{
		CallID: "f", Tool: tools.ToolGetFertility, OK: true,
		Payload: tools.FertilityReport{
			GroupBy: "house",
			Aggregation: &retrieval.Aggregation{
				Dimension: retrieval.DimensionHouse,
				Rows:      []retrieval.Row{{Label: "House 1", FertilityPercent: 90, SampleCount: 1}},
				Verdict:   retrieval.Verdict{Passed: true},
			},
		},
	}
}

func machineResult(n int) tools.Result {
	machines := make([]tools.MachineRow, n)
	for i := range machines {
		machines[i] = tools.MachineRow{MachineNumber: "S-0" + string(rune('1'+i)), Status: "operational"}
	}
	return tools.Result{
		CallID: "m", Tool: tools.ToolGetMachineStatus, OK: true,
		Payload: tools.MachineStatus{Machines: machines},
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "dont show a pie chart", Normalize("  Don't   show a PIE chart? "))
	assert.Equal(t, "x-y plot of hatch", Normalize("X-Y plot, of hatch!"))
	assert.Equal(t, "", Normalize("?!"))
}

func TestDetectChartType(t *testing.T) {
	c := NewClassifier()

	testCases := []struct {
		name     string
		message  string
		expected charts.ChartType
		found    bool
	}{
		{"pie", "show me a pie chart of batch status", charts.Pie, true},
		{"donut", "Donut of alert severities", charts.Pie, true},
		{"negated pie falls through to trends", "not a pie chart, give me trends", charts.Line, true},
		{"no pie", "no pie please", "", false},
		{"dont with article", "I don't want the pie", "", false},
		{"negation outside window", "not sure what I need, maybe a pie", charts.Pie, true},
		{"bar before pie in scan order", "pie or bar chart", charts.Bar, true},
		{"column", "columns for each house", charts.Bar, true},
		{"over time", "hatch rate over time", charts.Line, true},
		{"area chart", "an area chart of fertility", charts.Area, true},
		{"area alone is not a chart", "which area has the most batches", "", false},
		{"spider", "spider chart of units", charts.Radar, true},
		{"scatter", "x-y plot of eggs and hatch", charts.Scatter, true},
		{"substring does not match", "barn temperatures and pipeline", "", false},
		{"no chart words", "how many batches are incubating", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.DetectChartType(tc.message)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRequestedFamilies(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, []charts.ChartType{charts.Pie, charts.Radar},
		c.RequestedFamilies("compare fertility with a radar and a pie"))
	assert.Equal(t, []charts.ChartType{charts.Line},
		c.RequestedFamilies("no bar, just the trend"))
	assert.Empty(t, c.RequestedFamilies("fertility by house"))
}

func TestVisualizationWarranted(t *testing.T) {
	c := NewClassifier()
	ok := []tools.Result{batchResult(1)}
	failed := []tools.Result{{Tool: tools.ToolGetBatches, OK: false, Error: "boom"}}

	testCases := []struct {
		message  string
		results  []tools.Result
		expected bool
	}{
		{"compare fertility rates between houses", ok, true},
		{"House 1 vs House 2", ok, true},
		{"show me incubating batches", ok, true},
		{"what is the hatch rate", ok, true},
		{"list the incubating batches", ok, false},
		{"compare fertility rates between houses", nil, false},
		{"compare fertility rates between houses", failed, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, c.VisualizationWarranted(tc.message, tc.results), tc.message)
	}
}

func TestSmartDefault(t *testing.T) {
	c := NewClassifier()

	t.Run("batch overview", func(t *testing.T) {
		d, ok := c.SmartDefault("batch overview", []tools.Result{batchResult(2)})
		require.True(t, ok)
		assert.Equal(t, BundleBatch, d.Bundle)
		assert.Equal(t, "b", d.Result.CallID)
	})

	t.Run("dashboard prefers batch result", func(t *testing.T) {
		d, ok := c.SmartDefault("dashboard", []tools.Result{fertilityResult(), batchResult(1)})
		require.True(t, ok)
		assert.Equal(t, BundleBatch, d.Bundle)
	})

	t.Run("batch without qualifier", func(t *testing.T) {
		_, ok := c.SmartDefault("batch B-2401", []tools.Result{batchResult(1)})
		assert.False(t, ok)
	})

	t.Run("fertility topic", func(t *testing.T) {
		d, ok := c.SmartDefault("how is fertility", []tools.Result{batchResult(1), fertilityResult()})
		require.True(t, ok)
		assert.Equal(t, BundleFertility, d.Bundle)
		assert.Equal(t, "f", d.Result.CallID)
	})

	t.Run("fertility topic without fertility data", func(t *testing.T) {
		_, ok := c.SmartDefault("hatch numbers", []tools.Result{batchResult(2)})
		assert.False(t, ok)
	})

	t.Run("large result by shape", func(t *testing.T) {
		d, ok := c.SmartDefault("anything to report", []tools.Result{machineResult(4)})
		require.True(t, ok)
		assert.Equal(t, BundleMachine, d.Bundle)

		_, ok = c.SmartDefault("anything to report", []tools.Result{machineResult(3)})
		assert.False(t, ok)
	})

	t.Run("failed results are ignored", func(t *testing.T) {
		_, ok := c.SmartDefault("batch overview", []tools.Result{{Tool: tools.ToolGetBatches, Error: "boom"}})
		assert.False(t, ok)
	})
}
