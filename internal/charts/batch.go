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
	"fmt"
	"sort"

	"github.com/your-org/hatchery-assistant/internal/tools"
)

var statusOrder = map[string]int{
	"planned": 0, "setting": 1, "incubating": 2, "hatching": 3, "completed": 4, "cancelled": 5,
}

func batchEnvelope(batches []tools.BatchRow, a tools.BatchAnalytics, req Request) *Envelope {
	env := newEnvelope("Batch Overview", batchSummary(a))

	defaults := []ChartType{Pie}
	if len(batches) >= 2 {
		defaults = append(defaults, Bar)
	}
	for _, f := range families(req, defaults...) {
		switch f {
		case Pie:
			env.add(batchStatusChart(a, Pie))
		case Radar:
			env.add(batchStatusChart(a, Radar))
		case Bar:
			if len(batches) >= 2 || req.Explicit == "" {
				env.add(batchPerformanceChart(batches, Bar))
			} else {
				env.add(batchStatusChart(a, Bar))
			}
		case Line, Area:
			env.add(batchPerformanceChart(batches, f))
		case Scatter:
			env.add(batchScatterChart(batches))
		}
	}

	env.Metrics = append(env.Metrics,
		MetricCard{Label: "Total batches", Value: fmt.Sprint(a.TotalBatches)},
		MetricCard{Label: "Upcoming hatches", Value: fmt.Sprint(a.UpcomingCount), Description: fmt.Sprintf("Expected within %d days", tools.UpcomingWindowDays)},
		MetricCard{Label: "Overdue", Value: fmt.Sprint(a.OverdueCount), Description: "Past expected hatch date"},
		MetricCard{Label: "Average hatch rate", Value: pct(a.AverageHatchRate), Description: "Across hatched batches"},
	)
	if a.OverdueCount > 0 {
		env.Recommendations = append(env.Recommendations,
			fmt.Sprintf("Review %d overdue batch(es) and update their status or hatch results.", a.OverdueCount))
	}
	if a.UpcomingCount > 0 {
		env.Recommendations = append(env.Recommendations,
			fmt.Sprintf("Prepare hatcher capacity for %d batch(es) due within %d days.", a.UpcomingCount, tools.UpcomingWindowDays))
	}
	return env
}

func batchSummary(a tools.BatchAnalytics) string {
	return fmt.Sprintf("%d batches, %d upcoming and %d overdue; %d eggs set and %d chicks hatched.",
		a.TotalBatches, a.UpcomingCount, a.OverdueCount, a.TotalEggsSet, a.TotalChicksHatched)
}

func batchStatusChart(a tools.BatchAnalytics, t ChartType) Chart {
	statuses := make([]string, 0, len(a.StatusCounts))
	for s := range a.StatusCounts {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool {
		oi, iok := statusOrder[statuses[i]]
		oj, jok := statusOrder[statuses[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return statuses[i] < statuses[j]
	})

	data := make([]map[string]interface{}, 0, len(statuses))
	colors := make([]string, 0, len(statuses))
	top, topCount := "", 0
	for i, s := range statuses {
		n := a.StatusCounts[s]
		data = append(data, map[string]interface{}{"status": s, "count": n})
		colors = append(colors, color(i))
		if n > topCount {
			top, topCount = s, n
		}
	}

	c := Chart{
		Type:        t,
		Title:       "Batch Status Breakdown",
		Description: "Number of batches in each status",
		Data:        data,
		Colors:      colors,
	}
	if t == Pie {
		c.NameKey, c.ValueKey = "status", "count"
	} else {
		c.XAxisKey = "status"
		c.YAxisLabel = "Batches"
		c.Series = []Series{{Key: "count", Name: "Batches", Color: color(0)}}
	}
	if topCount > 0 {
		c.Insights = fmt.Sprintf("The largest status group is %s with %d batch(es).", top, topCount)
	}
	return c
}

func batchPerformanceChart(batches []tools.BatchRow, t ChartType) Chart {
	rows := make([]tools.BatchRow, len(batches))
	copy(rows, batches)
	if t == Line || t == Area {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].SetDate < rows[j].SetDate })
	}

	data := make([]map[string]interface{}, 0, len(rows))
	var best *tools.BatchRow
	for i := range rows {
		b := rows[i]
		data = append(data, map[string]interface{}{
			"batch":          b.BatchNumber,
			"status":         b.Status,
			"set_date":       b.SetDate,
			"hatch_rate":     b.HatchRate,
			"eggs_set":       b.TotalEggsSet,
			"chicks_hatched": b.ChicksHatched,
		})
		if b.ChicksHatched > 0 && (best == nil || b.HatchRate > best.HatchRate) {
			best = &rows[i]
		}
	}

	c := Chart{
		Type:        t,
		Title:       "Batch Performance",
		Description: "Hatch rate per batch (chicks hatched / eggs set)",
		Data:        data,
		XAxisKey:    "batch",
		YAxisLabel:  "Hatch rate (%)",
		Series:      []Series{{Key: "hatch_rate", Name: "Hatch rate", Color: color(1)}},
	}
	if best != nil {
		c.Insights = fmt.Sprintf("Best hatch rate: %s at %s.", best.BatchNumber, pct(best.HatchRate))
	} else {
		c.Insights = fmt.Sprintf("None of the %d batches shown has hatch results yet.", len(rows))
	}
	return c
}

func batchScatterChart(batches []tools.BatchRow) Chart {
	data := make([]map[string]interface{}, 0, len(batches))
	for _, b := range batches {
		data = append(data, map[string]interface{}{
			"batch":      b.BatchNumber,
			"eggs_set":   b.TotalEggsSet,
			"hatch_rate": b.HatchRate,
		})
	}
	return Chart{
		Type:        Scatter,
		Title:       "Eggs Set vs Hatch Rate",
		Description: "Each point is a batch",
		Data:        data,
		XAxisKey:    "eggs_set",
		YAxisLabel:  "Hatch rate (%)",
		Series:      []Series{{Key: "hatch_rate", Name: "Hatch rate", Color: color(2)}},
		Insights:    fmt.Sprintf("%d batches plotted.", len(data)),
	}
}
