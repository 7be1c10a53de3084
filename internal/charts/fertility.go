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
	"strings"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/retrieval"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

// maxRadarGroups keeps radar charts legible
const maxRadarGroups = 6

type fertilityPoint struct {
	label     string
	date      string
	fertility float64
	hatch     float64
	hof       float64
	hoi       float64
	samples   int
}

var bucketOrder = []string{formula.BucketExcellent, formula.BucketGood, formula.BucketAverage, formula.BucketPoor}

func fertilityPoints(p tools.FertilityReport) []fertilityPoint {
	if p.Aggregation != nil {
		out := make([]fertilityPoint, len(p.Aggregation.Rows))
		for i, r := range p.Aggregation.Rows {
			out[i] = fertilityPoint{
				label: r.Label, fertility: r.FertilityPercent, hatch: r.HatchPercent,
				hof: r.HOFPercent, hoi: r.HOIPercent, samples: r.SampleCount,
			}
		}
		return out
	}
	out := make([]fertilityPoint, len(p.Rows))
	for i, r := range p.Rows {
		label := r.BatchNumber
		if label == "" {
			label = fmt.Sprintf("Analysis %d", r.ID)
		}
		out[i] = fertilityPoint{
			label: label, date: r.AnalysisDate,
			fertility: formula.Round1(r.FertilityPercent), hatch: formula.Round1(r.HatchPercent),
			hof: formula.Round1(r.HOFPercent), hoi: formula.Round1(r.HOIPercent), samples: 1,
		}
	}
	return out
}

func fertilityEnvelope(p tools.FertilityReport, req Request) *Envelope {
	points := fertilityPoints(p)
	dimension := "Batch"
	if p.Aggregation != nil {
		dimension = titleCase(string(p.Aggregation.Dimension))
	}

	env := newEnvelope(
		fmt.Sprintf("Fertility by %s", dimension),
		fmt.Sprintf("Average fertility %s and hatch %s across %d %s group(s).",
			pct(p.Summary.AverageFertility), pct(p.Summary.AverageHatch), len(points), strings.ToLower(dimension)),
	)

	defaults := []ChartType{Bar}
	for _, t := range []ChartType{Pie, Line, Area, Scatter, Radar} {
		if requested(req, t) {
			defaults = append(defaults, t)
		}
	}
	for _, f := range families(req, defaults...) {
		switch f {
		case Bar:
			env.add(fertilityComparisonChart(points, dimension))
		case Pie:
			env.add(fertilityBucketChart(points))
		case Line, Area:
			env.add(fertilityTrendChart(points, f, p.Aggregation == nil))
		case Scatter:
			env.add(fertilityScatterChart(points))
		case Radar:
			env.add(fertilityRadarChart(points))
		}
	}

	env.Metrics = append(env.Metrics,
		MetricCard{Label: "Average fertility", Value: pct(p.Summary.AverageFertility)},
		MetricCard{Label: "Average hatch", Value: pct(p.Summary.AverageHatch)},
		MetricCard{Label: "Hatch of fertile", Value: pct(p.Summary.AverageHOF)},
		MetricCard{Label: "Hatch of injection", Value: pct(p.Summary.AverageHOI)},
	)

	if agg := p.Aggregation; agg != nil {
		if agg.Retried && agg.Verdict.Passed && agg.Dimension != agg.RequestedDimension {
			env.Insights = append(env.Insights, fmt.Sprintf(
				"%s labels could not be resolved for %.0f%% of analyses, so results are grouped by %s.",
				titleCase(string(agg.RequestedDimension)), agg.UnknownFraction*100, agg.Dimension))
		}
		if !agg.Verdict.Passed {
			env.Recommendations = append(env.Recommendations,
				fmt.Sprintf("Treat this comparison with caution: validation failed (%s).", joinReasons(agg.Verdict.Reasons)))
		}
	}
	for _, pt := range points {
		if pt.fertility < formula.GoodThreshold {
			env.Recommendations = append(env.Recommendations,
				fmt.Sprintf("Investigate fertility for %s (%s, %s).", pt.label, pct(pt.fertility), formula.Bucket(pt.fertility)))
		}
	}
	return env
}

func fertilityComparisonChart(points []fertilityPoint, dimension string) Chart {
	data := make([]map[string]interface{}, 0, len(points))
	var best, worst *fertilityPoint
	for i := range points {
		pt := &points[i]
		data = append(data, map[string]interface{}{
			"label":     pt.label,
			"fertility": pt.fertility,
			"hatch":     pt.hatch,
			"hof":       pt.hof,
			"hoi":       pt.hoi,
			"samples":   pt.samples,
			"bucket":    formula.Bucket(pt.fertility),
		})
		if best == nil || pt.fertility > best.fertility {
			best = pt
		}
		if worst == nil || pt.fertility < worst.fertility {
			worst = pt
		}
	}

	c := Chart{
		Type:        Bar,
		Title:       fmt.Sprintf("Fertility and Hatch by %s", dimension),
		Description: "Mean fertility and hatch percentages",
		Data:        data,
		XAxisKey:    "label",
		YAxisLabel:  "Percent",
		Series: []Series{
			{Key: "fertility", Name: "Fertility %", Color: color(0)},
			{Key: "hatch", Name: "Hatch %", Color: color(1)},
			{Key: "hof", Name: "Hatch of fertile %", Color: color(2)},
		},
	}
	if best != nil {
		if best == worst {
			c.Insights = fmt.Sprintf("%s fertility is %s.", best.label, pct(best.fertility))
		} else {
			c.Insights = fmt.Sprintf("Highest fertility: %s at %s; lowest: %s at %s.",
				best.label, pct(best.fertility), worst.label, pct(worst.fertility))
		}
	}
	return c
}

func fertilityBucketChart(points []fertilityPoint) Chart {
	counts := make(map[string]int, len(bucketOrder))
	for _, pt := range points {
		counts[formula.Bucket(pt.fertility)]++
	}
	data := make([]map[string]interface{}, 0, len(bucketOrder))
	colors := make([]string, 0, len(bucketOrder))
	top, topCount := "", 0
	for i, b := range bucketOrder {
		if counts[b] == 0 {
			continue
		}
		data = append(data, map[string]interface{}{"bucket": b, "count": counts[b]})
		colors = append(colors, color(i))
		if counts[b] > topCount {
			top, topCount = b, counts[b]
		}
	}
	return Chart{
		Type:        Pie,
		Title:       "Fertility Performance Distribution",
		Description: "Groups by fertility bucket: excellent >=90, good 80-89, average 70-79, poor <70",
		Data:        data,
		NameKey:     "bucket",
		ValueKey:    "count",
		Colors:      colors,
		Insights:    fmt.Sprintf("Most groups fall in the %s bucket (%d).", top, topCount),
	}
}

func fertilityTrendChart(points []fertilityPoint, t ChartType, byDate bool) Chart {
	ordered := make([]fertilityPoint, len(points))
	copy(ordered, points)
	xKey := "label"
	if byDate {
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].date < ordered[j].date })
		xKey = "date"
	}

	data := make([]map[string]interface{}, 0, len(ordered))
	for _, pt := range ordered {
		data = append(data, map[string]interface{}{
			"label": pt.label, "date": pt.date, "fertility": pt.fertility, "hatch": pt.hatch,
		})
	}

	c := Chart{
		Type:        t,
		Title:       "Fertility Trend",
		Description: "Fertility and hatch percentages in sequence",
		Data:        data,
		XAxisKey:    xKey,
		YAxisLabel:  "Percent",
		Series: []Series{
			{Key: "fertility", Name: "Fertility %", Color: color(0)},
			{Key: "hatch", Name: "Hatch %", Color: color(1)},
		},
	}
	if n := len(ordered); n >= 2 {
		first, last := ordered[0], ordered[n-1]
		direction := "unchanged"
		switch {
		case last.fertility > first.fertility:
			direction = "up"
		case last.fertility < first.fertility:
			direction = "down"
		}
		c.Insights = fmt.Sprintf("Fertility moved %s from %s (%s) to %s (%s).",
			direction, pct(first.fertility), first.label, pct(last.fertility), last.label)
	}
	return c
}

func fertilityScatterChart(points []fertilityPoint) Chart {
	data := make([]map[string]interface{}, 0, len(points))
	for _, pt := range points {
		data = append(data, map[string]interface{}{"label": pt.label, "fertility": pt.fertility, "hatch": pt.hatch})
	}
	return Chart{
		Type:        Scatter,
		Title:       "Fertility vs Hatch",
		Description: "Each point is a group",
		Data:        data,
		XAxisKey:    "fertility",
		YAxisLabel:  "Hatch %",
		Series:      []Series{{Key: "hatch", Name: "Hatch %", Color: color(3)}},
		Insights:    fmt.Sprintf("%d groups plotted.", len(data)),
	}
}

// fertilityRadarChart has one row per metric and one series per group
func fertilityRadarChart(points []fertilityPoint) Chart {
	if len(points) > maxRadarGroups {
		points = points[:maxRadarGroups]
	}
	metrics := []struct {
		name string
		get  func(fertilityPoint) float64
	}{
		{"Fertility", func(p fertilityPoint) float64 { return p.fertility }},
		{"Hatch", func(p fertilityPoint) float64 { return p.hatch }},
		{"HOF", func(p fertilityPoint) float64 { return p.hof }},
		{"HOI", func(p fertilityPoint) float64 { return p.hoi }},
	}

	data := make([]map[string]interface{}, 0, len(metrics))
	for _, m := range metrics {
		row := map[string]interface{}{"metric": m.name}
		for _, pt := range points {
			row[pt.label] = m.get(pt)
		}
		data = append(data, row)
	}
	series := make([]Series, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		series[i] = Series{Key: pt.label, Name: pt.label, Color: color(i)}
		labels[i] = pt.label
	}

	return Chart{
		Type:        Radar,
		Title:       "Fertility Profile",
		Description: "Fertility, hatch, HOF and HOI per group",
		Data:        data,
		XAxisKey:    "metric",
		Series:      series,
		Insights:    fmt.Sprintf("Compares %s across fertility, hatch, HOF and HOI.", strings.Join(labels, ", ")),
	}
}

func joinReasons(reasons []retrieval.Reason) string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return strings.Join(out, ", ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
