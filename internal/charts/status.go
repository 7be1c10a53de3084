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

	"github.com/your-org/hatchery-assistant/internal/tools"
)

var severityOrder = []string{"critical", "high", "medium", "low"}

func machineEnvelope(p tools.MachineStatus, req Request) *Envelope {
	env := newEnvelope("Machine Utilization",
		fmt.Sprintf("%d machines: %d operational, %d in maintenance, %d offline.",
			p.Summary.Total, p.Summary.Operational, p.Summary.Maintenance, p.Summary.Offline))

	for _, f := range families(req, Bar) {
		if f == Pie {
			env.add(machineStatusChart(p))
			continue
		}
		env.add(machineUtilizationChart(p, f))
	}

	env.Metrics = append(env.Metrics,
		MetricCard{Label: "Machines", Value: fmt.Sprint(p.Summary.Total)},
		MetricCard{Label: "Operational", Value: fmt.Sprint(p.Summary.Operational)},
		MetricCard{Label: "Average utilization", Value: pct(p.Summary.AverageUtilization)},
	)
	for _, m := range p.Machines {
		if m.Status != "operational" && m.ActiveBatches > 0 {
			env.Recommendations = append(env.Recommendations,
				fmt.Sprintf("%s is %s but holds %d active batch(es); consider moving them.", m.MachineNumber, m.Status, m.ActiveBatches))
		}
	}
	return env
}

func machineUtilizationChart(p tools.MachineStatus, t ChartType) Chart {
	data := make([]map[string]interface{}, 0, len(p.Machines))
	var busiest *tools.MachineRow
	for i := range p.Machines {
		m := &p.Machines[i]
		data = append(data, map[string]interface{}{
			"machine":        m.MachineNumber,
			"machine_type":   m.MachineType,
			"status":         m.Status,
			"utilization":    m.Utilization,
			"active_batches": m.ActiveBatches,
			"capacity":       m.Capacity,
		})
		if busiest == nil || m.Utilization > busiest.Utilization {
			busiest = m
		}
	}

	c := Chart{
		Type:        t,
		Title:       "Machine Utilization",
		Description: "Active batches as a share of machine capacity",
		Data:        data,
		XAxisKey:    "machine",
		YAxisLabel:  "Utilization (%)",
		Series:      []Series{{Key: "utilization", Name: "Utilization %", Color: color(0)}},
	}
	if t == Scatter {
		c.XAxisKey = "capacity"
	}
	if busiest != nil {
		c.Insights = fmt.Sprintf("%s is the busiest machine at %s utilization.", busiest.MachineNumber, pct(busiest.Utilization))
	}
	return c
}

func machineStatusChart(p tools.MachineStatus) Chart {
	counts := []struct {
		status string
		n      int
	}{
		{"operational", p.Summary.Operational},
		{"maintenance", p.Summary.Maintenance},
		{"offline", p.Summary.Offline},
	}
	data := make([]map[string]interface{}, 0, len(counts))
	for _, c := range counts {
		if c.n > 0 {
			data = append(data, map[string]interface{}{"status": c.status, "count": c.n})
		}
	}
	return Chart{
		Type:        Pie,
		Title:       "Machine Status",
		Description: "Machines by operating status",
		Data:        data,
		NameKey:     "status",
		ValueKey:    "count",
		Colors:      []string{color(1), color(2), color(3)},
		Insights:    fmt.Sprintf("%d machine status group(s) shown.", len(data)),
	}
}

func alertEnvelope(p tools.AlertList, req Request) *Envelope {
	env := newEnvelope("Alerts", fmt.Sprintf("%d %s alert(s).", len(p.Alerts), p.Status))

	data := make([]map[string]interface{}, 0, len(severityOrder))
	top, topCount := "", 0
	for _, s := range severityOrder {
		if n := p.SeverityCounts[s]; n > 0 {
			data = append(data, map[string]interface{}{"severity": s, "count": n})
			if n > topCount {
				top, topCount = s, n
			}
		}
	}

	for _, f := range families(req, Pie) {
		c := Chart{
			Type:        f,
			Title:       "Alerts by Severity",
			Description: "Number of alerts per severity",
			Data:        data,
			Insights:    fmt.Sprintf("Most alerts are %s (%d).", top, topCount),
		}
		if f == Pie {
			c.NameKey, c.ValueKey = "severity", "count"
			c.Colors = []string{color(3), color(2), color(0), color(1)}
		} else {
			c.XAxisKey = "severity"
			c.Series = []Series{{Key: "count", Name: "Alerts", Color: color(3)}}
		}
		env.add(c)
	}

	env.Metrics = append(env.Metrics, MetricCard{Label: "Alerts", Value: fmt.Sprint(len(p.Alerts))})
	if n := p.SeverityCounts["critical"]; n > 0 {
		env.Recommendations = append(env.Recommendations, fmt.Sprintf("Address %d critical alert(s) first.", n))
	}
	return env
}
