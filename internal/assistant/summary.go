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

package assistant

import (
	"fmt"
	"strings"

	"github.com/your-org/hatchery-assistant/internal/tools"
)

const fallbackLead = "I couldn't reach the language model, so here is what the data shows."

// Summarize describes tool results in plain sentences
func Summarize(results []tools.Result) string {
	lines := []string{fallbackLead}
	for _, r := range results {
		lines = append(lines, describe(r))
	}
	if len(results) == 0 {
		lines = append(lines, "No data was retrieved.")
	}
	return strings.Join(lines, "\n")
}

func describe(r tools.Result) string {
	if !r.OK {
		return fmt.Sprintf("- %s failed: %s", r.Tool, r.Error)
	}
	switch p := r.Payload.(type) {
	case tools.BatchOverview:
		a := p.Analytics
		s := fmt.Sprintf("- %d batch(es) found, %d upcoming hatch(es) and %d overdue", a.TotalBatches, a.UpcomingCount, a.OverdueCount)
		if a.AverageHatchRate > 0 {
			s += fmt.Sprintf("; average hatch rate %.1f%%", a.AverageHatchRate)
		}
		if p.Range != nil {
			s += fmt.Sprintf(" (%s)", p.Range.Display)
		}
		return s + "."
	case tools.BatchLookup:
		if !p.Found {
			return "- " + p.Message
		}
		b := p.Batch
		s := fmt.Sprintf("- Batch %s is %s", b.BatchNumber, b.Status)
		switch {
		case p.Overdue:
			s += fmt.Sprintf(", %d day(s) past its expected hatch date", -p.DaysRemaining)
		case b.ExpectedHatchDate != "" && b.Status != "completed" && b.Status != "cancelled":
			s += fmt.Sprintf(", %d day(s) to hatch", p.DaysRemaining)
		}
		if b.ChicksHatched > 0 {
			s += fmt.Sprintf(", hatch rate %.1f%%", p.HatchRate)
		}
		return s + "."
	case tools.FertilityReport:
		if p.RowCount() == 0 {
			return "- No fertility analyses matched."
		}
		sum := p.Summary
		s := fmt.Sprintf("- %d fertility record(s): average fertility %.1f%%, hatch %.1f%%, HOF %.1f%%.",
			sum.Count, sum.AverageFertility, sum.AverageHatch, sum.AverageHOF)
		if agg := p.Aggregation; agg != nil && !agg.Verdict.Passed {
			s += " The grouped figures failed validation and should be treated with caution."
		}
		return s
	case tools.MachineStatus:
		m := p.Summary
		return fmt.Sprintf("- %d machine(s): %d operational, %d in maintenance, %d offline; average utilization %.1f%%.",
			m.Total, m.Operational, m.Maintenance, m.Offline, m.AverageUtilization)
	case tools.AlertList:
		return fmt.Sprintf("- %d %s alert(s), %d critical.", len(p.Alerts), p.Status, p.SeverityCounts["critical"])
	case tools.ActivityDigest:
		return fmt.Sprintf("- Since %s: %d new batch(es), %d fertility analyses and %d active alert(s).",
			p.Since, len(p.Batches), len(p.Analyses), len(p.ActiveAlerts))
	}
	return fmt.Sprintf("- %s returned data.", r.Tool)
}
