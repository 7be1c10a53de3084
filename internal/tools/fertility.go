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
	"context"
	"fmt"
	"strings"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/retrieval"
	"github.com/your-org/hatchery-assistant/internal/store"
)

func (e *Executor) getFertilityAnalysis(ctx context.Context, args Args) (Payload, error) {
	groupBy := args.String("group_by")
	if groupBy == "" {
		return e.rawFertility(ctx, args)
	}

	dim, err := retrieval.ParseDimension(groupBy)
	if err != nil {
		return nil, err
	}
	agg, err := e.planner.Aggregate(ctx, retrieval.Request{
		GroupBy:   dim,
		DaysBack:  args.Int("days_back"),
		Limit:     args.Int("limit"),
		Filter:    args.Strings("filter"),
		MinGroups: args.Int("min_groups"),
	})
	if err != nil {
		return nil, err
	}

	report := FertilityReport{GroupBy: string(dim), Aggregation: agg}
	var sum FertilitySummary
	for _, r := range agg.Rows {
		sum.AverageFertility += r.FertilityPercent
		sum.AverageHatch += r.HatchPercent
		sum.AverageHOF += r.HOFPercent
		sum.AverageHOI += r.HOIPercent
	}
	report.Summary = finishSummary(sum, len(agg.Rows))
	return report, nil
}

// rawFertility returns the analyses newest first, labelled by batch number
func (e *Executor) rawFertility(ctx context.Context, args Args) (Payload, error) {
	facts, err := e.planner.FetchFacts(ctx, args.Int("days_back"), args.Int("limit"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fertility analyses: %w", err)
	}

	numbers, err := e.batchNumbers(ctx, facts)
	if err != nil {
		return nil, err
	}

	filter := args.Strings("filter")
	rows := make([]FertilityRow, 0, len(facts))
	var sum FertilitySummary
	for _, f := range facts {
		row := FertilityRow{Fact: f, BatchNumber: numbers[f.BatchID]}
		if !labelMatches(row.BatchNumber, filter) {
			continue
		}
		rows = append(rows, row)
		sum.AverageFertility += f.FertilityPercent
		sum.AverageHatch += f.HatchPercent
		sum.AverageHOF += f.HOFPercent
		sum.AverageHOI += f.HOIPercent
	}

	return FertilityReport{Rows: rows, Summary: finishSummary(sum, len(rows))}, nil
}

func (e *Executor) batchNumbers(ctx context.Context, facts []retrieval.Fact) (map[int64]string, error) {
	out := make(map[int64]string)
	if len(facts) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(facts))
	for _, f := range facts {
		if _, ok := out[f.BatchID]; !ok {
			out[f.BatchID] = ""
			ids = append(ids, f.BatchID)
		}
	}
	rows, err := e.db.From(store.TableBatches).Select("id", "batch_number").In("id", store.Values(ids)).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve batch numbers: %w", err)
	}
	for _, r := range rows {
		out[r.Int64("id")] = r.String("batch_number")
	}
	return out, nil
}

func finishSummary(sum FertilitySummary, n int) FertilitySummary {
	sum.Count = n
	if n == 0 {
		return sum
	}
	d := float64(n)
	sum.AverageFertility = formula.Round1(sum.AverageFertility / d)
	sum.AverageHatch = formula.Round1(sum.AverageHatch / d)
	sum.AverageHOF = formula.Round1(sum.AverageHOF / d)
	sum.AverageHOI = formula.Round1(sum.AverageHOI / d)
	return sum
}

func labelMatches(label string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	l := strings.ToLower(label)
	for _, f := range filter {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" && strings.Contains(l, f) {
			return true
		}
	}
	return false
}
