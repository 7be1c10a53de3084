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
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/store"
)

// UpcomingWindowDays is the hatch window counted as upcoming
const UpcomingWindowDays = 7

const maxLookupCandidates = 10

func (e *Executor) getBatches(ctx context.Context, args Args) (Payload, error) {
	q := e.db.From(store.TableBatches)
	status := args.String("status")
	if status != "" {
		q = q.Eq("status", status)
	}
	rows, err := q.Order("set_date", false).Order("id", false).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return e.overview(rows, args.Int("limit"), status, nil), nil
}

func (e *Executor) getBatchesByDateRange(ctx context.Context, args Args) (Payload, error) {
	field := args.String("date_field")
	daysBack := args.Int("days_back")
	today := startOfDay(e.now())
	start := today.AddDate(0, 0, -daysBack)

	q := e.db.From(store.TableBatches).Gte(field, store.Date(start))
	status := args.String("status")
	if status != "" {
		q = q.Eq("status", status)
	}
	rows, err := q.Order(field, false).Order("id", false).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches by %s: %w", field, err)
	}

	rng := &DateRange{
		Field: field,
		Start: store.Date(start),
		End:   store.Date(today),
	}
	rng.Display = fmt.Sprintf("%s to %s (%s, last %d days)", rng.Start, rng.End, field, daysBack)
	return e.overview(rows, args.Int("limit"), status, rng), nil
}

// overview lists a prefix of rows but computes analytics over all of them
func (e *Executor) overview(rows []store.Row, limit int, status string, rng *DateRange) BatchOverview {
	batches := make([]BatchRow, len(rows))
	for i, r := range rows {
		batches[i] = toBatchRow(r)
	}

	shown := batches
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	return BatchOverview{
		Status:    status,
		Range:     rng,
		Batches:   shown,
		Analytics: AnalyzeBatches(batches, e.now()),
	}
}

// AnalyzeBatches computes the overview analytics. Completed and cancelled
// batches are never upcoming or overdue.
func AnalyzeBatches(batches []BatchRow, now time.Time) BatchAnalytics {
	a := BatchAnalytics{
		TotalBatches: len(batches),
		StatusCounts: make(map[string]int),
	}
	var rateSum float64
	var rated int
	for _, b := range batches {
		a.StatusCounts[b.Status]++
		a.TotalEggsSet += b.TotalEggsSet
		a.TotalChicksHatched += b.ChicksHatched
		if b.ChicksHatched > 0 {
			rateSum += b.HatchRate
			rated++
		}

		days, ok := DaysUntil(b.ExpectedHatchDate, now)
		if !ok || !isOpen(b.Status) {
			continue
		}
		switch {
		case days < 0:
			a.OverdueCount++
		case days <= UpcomingWindowDays:
			a.UpcomingCount++
		}
	}
	if rated > 0 {
		a.AverageHatchRate = formula.Round1(rateSum / float64(rated))
	}
	return a
}

// DaysUntil returns whole calendar days from now until date
func DaysUntil(date string, now time.Time) (int, bool) {
	t, err := time.ParseInLocation(store.DateLayout, date, now.Location())
	if err != nil {
		return 0, false
	}
	return int(math.Round(t.Sub(startOfDay(now)).Hours() / 24)), true
}

func isOpen(status string) bool {
	s := strings.ToLower(status)
	return s != "completed" && s != "cancelled"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func toBatchRow(r store.Row) BatchRow {
	b := BatchRow{
		ID:                r.Int64("id"),
		BatchNumber:       r.String("batch_number"),
		Status:            r.String("status"),
		SetDate:           r.DateString("set_date"),
		ExpectedHatchDate: r.DateString("expected_hatch_date"),
		TotalEggsSet:      r.Int64("total_eggs_set"),
		EggsInjected:      r.Int64("eggs_injected"),
		ChicksHatched:     r.Int64("chicks_hatched"),
		MachineID:         r.Int64("machine_id"),
	}
	b.HatchRate = formula.Round1(formula.Hatch(float64(b.ChicksHatched), float64(b.TotalEggsSet)))
	return b
}

func (e *Executor) findBatch(ctx context.Context, args Args) (Payload, error) {
	query := args.String("query")
	result := BatchLookup{Query: query}

	var candidates []store.Row
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		row, ok, err := e.db.From(store.TableBatches).Eq("id", id).First(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to look up batch %d: %w", id, err)
		}
		if ok {
			candidates = append(candidates, row)
		}
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := e.db.From(store.TableBatches).
		Like("batch_number", pattern).
		Order("set_date", false).
		Limit(maxLookupCandidates).
		Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search batches: %w", err)
	}
	candidates = append(candidates, rows...)

	best, ok := bestMatch(query, candidates)
	if !ok {
		result.Message = fmt.Sprintf("No batch matches %q", query)
		return result, nil
	}

	b := toBatchRow(best)
	result.Found = true
	result.Batch = &b
	result.HatchRate = b.HatchRate
	if days, ok := DaysUntil(b.ExpectedHatchDate, e.now()); ok && isOpen(b.Status) {
		result.DaysRemaining = days
		result.Overdue = days < 0
	}
	for _, c := range candidates {
		if n := c.String("batch_number"); n != b.BatchNumber {
			result.Alternatives = appendUnique(result.Alternatives, n)
		}
	}
	return result, nil
}

// bestMatch prefers an exact id, then an exact number, then the shortest
// number containing the query
func bestMatch(query string, candidates []store.Row) (store.Row, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if id, err := strconv.ParseInt(q, 10, 64); err == nil {
		for _, c := range candidates {
			if c.Int64("id") == id {
				return c, true
			}
		}
	}

	matches := make([]store.Row, 0, len(candidates))
	for _, c := range candidates {
		n := strings.ToLower(c.String("batch_number"))
		if n == q {
			return c, true
		}
		if strings.Contains(n, q) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i].String("batch_number")) < len(matches[j].String("batch_number"))
	})
	return matches[0], true
}

func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
