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

	"golang.org/x/sync/errgroup"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/store"
)

// activeStatuses are the batch states that occupy a machine
var activeStatuses = []string{"setting", "incubating", "hatching"}

func (e *Executor) getMachineStatus(ctx context.Context, args Args) (Payload, error) {
	q := e.db.From(store.TableMachines)
	if t := args.String("machine_type"); t != "" {
		q = q.Eq("machine_type", t)
	}
	if s := args.String("status"); s != "" {
		q = q.Eq("status", s)
	}
	machines, err := q.Order("machine_number", true).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	active, err := e.db.From(store.TableBatches).
		Select("machine_id").
		In("status", store.Values(activeStatuses)).
		Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active batches: %w", err)
	}
	load := make(map[int64]int)
	for _, b := range active {
		if !b.IsNull("machine_id") {
			load[b.Int64("machine_id")]++
		}
	}

	out := MachineStatus{Machines: make([]MachineRow, 0, len(machines))}
	var utilSum float64
	for _, m := range machines {
		row := MachineRow{
			ID:            m.Int64("id"),
			MachineNumber: m.String("machine_number"),
			MachineType:   m.String("machine_type"),
			Status:        m.String("status"),
			Location:      m.String("location"),
			Capacity:      m.Int64("capacity"),
		}
		row.ActiveBatches = load[row.ID]
		row.Utilization = formula.Utilization(float64(row.ActiveBatches), float64(row.Capacity))
		utilSum += row.Utilization
		out.Machines = append(out.Machines, row)

		switch row.Status {
		case "operational":
			out.Summary.Operational++
		case "maintenance":
			out.Summary.Maintenance++
		case "offline":
			out.Summary.Offline++
		}
	}
	out.Summary.Total = len(out.Machines)
	if out.Summary.Total > 0 {
		out.Summary.AverageUtilization = formula.Round1(utilSum / float64(out.Summary.Total))
	}
	return out, nil
}

func (e *Executor) getAlerts(ctx context.Context, args Args) (Payload, error) {
	status := args.String("status")
	alerts, err := e.alerts(ctx, status, args.String("severity"), "", args.Int("limit"))
	if err != nil {
		return nil, err
	}

	out := AlertList{Status: status, Alerts: alerts, SeverityCounts: make(map[string]int)}
	for _, a := range alerts {
		out.SeverityCounts[a.Severity]++
	}
	return out, nil
}

func (e *Executor) alerts(ctx context.Context, status, severity, since string, limit int) ([]AlertRow, error) {
	q := e.db.From(store.TableAlerts)
	if status != "" && status != "all" {
		q = q.Eq("status", status)
	}
	if severity != "" {
		q = q.Eq("severity", severity)
	}
	if since != "" {
		q = q.Gte("created_at", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows, err := q.Order("created_at", false).Order("id", false).Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	out := make([]AlertRow, len(rows))
	for i, r := range rows {
		out[i] = AlertRow{
			ID:        r.Int64("id"),
			AlertType: r.String("alert_type"),
			Severity:  r.String("severity"),
			Message:   r.String("message"),
			Status:    r.String("status"),
			BatchID:   r.Int64("batch_id"),
			MachineID: r.Int64("machine_id"),
			CreatedAt: r.String("created_at"),
		}
	}
	return out, nil
}

// getRecentActivity issues its three independent reads concurrently
func (e *Executor) getRecentActivity(ctx context.Context, args Args) (Payload, error) {
	daysBack := args.Int("days_back")
	limit := args.Int("limit")
	since := store.Date(startOfDay(e.now()).AddDate(0, 0, -daysBack))

	digest := ActivityDigest{DaysBack: daysBack, Since: since}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.db.From(store.TableBatches).
			Gte("set_date", since).
			Order("set_date", false).
			Order("id", false).
			Limit(limit).
			Rows(gctx)
		if err != nil {
			return fmt.Errorf("failed to list recent batches: %w", err)
		}
		digest.Batches = make([]BatchRow, len(rows))
		for i, r := range rows {
			digest.Batches[i] = toBatchRow(r)
		}
		return nil
	})
	g.Go(func() error {
		facts, err := e.planner.FetchFacts(gctx, daysBack, limit)
		if err != nil {
			return fmt.Errorf("failed to list recent analyses: %w", err)
		}
		numbers, err := e.batchNumbers(gctx, facts)
		if err != nil {
			return err
		}
		digest.Analyses = make([]FertilityRow, len(facts))
		for i, f := range facts {
			digest.Analyses[i] = FertilityRow{Fact: f, BatchNumber: numbers[f.BatchID]}
		}
		return nil
	})
	g.Go(func() error {
		alerts, err := e.alerts(gctx, "active", "", since, limit)
		if err != nil {
			return err
		}
		digest.ActiveAlerts = alerts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digest, nil
}
