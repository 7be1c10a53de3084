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

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"go.uber.org/zap"
)

type seedBatch struct {
	number      string
	flock       int
	unit        int
	machine     int
	status      string
	setOffset   int // days relative to now
	eggsSet     int
	injected    int
	hatched     int
	sample      int
	fertile     int
	sampleHatch int
}

var seedBatches = []seedBatch{
	{"B-2401", 0, 0, 0, "completed", -40, 12000, 11300, 10150, 300, 282, 255},
	{"B-2402", 1, 0, 1, "completed", -35, 11000, 10100, 8900, 300, 266, 236},
	{"B-2403", 2, 1, 0, "hatching", -20, 9000, 8400, 0, 250, 228, 0},
	{"B-2404", 3, 1, 2, "incubating", -18, 9500, 8600, 0, 250, 190, 0},
	{"B-2405", 0, 0, 0, "incubating", -10, 12500, 0, 0, 300, 279, 0},
	{"B-2406", 1, 0, 1, "setting", -2, 10000, 0, 0, 0, 0, 0},
	{"B-2407", 2, 1, 1, "planned", 5, 8000, 0, 0, 0, 0, 0},
	{"B-2408", 3, 1, 2, "cancelled", -30, 7000, 0, 0, 200, 150, 0},
}

// Seed inserts a deterministic demo dataset with dates relative to now
func (d *DB) Seed(ctx context.Context, now time.Time) error {
	d.logger.Info("Seeding demo data", zap.String("reference_date", Date(now)))

	unitIDs := make([]int64, 0, 2)
	for _, u := range []Row{
		{"name": "Unit A", "location": "North Farm"},
		{"name": "Unit B", "location": "South Farm"},
	} {
		id, err := d.From(TableUnits).Insert(ctx, u)
		if err != nil {
			return err
		}
		unitIDs = append(unitIDs, id)
	}

	flockIDs := make([]int64, 0, 4)
	for _, f := range []Row{
		{"unit_id": unitIDs[0], "flock_name": "Ross 308 - F1", "house_number": "1", "age_weeks": 34},
		{"unit_id": unitIDs[0], "flock_name": "Ross 308 - F2", "house_number": "2", "age_weeks": 41},
		{"unit_id": unitIDs[1], "flock_name": "Cobb 500 - F3", "house_number": "3", "age_weeks": 29},
		{"unit_id": unitIDs[1], "flock_name": "Cobb 500 - F4", "house_number": "", "age_weeks": 52},
	} {
		id, err := d.From(TableFlocks).Insert(ctx, f)
		if err != nil {
			return err
		}
		flockIDs = append(flockIDs, id)
	}

	machineIDs := make([]int64, 0, 4)
	for _, m := range []Row{
		{"machine_number": "S-01", "machine_type": "setter", "capacity": 4, "status": "operational", "location": "Hall 1"},
		{"machine_number": "S-02", "machine_type": "setter", "capacity": 3, "status": "operational", "location": "Hall 1"},
		{"machine_number": "H-01", "machine_type": "hatcher", "capacity": 2, "status": "maintenance", "location": "Hall 2"},
		{"machine_number": "C-01", "machine_type": "combo", "capacity": 0, "status": "offline", "location": "Hall 2"},
	} {
		id, err := d.From(TableMachines).Insert(ctx, m)
		if err != nil {
			return err
		}
		machineIDs = append(machineIDs, id)
	}

	for i, b := range seedBatches {
		setDate := now.AddDate(0, 0, b.setOffset)
		row := Row{
			"batch_number":        b.number,
			"flock_id":            flockIDs[b.flock],
			"unit_id":             unitIDs[b.unit],
			"machine_id":          machineIDs[b.machine],
			"status":              b.status,
			"set_date":            Date(setDate),
			"expected_hatch_date": Date(setDate.AddDate(0, 0, 21)),
			"total_eggs_set":      b.eggsSet,
		}
		if b.injected > 0 {
			row["eggs_injected"] = b.injected
		}
		if b.hatched > 0 {
			row["chicks_hatched"] = b.hatched
		}
		batchID, err := d.From(TableBatches).Insert(ctx, row)
		if err != nil {
			return err
		}

		if b.sample == 0 {
			continue
		}
		analysis := Row{
			"batch_id":          batchID,
			"analysis_date":     Date(setDate.AddDate(0, 0, 10)),
			"sample_size":       b.sample,
			"fertile_eggs":      b.fertile,
			"infertile_eggs":    b.sample - b.fertile,
			"fertility_percent": formula.Round1(formula.Fertility(float64(b.fertile), float64(b.sample))),
		}
		if b.sampleHatch > 0 {
			injected := b.fertile - 3
			analysis["chicks_hatched"] = b.sampleHatch
			analysis["eggs_injected"] = injected
			analysis["hatch_percent"] = formula.Round1(formula.Hatch(float64(b.sampleHatch), float64(b.sample)))
			analysis["hof_percent"] = formula.Round1(formula.HatchOfFertile(float64(b.sampleHatch), float64(b.fertile)))
			analysis["hoi_percent"] = formula.Round1(formula.HatchOfInjection(float64(b.sampleHatch), float64(injected)))
		}
		if _, err := d.From(TableFertilityAnalyses).Insert(ctx, analysis); err != nil {
			return err
		}

		if b.hatched > 0 {
			residue := Row{
				"batch_id": batchID, "analysis_date": Date(setDate.AddDate(0, 0, 22)),
				"sample_size": 200, "early_dead": 6 + i, "mid_dead": 3, "late_dead": 5, "pipped": 2, "contaminated": 1,
			}
			if _, err := d.From(TableResidueAnalyses).Insert(ctx, residue); err != nil {
				return err
			}
		}

		quality := Row{
			"batch_id": batchID, "inspection_date": Date(setDate.AddDate(0, 0, -1)),
			"sample_size": 360, "grade_a": 330 - 4*i, "cracked": 6 + i, "dirty": 9, "small": 8, "large": 7 + 3*i,
		}
		if _, err := d.From(TableEggPackQuality).Insert(ctx, quality); err != nil {
			return err
		}
	}

	for i, id := range machineIDs[:3] {
		reading := Row{
			"machine_id": id, "reading_date": Date(now.AddDate(0, 0, -1)),
			"temperature": 37.5 + 0.1*float64(i), "humidity": 55.0 + float64(i), "co2": 0.3,
		}
		if _, err := d.From(TableQAReadings).Insert(ctx, reading); err != nil {
			return err
		}
	}

	for _, a := range []Row{
		{"alert_type": "temperature", "severity": "high", "message": "S-01 temperature drifted above 38.0C", "status": "active", "machine_id": machineIDs[0]},
		{"alert_type": "maintenance", "severity": "medium", "message": "H-01 scheduled maintenance overdue", "status": "active", "machine_id": machineIDs[2]},
		{"alert_type": "fertility", "severity": "critical", "message": "B-2404 fertility below 80%", "status": "active"},
		{"alert_type": "humidity", "severity": "low", "message": "S-02 humidity briefly below target", "status": "resolved", "machine_id": machineIDs[1]},
	} {
		if _, err := d.From(TableAlerts).Insert(ctx, a); err != nil {
			return fmt.Errorf("failed to seed alerts: %w", err)
		}
	}

	d.logger.Info("Demo data seeded",
		zap.Int("batches", len(seedBatches)),
		zap.Int("machines", len(machineIDs)),
	)
	return nil
}
