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
	"strings"
)

// Table names
const (
	TableUnits             = "units"
	TableFlocks            = "flocks"
	TableMachines          = "machines"
	TableBatches           = "batches"
	TableFertilityAnalyses = "fertility_analyses"
	TableResidueAnalyses   = "residue_analyses"
	TableEggPackQuality    = "egg_pack_quality"
	TableQAReadings        = "qa_readings"
	TableAlerts            = "alerts"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS units (
		id {{id}},
		name TEXT NOT NULL,
		location TEXT,
		created_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS flocks (
		id {{id}},
		unit_id INTEGER REFERENCES units(id),
		flock_name TEXT NOT NULL,
		house_number TEXT,
		age_weeks INTEGER,
		created_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS machines (
		id {{id}},
		machine_number TEXT NOT NULL,
		machine_type TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'operational',
		location TEXT,
		created_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id {{id}},
		batch_number TEXT NOT NULL,
		flock_id INTEGER REFERENCES flocks(id),
		unit_id INTEGER REFERENCES units(id),
		machine_id INTEGER REFERENCES machines(id),
		status TEXT NOT NULL DEFAULT 'planned',
		set_date DATE,
		expected_hatch_date DATE,
		total_eggs_set INTEGER NOT NULL DEFAULT 0,
		eggs_injected INTEGER,
		chicks_hatched INTEGER,
		created_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS batches_status_idx ON batches(status)`,
	`CREATE TABLE IF NOT EXISTS fertility_analyses (
		id {{id}},
		batch_id INTEGER NOT NULL REFERENCES batches(id),
		analysis_date DATE NOT NULL,
		sample_size INTEGER NOT NULL DEFAULT 0,
		fertile_eggs INTEGER NOT NULL DEFAULT 0,
		infertile_eggs INTEGER NOT NULL DEFAULT 0,
		chicks_hatched INTEGER,
		eggs_injected INTEGER,
		fertility_percent {{real}},
		hatch_percent {{real}},
		hof_percent {{real}},
		hoi_percent {{real}},
		notes TEXT,
		created_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS fertility_analyses_date_idx ON fertility_analyses(analysis_date)`,
	`CREATE TABLE IF NOT EXISTS residue_analyses (
		id {{id}},
		batch_id INTEGER NOT NULL REFERENCES batches(id),
		analysis_date DATE NOT NULL,
		sample_size INTEGER NOT NULL DEFAULT 0,
		early_dead INTEGER NOT NULL DEFAULT 0,
		mid_dead INTEGER NOT NULL DEFAULT 0,
		late_dead INTEGER NOT NULL DEFAULT 0,
		pipped INTEGER NOT NULL DEFAULT 0,
		contaminated INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS egg_pack_quality (
		id {{id}},
		batch_id INTEGER NOT NULL REFERENCES batches(id),
		inspection_date DATE NOT NULL,
		sample_size INTEGER NOT NULL DEFAULT 0,
		grade_a INTEGER NOT NULL DEFAULT 0,
		cracked INTEGER NOT NULL DEFAULT 0,
		dirty INTEGER NOT NULL DEFAULT 0,
		small INTEGER NOT NULL DEFAULT 0,
		large INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS qa_readings (
		id {{id}},
		machine_id INTEGER NOT NULL REFERENCES machines(id),
		reading_date DATE NOT NULL,
		temperature {{real}},
		humidity {{real}},
		co2 {{real}},
		notes TEXT,
		created_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id {{id}},
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'medium',
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		batch_id INTEGER REFERENCES batches(id),
		machine_id INTEGER REFERENCES machines(id),
		created_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_status_idx ON alerts(status)`,
}

// EnsureSchema creates the hatchery tables if they don't exist
func (d *DB) EnsureSchema(ctx context.Context) error {
	replacer := d.typeReplacer()
	for _, stmt := range schemaStatements {
		if _, err := d.db.ExecContext(ctx, replacer.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}

func (d *DB) typeReplacer() *strings.Replacer {
	if d.dialect == DialectPostgres {
		return strings.NewReplacer(
			"{{id}}", "BIGSERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMPTZ NOT NULL DEFAULT NOW()",
			"{{real}}", "DOUBLE PRECISION",
		)
	}
	return strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"{{real}}", "REAL",
	)
}
