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

package records

import (
	"time"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/store"
)

// IncubationDays is the default gap between set date and expected hatch date
const IncubationDays = 21

// Resource describes one data-entry table
type Resource struct {
	Name       string
	Table      string
	Required   []string
	Filters    []string
	DateColumn string
	newPayload func() interface{}
	derive     func(merged, changes store.Row) error
}

// Payloads use pointer fields so an update only touches what was sent.

type unitPayload struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Location *string `json:"location" validate:"omitempty,max=200"`
}

type flockPayload struct {
	UnitID      *int64  `json:"unit_id" validate:"omitempty,gt=0"`
	FlockName   *string `json:"flock_name" validate:"omitempty,min=1,max=100"`
	HouseNumber *string `json:"house_number" validate:"omitempty,max=20"`
	AgeWeeks    *int    `json:"age_weeks" validate:"omitempty,min=0,max=150"`
}

type machinePayload struct {
	MachineNumber *string `json:"machine_number" validate:"omitempty,min=1,max=50"`
	MachineType   *string `json:"machine_type" validate:"omitempty,oneof=setter hatcher combo"`
	Capacity      *int    `json:"capacity" validate:"omitempty,min=0,max=1000"`
	Status        *string `json:"status" validate:"omitempty,oneof=operational maintenance offline"`
	Location      *string `json:"location" validate:"omitempty,max=200"`
}

type batchPayload struct {
	BatchNumber       *string `json:"batch_number" validate:"omitempty,min=1,max=50"`
	FlockID           *int64  `json:"flock_id" validate:"omitempty,gt=0"`
	UnitID            *int64  `json:"unit_id" validate:"omitempty,gt=0"`
	MachineID         *int64  `json:"machine_id" validate:"omitempty,gt=0"`
	Status            *string `json:"status" validate:"omitempty,oneof=planned setting incubating hatching completed cancelled"`
	SetDate           *string `json:"set_date" validate:"omitempty,datetime=2006-01-02"`
	ExpectedHatchDate *string `json:"expected_hatch_date" validate:"omitempty,datetime=2006-01-02"`
	TotalEggsSet      *int64  `json:"total_eggs_set" validate:"omitempty,min=0"`
	EggsInjected      *int64  `json:"eggs_injected" validate:"omitempty,min=0"`
	ChicksHatched     *int64  `json:"chicks_hatched" validate:"omitempty,min=0"`
}

type fertilityPayload struct {
	BatchID       *int64  `json:"batch_id" validate:"omitempty,gt=0"`
	AnalysisDate  *string `json:"analysis_date" validate:"omitempty,datetime=2006-01-02"`
	SampleSize    *int64  `json:"sample_size" validate:"omitempty,min=0"`
	FertileEggs   *int64  `json:"fertile_eggs" validate:"omitempty,min=0"`
	InfertileEggs *int64  `json:"infertile_eggs" validate:"omitempty,min=0"`
	ChicksHatched *int64  `json:"chicks_hatched" validate:"omitempty,min=0"`
	EggsInjected  *int64  `json:"eggs_injected" validate:"omitempty,min=0"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

type residuePayload struct {
	BatchID      *int64  `json:"batch_id" validate:"omitempty,gt=0"`
	AnalysisDate *string `json:"analysis_date" validate:"omitempty,datetime=2006-01-02"`
	SampleSize   *int64  `json:"sample_size" validate:"omitempty,min=0"`
	EarlyDead    *int64  `json:"early_dead" validate:"omitempty,min=0"`
	MidDead      *int64  `json:"mid_dead" validate:"omitempty,min=0"`
	LateDead     *int64  `json:"late_dead" validate:"omitempty,min=0"`
	Pipped       *int64  `json:"pipped" validate:"omitempty,min=0"`
	Contaminated *int64  `json:"contaminated" validate:"omitempty,min=0"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`
}

type eggPackPayload struct {
	BatchID        *int64  `json:"batch_id" validate:"omitempty,gt=0"`
	InspectionDate *string `json:"inspection_date" validate:"omitempty,datetime=2006-01-02"`
	SampleSize     *int64  `json:"sample_size" validate:"omitempty,min=0"`
	GradeA         *int64  `json:"grade_a" validate:"omitempty,min=0"`
	Cracked        *int64  `json:"cracked" validate:"omitempty,min=0"`
	Dirty          *int64  `json:"dirty" validate:"omitempty,min=0"`
	Small          *int64  `json:"small" validate:"omitempty,min=0"`
	Large          *int64  `json:"large" validate:"omitempty,min=0"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

type qaReadingPayload struct {
	MachineID   *int64   `json:"machine_id" validate:"omitempty,gt=0"`
	ReadingDate *string  `json:"reading_date" validate:"omitempty,datetime=2006-01-02"`
	Temperature *float64 `json:"temperature" validate:"omitempty,min=20,max=45"`
	Humidity    *float64 `json:"humidity" validate:"omitempty,min=0,max=100"`
	CO2         *float64 `json:"co2" validate:"omitempty,min=0,max=10"`
	Notes       *string  `json:"notes" validate:"omitempty,max=2000"`
}

type alertPayload struct {
	AlertType *string `json:"alert_type" validate:"omitempty,min=1,max=50"`
	Severity  *string `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Message   *string `json:"message" validate:"omitempty,min=1,max=500"`
	Status    *string `json:"status" validate:"omitempty,oneof=active acknowledged resolved"`
	BatchID   *int64  `json:"batch_id" validate:"omitempty,gt=0"`
	MachineID *int64  `json:"machine_id" validate:"omitempty,gt=0"`
}

// Catalog returns the data-entry resources keyed by URL name
func Catalog() map[string]Resource {
	list := []Resource{
		{
			Name: "units", Table: store.TableUnits,
			Required:   []string{"name"},
			newPayload: func() interface{} { return &unitPayload{} },
		},
		{
			Name: "flocks", Table: store.TableFlocks,
			Required:   []string{"flock_name"},
			Filters:    []string{"unit_id", "house_number"},
			newPayload: func() interface{} { return &flockPayload{} },
		},
		{
			Name: "machines", Table: store.TableMachines,
			Required:   []string{"machine_number", "machine_type"},
			Filters:    []string{"machine_type", "status"},
			newPayload: func() interface{} { return &machinePayload{} },
		},
		{
			Name: "batches", Table: store.TableBatches,
			Required:   []string{"batch_number"},
			Filters:    []string{"status", "flock_id", "unit_id", "machine_id", "batch_number"},
			DateColumn: "set_date",
			newPayload: func() interface{} { return &batchPayload{} },
			derive:     deriveBatch,
		},
		{
			Name: "fertility-analyses", Table: store.TableFertilityAnalyses,
			Required:   []string{"batch_id", "analysis_date", "sample_size", "fertile_eggs"},
			Filters:    []string{"batch_id"},
			DateColumn: "analysis_date",
			newPayload: func() interface{} { return &fertilityPayload{} },
			derive:     deriveFertility,
		},
		{
			Name: "residue-analyses", Table: store.TableResidueAnalyses,
			Required:   []string{"batch_id", "analysis_date", "sample_size"},
			Filters:    []string{"batch_id"},
			DateColumn: "analysis_date",
			newPayload: func() interface{} { return &residuePayload{} },
			derive:     deriveResidue,
		},
		{
			Name: "egg-pack-quality", Table: store.TableEggPackQuality,
			Required:   []string{"batch_id", "inspection_date", "sample_size"},
			Filters:    []string{"batch_id"},
			DateColumn: "inspection_date",
			newPayload: func() interface{} { return &eggPackPayload{} },
			derive:     deriveEggPack,
		},
		{
			Name: "qa-readings", Table: store.TableQAReadings,
			Required:   []string{"machine_id", "reading_date"},
			Filters:    []string{"machine_id"},
			DateColumn: "reading_date",
			newPayload: func() interface{} { return &qaReadingPayload{} },
		},
		{
			Name: "alerts", Table: store.TableAlerts,
			Required:   []string{"alert_type", "message"},
			Filters:    []string{"status", "severity", "alert_type", "batch_id", "machine_id"},
			newPayload: func() interface{} { return &alertPayload{} },
		},
	}

	out := make(map[string]Resource, len(list))
	for _, r := range list {
		out[r.Name] = r
	}
	return out
}

// deriveBatch fills the expected hatch date from the set date
func deriveBatch(merged, changes store.Row) error {
	if _, moved := changes["set_date"]; !moved {
		return nil
	}
	if _, explicit := changes["expected_hatch_date"]; explicit {
		return nil
	}
	set, err := time.Parse(store.DateLayout, merged.DateString("set_date"))
	if err != nil {
		return nil
	}
	changes["expected_hatch_date"] = store.Date(set.AddDate(0, 0, IncubationDays))
	return nil
}

// deriveFertility recomputes the infertile count and every percentage from
// the merged counts so stored rates always agree with the formulas
func deriveFertility(merged, changes store.Row) error {
	sample := merged.Int64("sample_size")
	fertile := merged.Int64("fertile_eggs")
	if fertile > sample {
		return newFieldError("fertile_eggs", "cannot exceed sample_size")
	}
	if _, explicit := changes["infertile_eggs"]; !explicit {
		changes["infertile_eggs"] = sample - fertile
	} else if merged.Int64("infertile_eggs")+fertile > sample {
		return newFieldError("infertile_eggs", "fertile_eggs plus infertile_eggs cannot exceed sample_size")
	}

	changes["fertility_percent"] = formula.Round1(formula.Fertility(float64(fertile), float64(sample)))
	if merged.IsNull("chicks_hatched") {
		return nil
	}
	hatched := float64(merged.Int64("chicks_hatched"))
	changes["hatch_percent"] = formula.Round1(formula.Hatch(hatched, float64(sample)))
	changes["hof_percent"] = formula.Round1(formula.HatchOfFertile(hatched, float64(fertile)))
	if !merged.IsNull("eggs_injected") {
		changes["hoi_percent"] = formula.Round1(formula.HatchOfInjection(hatched, float64(merged.Int64("eggs_injected"))))
	}
	return nil
}

func deriveResidue(merged, _ store.Row) error {
	return partsWithinSample(merged, "early_dead", "mid_dead", "late_dead", "pipped", "contaminated")
}

func deriveEggPack(merged, _ store.Row) error {
	return partsWithinSample(merged, "grade_a", "cracked", "dirty", "small", "large")
}

func partsWithinSample(row store.Row, columns ...string) error {
	var total int64
	for _, c := range columns {
		total += row.Int64(c)
	}
	if total > row.Int64("sample_size") {
		return newFieldError("sample_size", "the categorized counts exceed the sample size")
	}
	return nil
}
