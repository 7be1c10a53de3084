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

package retrieval

import (
	"context"
	"strings"

	"github.com/your-org/hatchery-assistant/internal/store"
)

// labelIndex maps batch ids to their house, unit and batch labels.
// Built with one query per hop rather than one per fact row.
type labelIndex struct {
	house map[int64]string
	unit  map[int64]string
	batch map[int64]string
}

func (idx *labelIndex) label(dim Dimension, batchID int64) string {
	switch dim {
	case DimensionUnit:
		if l := idx.unit[batchID]; l != "" {
			return l
		}
		return UnknownUnit
	case DimensionBatch:
		if l := idx.batch[batchID]; l != "" {
			return l
		}
		return UnknownBatch
	default:
		if l := idx.house[batchID]; l != "" {
			return l
		}
		return UnknownHouse
	}
}

func (p *Planner) resolveLabels(ctx context.Context, facts []Fact) (*labelIndex, error) {
	idx := &labelIndex{
		house: make(map[int64]string),
		unit:  make(map[int64]string),
		batch: make(map[int64]string),
	}
	if len(facts) == 0 {
		return idx, nil
	}

	batchIDs := uniqueIDs(len(facts), func(i int) int64 { return facts[i].BatchID })
	batches, err := p.db.From(store.TableBatches).
		Select("id", "batch_number", "flock_id", "unit_id").
		In("id", store.Values(batchIDs)).
		Rows(ctx)
	if err != nil {
		return nil, err
	}

	flockByBatch := make(map[int64]int64, len(batches))
	unitByBatch := make(map[int64]int64, len(batches))
	for _, b := range batches {
		id := b.Int64("id")
		idx.batch[id] = b.String("batch_number")
		if !b.IsNull("flock_id") {
			flockByBatch[id] = b.Int64("flock_id")
		}
		if !b.IsNull("unit_id") {
			unitByBatch[id] = b.Int64("unit_id")
		}
	}

	houses, err := p.lookup(ctx, store.TableFlocks, "house_number", flockByBatch)
	if err != nil {
		return nil, err
	}
	units, err := p.lookup(ctx, store.TableUnits, "name", unitByBatch)
	if err != nil {
		return nil, err
	}

	for batchID, flockID := range flockByBatch {
		if h := houseLabel(houses[flockID]); h != "" {
			idx.house[batchID] = h
		}
	}
	for batchID, unitID := range unitByBatch {
		if u := strings.TrimSpace(units[unitID]); u != "" {
			idx.unit[batchID] = u
		}
	}

	return idx, nil
}

// lookup fetches column for every parent id referenced in refs
func (p *Planner) lookup(ctx context.Context, table, column string, refs map[int64]int64) (map[int64]string, error) {
	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]bool, len(refs))
	for _, id := range refs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := p.db.From(table).Select("id", column).In("id", store.Values(ids)).Rows(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Int64("id")] = r.String(column)
	}
	return out, nil
}

func houseLabel(houseNumber string) string {
	h := strings.TrimSpace(houseNumber)
	if h == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(h), "house") {
		return h
	}
	return "House " + h
}

func uniqueIDs(n int, at func(int) int64) []int64 {
	seen := make(map[int64]bool, n)
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id := at(i)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
