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

// Package retrieval aggregates fertility facts by house, unit or batch and
// validates the result. When grouping by house yields mostly unresolved
// labels the aggregation is retried once by unit.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/your-org/hatchery-assistant/internal/formula"
	"github.com/your-org/hatchery-assistant/internal/store"
	"go.uber.org/zap"
)

// Dimension is the entity level used to group fact rows
type Dimension string

const (
	DimensionHouse Dimension = "house"
	DimensionUnit  Dimension = "unit"
	DimensionBatch Dimension = "batch"
)

// Labels used for rows whose grouping entity could not be resolved
const (
	UnknownHouse = "Unknown House"
	UnknownUnit  = "Unknown Unit"
	UnknownBatch = "Unknown Batch"
)

// Defaults
const (
	DefaultLimit                = 200
	DefaultMinGroups            = 1
	DefaultRetryUnknownFraction = 0.2
	DefaultMaxUnknownFraction   = 0.5
)

// ParseDimension validates a grouping dimension name
func ParseDimension(s string) (Dimension, error) {
	switch Dimension(strings.ToLower(strings.TrimSpace(s))) {
	case DimensionHouse:
		return DimensionHouse, nil
	case DimensionUnit:
		return DimensionUnit, nil
	case DimensionBatch:
		return DimensionBatch, nil
	}
	return "", fmt.Errorf("unknown grouping dimension: %q", s)
}

// Config tunes the planner
type Config struct {
	DefaultLimit         int
	MinGroups            int
	RetryUnknownFraction float64
	MaxUnknownFraction   float64
}

// DefaultConfig returns the planner defaults
func DefaultConfig() Config {
	return Config{
		DefaultLimit:         DefaultLimit,
		MinGroups:            DefaultMinGroups,
		RetryUnknownFraction: DefaultRetryUnknownFraction,
		MaxUnknownFraction:   DefaultMaxUnknownFraction,
	}
}

// Request describes one grouped aggregation
type Request struct {
	GroupBy   Dimension
	DaysBack  int
	Limit     int
	Filter    []string
	MinGroups int
}

// Row is one aggregated group. Metrics are arithmetic means over the group.
type Row struct {
	Label            string  `json:"label"`
	FertilityPercent float64 `json:"fertility_percent"`
	HatchPercent     float64 `json:"hatch_percent"`
	HOFPercent       float64 `json:"hof_percent"`
	HOIPercent       float64 `json:"hoi_percent"`
	SampleCount      int     `json:"sample_count"`
}

// Aggregation is the planner's output, including its validation verdict
type Aggregation struct {
	RequestedDimension Dimension `json:"requested_dimension"`
	Dimension          Dimension `json:"dimension"`
	Rows               []Row     `json:"rows"`
	Verdict            Verdict   `json:"verdict"`
	Retried            bool      `json:"retried"`
	RetryVerdict       *Verdict  `json:"retry_verdict,omitempty"`
	UnknownFraction    float64   `json:"unknown_fraction"`
	FactRows           int       `json:"fact_rows"`
}

// Planner runs grouped aggregations against the store
type Planner struct {
	db     *store.DB
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewPlanner creates a planner; zero config values fall back to defaults
func NewPlanner(db *store.DB, cfg Config, logger *zap.Logger) *Planner {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MinGroups <= 0 {
		cfg.MinGroups = def.MinGroups
	}
	if cfg.RetryUnknownFraction <= 0 {
		cfg.RetryUnknownFraction = def.RetryUnknownFraction
	}
	if cfg.MaxUnknownFraction <= 0 {
		cfg.MaxUnknownFraction = def.MaxUnknownFraction
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// WithClock overrides the planner's clock
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

// FetchFacts loads fertility facts newest first
func (p *Planner) FetchFacts(ctx context.Context, daysBack, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}
	q := p.db.From(store.TableFertilityAnalyses)
	if daysBack > 0 {
		q = q.Gte("analysis_date", store.Date(p.now().AddDate(0, 0, -daysBack)))
	}
	rows, err := q.Order("analysis_date", false).Order("id", false).Limit(limit).Rows(ctx)
	if err != nil {
		return nil, err
	}
	facts := make([]Fact, len(rows))
	for i, r := range rows {
		facts[i] = NormalizeFact(r)
	}
	return facts, nil
}

// Aggregate groups facts, validates the result, and retries once by unit when
// a house grouping fails because labels could not be resolved.
func (p *Planner) Aggregate(ctx context.Context, req Request) (*Aggregation, error) {
	if req.GroupBy == "" {
		req.GroupBy = DimensionHouse
	}
	rules := Rules{MinGroups: req.MinGroups, MaxUnknownFraction: p.cfg.MaxUnknownFraction}
	if rules.MinGroups <= 0 {
		rules.MinGroups = p.cfg.MinGroups
	}

	facts, err := p.FetchFacts(ctx, req.DaysBack, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fertility facts: %w", err)
	}

	idx, err := p.resolveLabels(ctx, facts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve grouping labels: %w", err)
	}

	result := p.run(facts, idx, req.GroupBy, req.Filter, rules)
	result.RequestedDimension = req.GroupBy

	if p.shouldRetry(result) {
		p.logger.Info("Retrying aggregation by unit",
			zap.Float64("unknown_fraction", result.UnknownFraction),
			zap.Strings("reasons", reasonStrings(result.Verdict.Reasons)),
		)
		retry := p.run(facts, idx, DimensionUnit, req.Filter, rules)
		if retry.Verdict.Passed {
			retry.RequestedDimension = req.GroupBy
			retry.Retried = true
			return retry, nil
		}
		result.Retried = true
		result.RetryVerdict = &retry.Verdict
	}

	if !result.Verdict.Passed {
		p.logger.Warn("Aggregation failed validation",
			zap.String("dimension", string(result.Dimension)),
			zap.Strings("reasons", reasonStrings(result.Verdict.Reasons)),
		)
	}

	return result, nil
}

// shouldRetry gates the retry on label resolution failures only
func (p *Planner) shouldRetry(a *Aggregation) bool {
	if a.Verdict.Passed || a.Dimension != DimensionHouse {
		return false
	}
	if a.UnknownFraction < p.cfg.RetryUnknownFraction {
		return false
	}
	return a.Verdict.Has(ReasonInsufficientGroups) || a.Verdict.Has(ReasonUnresolvedLabels)
}

func (p *Planner) run(facts []Fact, idx *labelIndex, dim Dimension, filter []string, rules Rules) *Aggregation {
	type acc struct {
		count                     int
		fertility, hatch, hof, hoi float64
	}

	groups := make(map[string]*acc)
	unknown := 0
	for _, f := range facts {
		label := idx.label(dim, f.BatchID)
		if !isResolved(label) {
			unknown++
		}
		if !matchesFilter(label, filter) {
			continue
		}
		g, ok := groups[label]
		if !ok {
			g = &acc{}
			groups[label] = g
		}
		g.count++
		g.fertility += f.FertilityPercent
		g.hatch += f.HatchPercent
		g.hof += f.HOFPercent
		g.hoi += f.HOIPercent
	}

	rows := make([]Row, 0, len(groups))
	for label, g := range groups {
		n := float64(g.count)
		rows = append(rows, Row{
			Label:            label,
			FertilityPercent: formula.Round1(g.fertility / n),
			HatchPercent:     formula.Round1(g.hatch / n),
			HOFPercent:       formula.Round1(g.hof / n),
			HOIPercent:       formula.Round1(g.hoi / n),
			SampleCount:      g.count,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })

	fraction := 0.0
	if len(facts) > 0 {
		fraction = float64(unknown) / float64(len(facts))
	}

	return &Aggregation{
		Dimension:       dim,
		Rows:            rows,
		Verdict:         Validate(rows, fraction, rules),
		UnknownFraction: fraction,
		FactRows:        len(facts),
	}
}

func matchesFilter(label string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	l := strings.ToLower(label)
	for _, f := range filter {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && strings.Contains(l, f) {
			return true
		}
	}
	return false
}

func reasonStrings(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
