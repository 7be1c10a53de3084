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

// Package tools implements the catalog of data access operations the model
// may call. Every operation returns a Result; failures never cross the
// executor boundary as errors or panics.
package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/hatchery-assistant/internal/resilience"
	"github.com/your-org/hatchery-assistant/internal/retrieval"
	"github.com/your-org/hatchery-assistant/internal/store"
)

// DefaultConcurrency bounds parallel tool dispatch
const DefaultConcurrency = 4

type handlerFunc func(ctx context.Context, args Args) (Payload, error)

type entry struct {
	spec    Spec
	handler handlerFunc
}

// Options configures an Executor
type Options struct {
	Concurrency int
	// Timeout bounds each tool call; zero means resilience.DefaultTimeout
	Timeout time.Duration
	Planner retrieval.Config
	Now     func() time.Time
}

// Executor runs tool invocations against the store
type Executor struct {
	db          *store.DB
	planner     *retrieval.Planner
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	concurrency int
	timeout     time.Duration
	specs       []Spec
	entries     map[string]entry
}

// NewExecutor creates an executor serving the fixed catalog
func NewExecutor(db *store.DB, opts Options, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	e := &Executor{
		db:          db,
		planner:     retrieval.NewPlanner(db, opts.Planner, logger).WithClock(opts.Now),
		validate:    validator.New(),
		logger:      logger,
		now:         opts.Now,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		specs:       Catalog(),
	}

	handlers := map[string]handlerFunc{
		ToolGetBatches:        e.getBatches,
		ToolGetBatchesByDate:  e.getBatchesByDateRange,
		ToolFindBatch:         e.findBatch,
		ToolGetFertility:      e.getFertilityAnalysis,
		ToolGetMachineStatus:  e.getMachineStatus,
		ToolGetAlerts:         e.getAlerts,
		ToolGetRecentActivity: e.getRecentActivity,
	}
	e.entries = make(map[string]entry, len(e.specs))
	for _, s := range e.specs {
		e.entries[s.Name] = entry{spec: s, handler: handlers[s.Name]}
	}
	return e
}

// Specs returns the catalog advertised to the model
func (e *Executor) Specs() []Spec {
	out := make([]Spec, len(e.specs))
	copy(out, e.specs)
	return out
}

// Execute runs a single invocation
func (e *Executor) Execute(ctx context.Context, inv Invocation) (res Result) {
	start := time.Now()
	res = Result{CallID: inv.CallID, Tool: inv.Tool}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Tool panicked",
				zap.String("tool", inv.Tool),
				zap.Any("panic", r),
			)
			res.OK = false
			res.Payload = nil
			res.Error = fmt.Sprintf("tool %s failed unexpectedly", inv.Tool)
		}
	}()

	raw, err := decodeArguments(inv.Arguments)
	if err != nil {
		res.Parameters = map[string]interface{}{"raw": inv.Arguments}
		res.Error = err.Error()
		return res
	}
	res.Parameters = raw

	ent, ok := e.entries[inv.Tool]
	if !ok || ent.handler == nil {
		res.Error = fmt.Sprintf("unknown tool %q", inv.Tool)
		return res
	}

	args, err := bindArgs(ent.spec, raw, e.validate)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	payload, err := resilience.WithTimeout(ctx, e.timeout, e.logger, func(ctx context.Context) (Payload, error) {
		return ent.handler(ctx, args)
	})
	if err != nil {
		e.logger.Warn("Tool execution failed",
			zap.String("tool", inv.Tool),
			zap.String("call_id", inv.CallID),
			zap.Error(err),
		)
		res.Error = err.Error()
		return res
	}

	res.OK = true
	res.Payload = payload
	e.logger.Debug("Tool executed",
		zap.String("tool", inv.Tool),
		zap.String("call_id", inv.CallID),
		zap.Int("rows", payload.RowCount()),
		zap.Duration("processing_time", time.Since(start)),
	)
	return res
}

// ExecuteAll runs independent invocations concurrently. Results are returned
// in invocation order, matched by call id rather than completion order.
func (e *Executor) ExecuteAll(ctx context.Context, invocations []Invocation) []Result {
	calls := make([]Invocation, len(invocations))
	seen := make(map[string]bool, len(invocations))
	for i, inv := range invocations {
		// A generated id was never issued by the model. Conversation.AddToolResults
		// copies result ids back onto the assistant message so the pair still matches.
		if inv.CallID == "" || seen[inv.CallID] {
			inv.CallID = "call_" + uuid.NewString()
		}
		seen[inv.CallID] = true
		calls[i] = inv
	}

	var mu sync.Mutex
	byID := make(map[string]Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, inv := range calls {
		inv := inv
		g.Go(func() error {
			res := e.Execute(gctx, inv)
			mu.Lock()
			byID[res.CallID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, len(calls))
	for i, inv := range calls {
		results[i] = byID[inv.CallID]
	}
	return results
}
