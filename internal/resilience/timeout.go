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

package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single unit of work when no timeout is configured
	DefaultTimeout = 15 * time.Second
	// MaxTimeout caps any requested timeout
	MaxTimeout = 60 * time.Second
)

type outcome[T any] struct {
	value    T
	err      error
	panicked bool
	recov    interface{}
}

// WithTimeout runs fn with a deadline and returns as soon as either fn
// finishes or the deadline passes. A timeout yields a TIMEOUT ServiceError.
// Panics inside fn are re-raised on the caller's goroutine.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, logger *zap.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		logger.Warn("Timeout capped at maximum",
			zap.Duration("requested_timeout", timeout),
			zap.Duration("max_timeout", MaxTimeout))
		timeout = MaxTimeout
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		var o outcome[T]
		defer func() {
			if r := recover(); r != nil {
				o.panicked, o.recov = true, r
			}
			done <- o
		}()
		o.value, o.err = fn(timeoutCtx)
	}()

	select {
	case o := <-done:
		if o.panicked {
			panic(o.recov)
		}
		return o.value, o.err
	case <-timeoutCtx.Done():
		logger.Warn("Operation timed out",
			zap.Duration("timeout", timeout),
			zap.Error(timeoutCtx.Err()))
		var zero T
		return zero, NewTimeoutError("Operation timed out", timeoutCtx.Err())
	}
}
