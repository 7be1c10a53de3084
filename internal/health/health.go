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

// Package health reports the state of the store and the upstream model configuration
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	// StatusDegraded still serves traffic; the health endpoint answers 200.
	StatusDegraded = "degraded"

	// DefaultTimeout bounds one round of checks
	DefaultTimeout = 5 * time.Second
)

// CheckResult is the outcome of one dependency check
type CheckResult struct {
	Status    string                 `json:"status"`
	Latency   time.Duration          `json:"latency"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string                 `json:"status"`
	Service       string                 `json:"service"`
	Version       string                 `json:"version"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Dependencies  map[string]CheckResult `json:"dependencies"`
	Timestamp     time.Time              `json:"timestamp"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager runs the registered checks and folds them into one status
type Manager struct {
	serviceName string
	version     string
	startTime   time.Time
	mu          sync.RWMutex
	checkers    map[string]Checker
	timeout     time.Duration
	logger      *zap.Logger
}

func NewManager(serviceName, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// AddChecker registers checker under name, replacing any previous one
func (m *Manager) AddChecker(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// Check runs every checker concurrently under one deadline. Any unhealthy
// dependency makes the service unhealthy; otherwise any degraded one makes it
// degraded.
func (m *Manager) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.RLock()
	names := make([]string, 0, len(m.checkers))
	checkers := make([]Checker, 0, len(m.checkers))
	for name, c := range m.checkers {
		names = append(names, name)
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			start := time.Now()
			r := c.Check(ctx)
			r.Latency = time.Since(start)
			r.Timestamp = time.Now()
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	dependencies := make(map[string]CheckResult, len(results))
	for i, r := range results {
		dependencies[names[i]] = r
		switch {
		case r.Status == StatusUnhealthy:
			status = StatusUnhealthy
		case r.Status == StatusDegraded && status == StatusHealthy:
			status = StatusDegraded
		}
	}

	return HealthResponse{
		Status:        status,
		Service:       m.serviceName,
		Version:       m.version,
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		Dependencies:  dependencies,
		Timestamp:     time.Now().UTC(),
	}
}

// Handler serves the health report. Degraded keeps 200; unhealthy is 503.
func (m *Manager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := m.Check(c.Request.Context())

		statusCode := http.StatusOK
		if result.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
			m.logger.Warn("Health check failed", zap.Any("dependencies", result.Dependencies))
		}
		c.JSON(statusCode, result)
	}
}

// DatabaseHealthChecker pings the store. A timeout or refused connection
// reports degraded rather than unhealthy.
func DatabaseHealthChecker(dialect string, pingFunc func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		meta := map[string]interface{}{"dialect": dialect}
		if err := pingFunc(ctx); err != nil {
			status := StatusUnhealthy
			if isTransient(err) {
				status = StatusDegraded
			}
			return CheckResult{
				Status:   status,
				Error:    fmt.Sprintf("database ping failed: %v", err),
				Metadata: meta,
			}
		}
		return CheckResult{Status: StatusHealthy, Metadata: meta}
	})
}

// UpstreamConfiguredChecker reports degraded when no usable model API key is
// set. Chat requests then fail with a configuration error while the data
// endpoints keep working.
func UpstreamConfiguredChecker(models []string, configured func() bool) Checker {
	return CheckerFunc(func(_ context.Context) CheckResult {
		ok := configured()
		meta := map[string]interface{}{"models": models, "openai_configured": ok}
		if !ok {
			return CheckResult{
				Status:   StatusDegraded,
				Error:    "OPENAI_API_KEY is missing or malformed",
				Metadata: meta,
			}
		}
		return CheckResult{Status: StatusHealthy, Metadata: meta}
	})
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
