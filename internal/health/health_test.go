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

package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func healthy(context.Context) CheckResult {
	return CheckResult{Status: StatusHealthy}
}

func TestManager_Check(t *testing.T) {
	manager := NewManager("hatchery-assistant", "1.0.0", zap.NewNop())

	manager.AddChecker("healthy", CheckerFunc(healthy))
	manager.AddChecker("unhealthy", CheckerFunc(func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Error: "store is down"}
	}))

	result := manager.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}
	if result.Service != "hatchery-assistant" {
		t.Errorf("Expected service to be hatchery-assistant, got %s", result.Service)
	}
	if result.Version != "1.0.0" {
		t.Errorf("Expected version to be 1.0.0, got %s", result.Version)
	}
	if len(result.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}
	if dep := result.Dependencies["unhealthy"]; dep.Error != "store is down" || dep.Timestamp.IsZero() {
		t.Errorf("Unexpected unhealthy dependency %+v", dep)
	}
}

func TestManager_Check_Degraded(t *testing.T) {
	manager := NewManager("hatchery-assistant", "1.0.0", zap.NewNop())
	manager.AddChecker("store", CheckerFunc(healthy))
	manager.AddChecker("openai", UpstreamConfiguredChecker([]string{"gpt-4o-mini"}, func() bool { return false }))

	result := manager.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("Expected degraded status, got %s", result.Status)
	}
	dep := result.Dependencies["openai"]
	if dep.Metadata["openai_configured"] != false {
		t.Errorf("Expected openai_configured=false, got %v", dep.Metadata["openai_configured"])
	}
}

func TestManager_Check_Timeout(t *testing.T) {
	manager := NewManager("hatchery-assistant", "1.0.0", zap.NewNop())
	manager.timeout = 20 * time.Millisecond

	manager.AddChecker("slow", CheckerFunc(func(ctx context.Context) CheckResult {
		select {
		case <-ctx.Done():
			return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
		case <-time.After(time.Second):
			return CheckResult{Status: StatusHealthy}
		}
	}))
	manager.AddChecker("store", CheckerFunc(healthy))

	result := manager.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Expected timeout to mark the check unhealthy, got %s", result.Status)
	}
	if result.Dependencies["store"].Status != StatusHealthy {
		t.Errorf("Expected the fast check to be reported, got %+v", result.Dependencies["store"])
	}
}

func TestDatabaseHealthChecker(t *testing.T) {
	ok := DatabaseHealthChecker("sqlite3", func(context.Context) error { return nil }).Check(context.Background())
	if ok.Status != StatusHealthy || ok.Metadata["dialect"] != "sqlite3" {
		t.Errorf("Unexpected result %+v", ok)
	}

	down := DatabaseHealthChecker("pgx", func(context.Context) error {
		return errors.New("database is closed")
	}).Check(context.Background())
	if down.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", down.Status)
	}

	flaky := DatabaseHealthChecker("pgx", func(context.Context) error {
		return fmt.Errorf("failed to connect: %w", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})
	}).Check(context.Background())
	if flaky.Status != StatusDegraded {
		t.Errorf("Expected degraded for a transient error, got %s", flaky.Status)
	}
}

func TestUpstreamConfiguredChecker(t *testing.T) {
	result := UpstreamConfiguredChecker([]string{"gpt-4o"}, func() bool { return true }).Check(context.Background())
	if result.Status != StatusHealthy || result.Error != "" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{fmt.Errorf("ping: %w", context.DeadlineExceeded), true},
		{&net.DNSError{Err: "i/o timeout", IsTimeout: true}, true},
		{&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{errors.New("no such table: batches"), false},
		{errors.New("timeout"), false},
	}
	for _, tt := range tests {
		if got := isTransient(tt.err); got != tt.expected {
			t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}

func TestManager_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		status   string
		expected int
	}{
		{"healthy", StatusHealthy, http.StatusOK},
		{"degraded keeps 200", StatusDegraded, http.StatusOK},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager("hatchery-assistant", "1.0.0", zap.NewNop())
			manager.AddChecker("dep", CheckerFunc(func(context.Context) CheckResult { return CheckResult{Status: tt.status} }))

			router := gin.New()
			router.GET("/health", manager.Handler())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.expected {
				t.Errorf("Expected status code %d, got %d", tt.expected, rr.Code)
			}
			var body HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Status != tt.status {
				t.Errorf("Expected body status %s, got %s", tt.status, body.Status)
			}
		})
	}
}
