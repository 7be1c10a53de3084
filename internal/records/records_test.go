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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/hatchery-assistant/internal/resilience"
	"github.com/your-org/hatchery-assistant/internal/store"
)

var testNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	db, err := store.OpenMemory(context.Background(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Seed(context.Background(), testNow))

	svc := NewService(db, logger)
	svc.now = func() time.Time { return testNow }

	errs := resilience.NewErrorHandler(logger)
	render := func(c *gin.Context, err error) {
		status, body := errs.Render(err, "test-request")
		c.JSON(status, body)
	}

	router := gin.New()
	NewHandler(svc, render, logger).Register(router.Group("/api/v1"))
	return router, svc
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	decoded := map[string]interface{}{}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	}
	return rr, decoded
}

func dataOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "expected a data object, got %v", body)
	return data
}

func TestListFiltersByAllowedColumn(t *testing.T) {
	router, _ := newTestRouter(t)

	rr, body := do(t, router, http.MethodGet, "/api/v1/batches?status=completed", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), body["count"])

	rows := body["data"].([]interface{})
	for _, r := range rows {
		row := r.(map[string]interface{})
		assert.Equal(t, "completed", row["status"])
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, row["set_date"])
	}
}

func TestListRejectsUnknownFilterAndResource(t *testing.T) {
	router, _ := newTestRouter(t)

	rr, body := do(t, router, http.MethodGet, "/api/v1/batches?color=red", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(resilience.ErrorCodeBadRequest), body["code"])

	rr, _ = do(t, router, http.MethodGet, "/api/v1/hens", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = do(t, router, http.MethodGet, "/api/v1/alerts?from=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, router, http.MethodGet, "/api/v1/batches?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListDateRangeAndLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	// set dates within the last 15 days: B-2405 (-10) and B-2406 (-2)
	rr, body := do(t, router, http.MethodGet, "/api/v1/batches?from=2026-09-30&to=2026-10-15", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), body["count"])

	rows := body["data"].([]interface{})
	assert.Equal(t, "B-2406", rows[0].(map[string]interface{})["batch_number"], "newest set date first")

	rr, body = do(t, router, http.MethodGet, "/api/v1/batches?limit=3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(3), body["count"])
}

func TestCreateFertilityDerivesPercentages(t *testing.T) {
	router, _ := newTestRouter(t)

	rr, body := do(t, router, http.MethodPost, "/api/v1/fertility-analyses", map[string]interface{}{
		"batch_id":       1,
		"analysis_date":  "2026-10-14",
		"sample_size":    200,
		"fertile_eggs":   170,
		"chicks_hatched": 150,
		"eggs_injected":  165,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	data := dataOf(t, body)
	assert.Equal(t, float64(30), data["infertile_eggs"])
	assert.Equal(t, 85.0, data["fertility_percent"])
	assert.Equal(t, 75.0, data["hatch_percent"])
	assert.Equal(t, 88.2, data["hof_percent"])
	assert.Equal(t, 90.9, data["hoi_percent"])
	assert.Equal(t, "2026-10-14", data["analysis_date"])
}

func TestUpdateFertilityRecomputesFromMergedRow(t *testing.T) {
	router, _ := newTestRouter(t)

	_, created := do(t, router, http.MethodPost, "/api/v1/fertility-analyses", map[string]interface{}{
		"batch_id": 1, "analysis_date": "2026-10-14", "sample_size": 200, "fertile_eggs": 170, "chicks_hatched": 150,
	})
	id := int(dataOf(t, created)["id"].(float64))

	rr, body := do(t, router, http.MethodPut, "/api/v1/fertility-analyses/"+strconv.Itoa(id), map[string]interface{}{
		"fertile_eggs": 180,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	data := dataOf(t, body)
	assert.Equal(t, float64(20), data["infertile_eggs"])
	assert.Equal(t, 90.0, data["fertility_percent"])
	assert.Equal(t, 83.3, data["hof_percent"])
	assert.Nil(t, data["hoi_percent"])
}

func TestCreateRejectsInvalidPayloads(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name     string
		path     string
		body     map[string]interface{}
		contains string
	}{
		{
			name:     "fertile exceeds sample",
			path:     "/api/v1/fertility-analyses",
			body:     map[string]interface{}{"batch_id": 1, "analysis_date": "2026-10-14", "sample_size": 100, "fertile_eggs": 120},
			contains: "fertile_eggs",
		},
		{
			name:     "missing required field",
			path:     "/api/v1/fertility-analyses",
			body:     map[string]interface{}{"batch_id": 1, "sample_size": 100, "fertile_eggs": 80},
			contains: "analysis_date",
		},
		{
			name:     "enum violation",
			path:     "/api/v1/machines",
			body:     map[string]interface{}{"machine_number": "X-1", "machine_type": "incubator"},
			contains: "machine_type",
		},
		{
			name:     "bad date format",
			path:     "/api/v1/batches",
			body:     map[string]interface{}{"batch_number": "B-9000", "set_date": "15/10/2026"},
			contains: "set_date",
		},
		{
			name:     "residue parts exceed sample",
			path:     "/api/v1/residue-analyses",
			body:     map[string]interface{}{"batch_id": 1, "analysis_date": "2026-10-14", "sample_size": 10, "early_dead": 8, "late_dead": 5},
			contains: "sample_size",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, body["error"], tt.contains)
		})
	}
}

func TestCreateBatchDefaultsExpectedHatchDate(t *testing.T) {
	router, _ := newTestRouter(t)

	rr, body := do(t, router, http.MethodPost, "/api/v1/batches", map[string]interface{}{
		"batch_number": "B-2409", "set_date": "2026-10-01", "total_eggs_set": 9000, "status": "setting",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	data := dataOf(t, body)
	assert.Equal(t, "2026-10-22", data["expected_hatch_date"])

	id := int(data["id"].(float64))
	rr, body = do(t, router, http.MethodPut, "/api/v1/batches/"+strconv.Itoa(id), map[string]interface{}{
		"set_date": "2026-10-03",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "2026-10-24", dataOf(t, body)["expected_hatch_date"])
}

func TestGetAndDelete(t *testing.T) {
	router, _ := newTestRouter(t)

	rr, body := do(t, router, http.MethodGet, "/api/v1/alerts/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "temperature", dataOf(t, body)["alert_type"])

	rr, _ = do(t, router, http.MethodDelete, "/api/v1/alerts/1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, body = do(t, router, http.MethodGet, "/api/v1/alerts/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "test-request", body["request_id"])

	rr, _ = do(t, router, http.MethodDelete, "/api/v1/alerts/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = do(t, router, http.MethodGet, "/api/v1/alerts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateRequiresFields(t *testing.T) {
	router, _ := newTestRouter(t)

	rr, body := do(t, router, http.MethodPut, "/api/v1/machines/1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "no fields to update", body["error"])

	rr, body = do(t, router, http.MethodPut, "/api/v1/machines/1", map[string]interface{}{"status": "maintenance"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "maintenance", dataOf(t, body)["status"])
	assert.Equal(t, "S-01", dataOf(t, body)["machine_number"])
}

func TestServiceResources(t *testing.T) {
	svc := NewService(nil, nil)
	assert.Equal(t, []string{
		"alerts", "batches", "egg-pack-quality", "fertility-analyses", "flocks",
		"machines", "qa-readings", "residue-analyses", "units",
	}, svc.Resources())
}

func TestToRowSkipsUnsetFields(t *testing.T) {
	name := "Unit C"
	row := toRow(&unitPayload{Name: &name})
	assert.Equal(t, store.Row{"name": "Unit C"}, row)
}
