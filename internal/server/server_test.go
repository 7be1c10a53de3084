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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/hatchery-assistant/internal/assistant"
	"github.com/your-org/hatchery-assistant/internal/completion"
	"github.com/your-org/hatchery-assistant/internal/config"
	"github.com/your-org/hatchery-assistant/internal/health"
	"github.com/your-org/hatchery-assistant/internal/records"
	"github.com/your-org/hatchery-assistant/internal/store"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

const testKey = "sk-test1234567890abcdef" // pragma: allowlist secret

var testNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

// plainUpstream answers every completion with a short text reply
func plainUpstream(t *testing.T) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello from the hatchery."}, "finish_reason": "stop"}]
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/v1"
}

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	clock := func() time.Time { return testNow }

	db, err := store.OpenMemory(context.Background(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Seed(context.Background(), testNow))

	var client completion.ChatClient
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = plainUpstream(t)
		client = openai.NewClientWithConfig(cfg)
	}

	executor := tools.NewExecutor(db, tools.Options{Now: clock}, logger)
	orch := completion.NewOrchestrator(client, executor.Specs(), completion.Options{
		Candidates: completion.DefaultCandidates([]string{"gpt-4o-mini"}, 800, 0.2),
		Now:        clock,
	}, logger)
	chat := assistant.NewService(orch, executor, assistant.Options{APIKey: apiKey, Now: clock}, logger)

	manager := health.NewManager("hatchery-assistant", "test", logger)
	manager.AddChecker("store", health.DatabaseHealthChecker(string(db.Dialect()), db.Ping))
	manager.AddChecker("openai", health.UpstreamConfiguredChecker([]string{"gpt-4o-mini"}, chat.Configured))

	return New(config.ServerConfig{Mode: gin.TestMode, RequestTimeout: 5 * time.Second}, Dependencies{
		Assistant: chat,
		Records:   records.NewService(db, logger),
		Health:    manager,
	}, logger)
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestChatPlainReply(t *testing.T) {
	s := newTestServer(t, testKey)

	rr := serve(s, http.MethodPost, "/api/chat", `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"response": "Hello from the hatchery.", "actions": []}`, rr.Body.String())

	_, err := uuid.Parse(rr.Header().Get(RequestIDHeader))
	assert.NoError(t, err, "every response carries a request id")
}

func TestChatHealthSentinelAndProbe(t *testing.T) {
	s := newTestServer(t, "")

	for _, rr := range []*httptest.ResponseRecorder{
		serve(s, http.MethodPost, "/api/chat", `{"message": "__health_check__"}`),
		serve(s, http.MethodGet, "/api/chat", ""),
	} {
		require.Equal(t, http.StatusOK, rr.Code)
		var probe map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &probe))
		assert.Equal(t, "healthy", probe["status"])
		assert.Equal(t, false, probe["openai_configured"])
		assert.Contains(t, probe, "timestamp")
	}
}

func TestChatMissingKeyIsConfigurationError(t *testing.T) {
	s := newTestServer(t, "")

	rr := serve(s, http.MethodPost, "/api/chat", `{"message": "how are the batches doing?"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["response"], "OPENAI_API_KEY")
	assert.Equal(t, "CONFIGURATION_ERROR", body["code"])
	assert.Equal(t, rr.Header().Get(RequestIDHeader), body["request_id"])
}

func TestChatRejectsBadBody(t *testing.T) {
	s := newTestServer(t, testKey)

	for _, body := range []string{`not json`, `{}`, `{"message": ""}`} {
		rr := serve(s, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, testKey)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set(RequestIDHeader, id)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, id, rr.Header().Get(RequestIDHeader))
}

func TestHealthEndpointDegradedWithoutKey(t *testing.T) {
	s := newTestServer(t, "")

	rr := serve(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body health.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, health.StatusDegraded, body.Status)
	assert.Equal(t, health.StatusHealthy, body.Dependencies["store"].Status)
}

func TestRecordsMounted(t *testing.T) {
	s := newTestServer(t, testKey)

	rr := serve(s, http.MethodGet, "/api/v1/machines?status=operational", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rr = serve(s, http.MethodGet, "/api/v1/machines/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTimeoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/slow", Timeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.String(http.StatusGatewayTimeout, c.Request.Context().Err().Error())
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, context.DeadlineExceeded.Error(), rr.Body.String())
}
