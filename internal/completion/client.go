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

package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// APIKeyPrefix is the prefix every upstream API key carries
const APIKeyPrefix = "sk-"

var (
	// ErrMissingAPIKey is returned when no upstream API key is configured
	ErrMissingAPIKey = errors.New("OpenAI API key is not configured")
	// ErrInvalidAPIKey is returned when the configured key is malformed
	ErrInvalidAPIKey = errors.New("OpenAI API key has an invalid format")
)

// ChatClient is the subset of the go-openai client the orchestrator needs
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ValidateAPIKey checks the key without any network call
func ValidateAPIKey(apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return ErrMissingAPIKey
	}
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return ErrInvalidAPIKey
	}
	return nil
}

// NewClient creates a go-openai client for the given key and optional endpoint
func NewClient(apiKey, endpoint string) (*openai.Client, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	config := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if endpoint != "" {
		config.BaseURL = strings.TrimRight(endpoint, "/")
	}
	return openai.NewClientWithConfig(config), nil
}

// UpstreamError is a failed call to one model candidate
type UpstreamError struct {
	Model      string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model %s failed (status %d): %s", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model %s failed: %s", e.Model, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Unauthorized reports whether the upstream rejected the credentials
func (e *UpstreamError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// handleAPIError normalizes go-openai errors into an UpstreamError
func handleAPIError(model string, err error) *UpstreamError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Model: model, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Model: model, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return &UpstreamError{Model: model, Message: err.Error(), Err: err}
}
