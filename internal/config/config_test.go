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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CONFIG_PATH", "OPENAI_API_KEY", "OPENAI_ENDPOINT", "OPENAI_MODELS", "DATABASE_URL",
		"DATABASE_DRIVER", "PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
openai:
  apikey: "sk-test-key"  # pragma: allowlist secret
  models: ["gpt-4o", "gpt-4o-mini"]
  max_tokens: 900
  temperature: 0.1
server:
  port: 9090
  mode: "debug"
  request_timeout: "45s"
store:
  driver: "sqlite3"
  dsn: ":memory:"
analytics:
  history_turns: 6
  tool_concurrency: 2
  min_groups: 2
  unknown_retry_fraction: 0.3
  unknown_dominance_fraction: 0.6
  health_sentinel: "__ping__"
logging:
  level: "debug"
  format: "text"
  output: "stdout"
`)

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.OpenAI.APIKey != "sk-test-key" {
		t.Errorf("Expected OpenAI API key 'sk-test-key', got '%s'", config.OpenAI.APIKey)
	}
	if strings.Join(config.OpenAI.Models, ",") != "gpt-4o,gpt-4o-mini" {
		t.Errorf("Unexpected models %v", config.OpenAI.Models)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", config.Server.Port)
	}
	if config.Server.RequestTimeout != 45*time.Second {
		t.Errorf("Expected request timeout 45s, got %s", config.Server.RequestTimeout)
	}
	if config.Analytics.MinGroups != 2 {
		t.Errorf("Expected min_groups 2, got %d", config.Analytics.MinGroups)
	}
	if config.Analytics.HealthSentinel != "__ping__" {
		t.Errorf("Expected sentinel '__ping__', got '%s'", config.Analytics.HealthSentinel)
	}
	if config.OpenAI.Temperature != 0.1 {
		t.Errorf("Expected temperature 0.1, got %f", config.OpenAI.Temperature)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	config, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults to load without a file, got %v", err)
	}

	if config.OpenAI.APIKey != "" {
		t.Errorf("Expected no API key, got '%s'", config.OpenAI.APIKey)
	}
	if config.OpenAI.Endpoint != "https://api.openai.com/v1" {
		t.Errorf("Unexpected endpoint %s", config.OpenAI.Endpoint)
	}
	if len(config.OpenAI.Models) != 3 || config.OpenAI.Models[0] != "gpt-4o-mini" {
		t.Errorf("Unexpected default models %v", config.OpenAI.Models)
	}
	if config.Store.Driver != "sqlite3" {
		t.Errorf("Expected sqlite3 driver, got %s", config.Store.Driver)
	}
	if config.Server.Port != 8080 || config.Server.RequestTimeout != time.Minute {
		t.Errorf("Unexpected server defaults %+v", config.Server)
	}
	if config.Analytics.UnknownRetryFraction != 0.2 || config.Analytics.UnknownDominanceFraction != 0.5 {
		t.Errorf("Unexpected analytics defaults %+v", config.Analytics)
	}
	if config.Analytics.ToolTimeout != 15*time.Second {
		t.Errorf("Expected 15s tool timeout, got %v", config.Analytics.ToolTimeout)
	}
	if config.Analytics.HealthSentinel != "__health_check__" {
		t.Errorf("Unexpected sentinel %s", config.Analytics.HealthSentinel)
	}
	if config.Logging.Level != "info" || config.Logging.Format != "json" {
		t.Errorf("Unexpected logging defaults %+v", config.Logging)
	}
}

func TestEnvironmentVariableOverrides(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, `
openai:
  apikey: "sk-default-key"
store:
  dsn: ":memory:"
logging:
  level: "info"
  format: "json"
`)

	t.Setenv("OPENAI_API_KEY", "sk-env-key")
	t.Setenv("OPENAI_MODELS", "gpt-4o, gpt-3.5-turbo ,")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://hatchery:secret@db:5432/hatchery") // pragma: allowlist secret
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HATCHERY_ANALYTICS_MIN_GROUPS", "3")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.OpenAI.APIKey != "sk-env-key" {
		t.Errorf("Expected OpenAI API key from env 'sk-env-key', got '%s'", config.OpenAI.APIKey)
	}
	if strings.Join(config.OpenAI.Models, ",") != "gpt-4o,gpt-3.5-turbo" {
		t.Errorf("Unexpected models from env %v", config.OpenAI.Models)
	}
	if config.Store.Driver != "pgx" || !strings.HasPrefix(config.Store.DSN, "postgres://") {
		t.Errorf("Unexpected store from env %+v", config.Store)
	}
	if config.Server.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", config.Server.Port)
	}
	if config.Logging.Level != "debug" || config.Logging.Format != "text" {
		t.Errorf("Unexpected logging from env %+v", config.Logging)
	}
	if config.Analytics.MinGroups != 3 {
		t.Errorf("Expected prefixed env override of min_groups, got %d", config.Analytics.MinGroups)
	}
}

func TestConfigValidation(t *testing.T) {
	const memory = "store:\n  dsn: \":memory:\"\n"
	tests := []struct {
		name        string
		content     string
		expectField string
	}{
		{"invalid log level", memory + "logging:\n  level: \"verbose\"\n", "logging.level"},
		{"invalid log format", memory + "logging:\n  format: \"xml\"\n", "logging.format"},
		{"unknown driver", "store:\n  driver: \"mysql\"\n  dsn: \"mysql://db\"\n", "store.driver"},
		{"temperature out of range", memory + "openai:\n  temperature: 3\n", "openai.temperature"},
		{"retry fraction out of range", memory + "analytics:\n  unknown_retry_fraction: 1.5\n", "analytics.unknown_retry_fraction"},
		{"blank sentinel", memory + "analytics:\n  health_sentinel: \"  \"\n", "analytics.health_sentinel"},
		{"zero concurrency", memory + "analytics:\n  tool_concurrency: 0\n", "analytics.tool_concurrency"},
		{"sqlite directory missing", "store:\n  dsn: \"/nonexistent/dir/hatchery.db\"\n", "store.dsn"},
		{"invalid mode", memory + "server:\n  mode: \"prod\"\n", "server.mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfigValue) {
				t.Errorf("Expected ErrInvalidConfigValue, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.expectField) {
				t.Errorf("Expected error to mention %s, got %v", tt.expectField, err)
			}
		})
	}
}

func TestMissingAPIKeyIsNotALoadError(t *testing.T) {
	clearEnv(t)
	config, err := Load(writeConfig(t, "store:\n  dsn: \":memory:\"\n"))
	if err != nil {
		t.Fatalf("Expected config without API key to load, got %v", err)
	}
	if config.OpenAI.APIKey != "" {
		t.Errorf("Expected empty API key, got %s", config.OpenAI.APIKey)
	}
}

func TestMaskSensitiveValues(t *testing.T) {
	config := &Config{
		OpenAI: OpenAIConfig{APIKey: "sk-1234567890abcdef", Models: []string{"gpt-4o"}}, // pragma: allowlist secret
		Store:  StoreConfig{Driver: "pgx", DSN: "postgres://user:secret@db/hatchery"},  // pragma: allowlist secret
	}

	masked := config.MaskSensitiveValues()

	if masked.OpenAI.APIKey != "sk-12345***********" {
		t.Errorf("Expected masked API key, got %s", masked.OpenAI.APIKey)
	}
	if !strings.HasPrefix(masked.Store.DSN, "postgres") || strings.Contains(masked.Store.DSN, "secret") {
		t.Errorf("Expected masked DSN, got %s", masked.Store.DSN)
	}
	if config.OpenAI.APIKey != "sk-1234567890abcdef" { // pragma: allowlist secret
		t.Error("Original config should not be modified")
	}

	masked.OpenAI.Models[0] = "changed"
	if config.OpenAI.Models[0] != "gpt-4o" {
		t.Error("Masked copy should not share the models slice")
	}
}

func TestConfigPathEnvironmentVariable(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, "server:\n  port: 9191\nstore:\n  dsn: \":memory:\"\n")
	t.Setenv("CONFIG_PATH", configPath)

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config via CONFIG_PATH: %v", err)
	}
	if config.Server.Port != 9191 {
		t.Errorf("Expected port from CONFIG_PATH file, got %d", config.Server.Port)
	}

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(""); err == nil {
		t.Error("Expected error for missing CONFIG_PATH file")
	}
}

func TestLoadWithOptions(t *testing.T) {
	clearEnv(t)
	configPath := writeConfig(t, "logging:\n  level: \"verbose\"\n")

	if _, err := LoadWithOptions(LoadOptions{ConfigPath: configPath, ValidateRequired: true}); err == nil {
		t.Error("Expected validation error with ValidateRequired")
	}

	config, err := LoadWithOptions(LoadOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Expected no error without validation, got %v", err)
	}
	if config.Logging.Level != "verbose" {
		t.Errorf("Expected raw value 'verbose', got %s", config.Logging.Level)
	}
}

func TestWatchConfigRequiresFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	if err := WatchConfig("", nil, func(*Config) {}); !errors.Is(err, ErrNoConfigFile) {
		t.Errorf("Expected ErrNoConfigFile, got %v", err)
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "store.dsn", Message: "dsn is required"}
	expected := "configuration validation failed for field 'store.dsn': dsn is required"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "12345678*"},
	}
	for _, tt := range tests {
		if got := maskValue(tt.input); got != tt.expected {
			t.Errorf("maskValue(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
