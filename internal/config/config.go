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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	// ErrNoConfigFile is returned by WatchConfig when there is no file to watch
	ErrNoConfigFile = errors.New("no configuration file found")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// EnvPrefix prefixes every automatically bound environment variable
const EnvPrefix = "HATCHERY"

// Config represents the complete application configuration
type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// OpenAIConfig contains the chat completion upstream settings
type OpenAIConfig struct {
	APIKey      string   `mapstructure:"apikey"`
	Endpoint    string   `mapstructure:"endpoint"`
	Models      []string `mapstructure:"models"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature float64  `mapstructure:"temperature"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StoreConfig selects the relational store
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AnalyticsConfig tunes the chat pipeline
type AnalyticsConfig struct {
	HistoryTurns             int           `mapstructure:"history_turns"`
	ToolConcurrency          int           `mapstructure:"tool_concurrency"`
	ToolTimeout              time.Duration `mapstructure:"tool_timeout"`
	MinGroups                int           `mapstructure:"min_groups"`
	UnknownRetryFraction     float64       `mapstructure:"unknown_retry_fraction"`
	UnknownDominanceFraction float64       `mapstructure:"unknown_dominance_fraction"`
	HealthSentinel           string        `mapstructure:"health_sentinel"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load loads configuration from defaults, an optional file and environment
// variables. Environment variables take precedence over file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{ConfigPath: configPath, ValidateRequired: true})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	found, err := setConfigFile(v, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if found {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("openai.models", []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"})
	v.SetDefault("openai.max_tokens", 1500)
	v.SetDefault("openai.temperature", 0.2)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "./hatchery.db")

	v.SetDefault("analytics.history_turns", 10)
	v.SetDefault("analytics.tool_concurrency", 4)
	v.SetDefault("analytics.tool_timeout", 15*time.Second)
	v.SetDefault("analytics.min_groups", 1)
	v.SetDefault("analytics.unknown_retry_fraction", 0.2)
	v.SetDefault("analytics.unknown_dominance_fraction", 0.5)
	v.SetDefault("analytics.health_sentinel", "__health_check__")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile points viper at the configuration file. The second return is
// false when no file was named and none exists in the default locations.
func setConfigFile(v *viper.Viper, configPath string) (bool, error) {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return false, fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return true, nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return false, fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return true, nil
	}

	for _, path := range []string{"./configs/config.yaml", "./config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			return true, nil
		}
	}
	return false, nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"OPENAI_API_KEY":  "openai.apikey",
		"OPENAI_ENDPOINT": "openai.endpoint",
		"DATABASE_URL":    "store.dsn",
		"DATABASE_DRIVER": "store.driver",
		"LOG_LEVEL":       "logging.level",
		"LOG_FORMAT":      "logging.format",
		"LOG_OUTPUT":      "logging.output",
	}
	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}

	if value := os.Getenv("OPENAI_MODELS"); value != "" {
		var models []string
		for _, m := range strings.Split(value, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		v.Set("openai.models", models)
	}
	if value := os.Getenv("PORT"); value != "" {
		if port, err := strconv.Atoi(value); err == nil {
			v.Set("server.port", port)
		}
	}
}

// validateConfig collects every invalid value. The API key is checked per
// request, not here, so the server can start and report it as unconfigured.
func validateConfig(config *Config) error {
	var errs []ValidationError

	if len(config.OpenAI.Models) == 0 {
		errs = append(errs, ValidationError{Field: "openai.models", Message: "at least one model is required"})
	}
	if config.OpenAI.MaxTokens <= 0 {
		errs = append(errs, ValidationError{Field: "openai.max_tokens", Message: "max_tokens must be greater than 0"})
	}
	if config.OpenAI.Temperature < 0 || config.OpenAI.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "openai.temperature", Message: "temperature must be between 0 and 2"})
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, ValidationError{Field: "server.port", Message: "port must be between 1 and 65535"})
	}
	validModes := []string{"debug", "release", "test"}
	if !contains(validModes, config.Server.Mode) {
		errs = append(errs, ValidationError{
			Field:   "server.mode",
			Message: fmt.Sprintf("mode must be one of: %s", strings.Join(validModes, ", ")),
		})
	}
	if config.Server.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "server.request_timeout", Message: "request_timeout must be positive"})
	}

	validDrivers := []string{"sqlite3", "pgx"}
	if !contains(validDrivers, config.Store.Driver) {
		errs = append(errs, ValidationError{
			Field:   "store.driver",
			Message: fmt.Sprintf("driver must be one of: %s", strings.Join(validDrivers, ", ")),
		})
	}
	if config.Store.DSN == "" {
		errs = append(errs, ValidationError{Field: "store.dsn", Message: "dsn is required. Set via config file or DATABASE_URL"})
	} else if config.Store.Driver == "sqlite3" && !strings.Contains(config.Store.DSN, ":memory:") {
		if err := validateDirectoryExists(filepath.Dir(config.Store.DSN)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "store.dsn",
				Message: fmt.Sprintf("database directory does not exist: %s", filepath.Dir(config.Store.DSN)),
			})
		}
	}

	a := config.Analytics
	if a.HistoryTurns <= 0 {
		errs = append(errs, ValidationError{Field: "analytics.history_turns", Message: "history_turns must be greater than 0"})
	}
	if a.ToolConcurrency <= 0 {
		errs = append(errs, ValidationError{Field: "analytics.tool_concurrency", Message: "tool_concurrency must be greater than 0"})
	}
	if a.ToolTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "analytics.tool_timeout", Message: "tool_timeout must be positive"})
	}
	if a.MinGroups <= 0 {
		errs = append(errs, ValidationError{Field: "analytics.min_groups", Message: "min_groups must be greater than 0"})
	}
	if a.UnknownRetryFraction < 0 || a.UnknownRetryFraction > 1 {
		errs = append(errs, ValidationError{Field: "analytics.unknown_retry_fraction", Message: "unknown_retry_fraction must be between 0 and 1"})
	}
	if a.UnknownDominanceFraction <= 0 || a.UnknownDominanceFraction > 1 {
		errs = append(errs, ValidationError{Field: "analytics.unknown_dominance_fraction", Message: "unknown_dominance_fraction must be greater than 0 and at most 1"})
	}
	if strings.TrimSpace(a.HealthSentinel) == "" {
		errs = append(errs, ValidationError{Field: "analytics.health_sentinel", Message: "health_sentinel must not be blank"})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}
	validOutputs := []string{"stdout", "file"}
	if !contains(validOutputs, config.Logging.Output) {
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("log output must be one of: %s", strings.Join(validOutputs, ", ")),
		})
	}

	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		return fmt.Errorf("%w:\n%s", ErrInvalidConfigValue, strings.Join(messages, "\n"))
	}
	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c
	masked.OpenAI.Models = append([]string(nil), c.OpenAI.Models...)

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Store.Driver == "pgx" && masked.Store.DSN != "" {
		masked.Store.DSN = maskValue(masked.Store.DSN)
	}
	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// WatchConfig reloads the configuration whenever the file changes and hands
// every valid reload to callback. Invalid reloads are logged and ignored.
func WatchConfig(configPath string, logger *zap.Logger, callback func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := viper.New()

	found, err := setConfigFile(v, configPath)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoConfigFile
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))

		config, err := Load(configPath)
		if err != nil {
			logger.Warn("Failed to reload config", zap.Error(err))
			return
		}
		callback(config)
	})
	v.WatchConfig()
	return nil
}
