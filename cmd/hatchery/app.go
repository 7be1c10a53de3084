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

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/hatchery-assistant/internal/assistant"
	"github.com/your-org/hatchery-assistant/internal/completion"
	"github.com/your-org/hatchery-assistant/internal/config"
	"github.com/your-org/hatchery-assistant/internal/health"
	"github.com/your-org/hatchery-assistant/internal/retrieval"
	"github.com/your-org/hatchery-assistant/internal/store"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

// app holds the wiring shared by every subcommand
type app struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	level      zap.AtomicLevel
	db         *store.DB
}

// newApp loads configuration and builds the logger
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, level, err := initializeLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	masked := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("command", cmd.Name()),
		zap.String("version", version),
		zap.Strings("models", masked.OpenAI.Models),
		zap.String("openai_endpoint", masked.OpenAI.Endpoint),
		zap.String("openai_api_key", masked.OpenAI.APIKey),
		zap.String("store_driver", masked.Store.Driver),
		zap.String("store_dsn", masked.Store.DSN),
	)

	return &app{cfg: cfg, configPath: configPath, logger: logger, level: level}, nil
}

// openStore connects to the configured database and checks it answers
func (a *app) openStore(ctx context.Context) (*store.DB, error) {
	db, err := store.Open(a.cfg.Store.Driver, a.cfg.Store.DSN, a.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// assistant builds the chat pipeline. A missing or malformed API key leaves
// the client unset; chat requests then fail with a configuration error.
func (a *app) assistant(db *store.DB) *assistant.Service {
	var client completion.ChatClient
	if c, err := completion.NewClient(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Endpoint); err != nil {
		a.logger.Warn("OpenAI client not configured", zap.Error(err))
	} else {
		client = c
	}

	analytics := a.cfg.Analytics
	executor := tools.NewExecutor(db, tools.Options{
		Concurrency: analytics.ToolConcurrency,
		Timeout:     analytics.ToolTimeout,
		Planner: retrieval.Config{
			MinGroups:            analytics.MinGroups,
			RetryUnknownFraction: analytics.UnknownRetryFraction,
			MaxUnknownFraction:   analytics.UnknownDominanceFraction,
		},
	}, a.logger.Named("tools"))

	orchestrator := completion.NewOrchestrator(client, executor.Specs(), completion.Options{
		Candidates:   completion.DefaultCandidates(a.cfg.OpenAI.Models, a.cfg.OpenAI.MaxTokens, float32(a.cfg.OpenAI.Temperature)),
		HistoryTurns: analytics.HistoryTurns,
	}, a.logger.Named("completion"))

	return assistant.NewService(orchestrator, executor, assistant.Options{
		APIKey:         a.cfg.OpenAI.APIKey,
		HealthSentinel: analytics.HealthSentinel,
	}, a.logger.Named("assistant"))
}

// healthManager registers the store and upstream checks
func (a *app) healthManager(db *store.DB, chat *assistant.Service) *health.Manager {
	manager := health.NewManager("hatchery-assistant", version, a.logger)
	manager.AddChecker("store", health.DatabaseHealthChecker(string(db.Dialect()), db.Ping))
	manager.AddChecker("openai", health.UpstreamConfiguredChecker(a.cfg.OpenAI.Models, chat.Configured))
	return manager
}

// initializeLogger creates a logger based on configuration settings. The
// returned level can be changed at runtime.
func initializeLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	var zapConfig zap.Config

	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level := zap.NewAtomicLevelAt(parseLevel(cfg.Logging.Level))
	zapConfig.Level = level

	if cfg.Logging.Output == "file" {
		zapConfig.OutputPaths = []string{"hatchery.log"}
		zapConfig.ErrorOutputPaths = []string{"hatchery.log"}
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, level, err
	}
	return logger, level, nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
