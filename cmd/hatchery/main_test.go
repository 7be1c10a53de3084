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
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/hatchery-assistant/internal/config"
	"github.com/your-org/hatchery-assistant/internal/store"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, parseLevel(input), input)
	}
}

func TestInitializeLoggerLevelIsAdjustable(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "warn", Format: "json", Output: "stdout"}}

	logger, level, err := initializeLogger(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestMigrateAndSeedCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "hatchery.db")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", dsn)
	t.Setenv("LOG_LEVEL", "error")

	for _, args := range [][]string{{"migrate"}, {"seed"}} {
		rootCmd.SetArgs(args)
		rootCmd.SetOut(&bytes.Buffer{})
		require.NoError(t, rootCmd.Execute(), args)
	}

	db, err := store.Open("sqlite3", dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	n, err := db.From(store.TableBatches).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
