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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/assistant"
	"github.com/your-org/hatchery-assistant/internal/config"
	"github.com/your-org/hatchery-assistant/internal/records"
	"github.com/your-org/hatchery-assistant/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			err := config.WatchConfig(a.configPath, a.logger, func(updated *config.Config) {
				a.level.SetLevel(parseLevel(updated.Logging.Level))
				a.logger.Info("Log level reloaded; other settings apply on restart",
					zap.String("level", updated.Logging.Level))
			})
			if errors.Is(err, config.ErrNoConfigFile) {
				a.logger.Warn("No config file to watch; hot reload disabled")
			} else if err != nil {
				return err
			}
		}

		chat := a.assistant(db)
		srv := server.New(a.cfg.Server, server.Dependencies{
			Assistant: chat,
			Records:   records.NewService(db, a.logger.Named("records")),
			Health:    a.healthManager(db, chat),
		}, a.logger)
		return srv.Run(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the hatchery tables if they don't exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		db, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		if err := db.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		a.logger.Info("Schema is up to date", zap.String("dialect", string(db.Dialect())))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo dataset with dates relative to today",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		db, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		if err := db.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		return db.Seed(cmd.Context(), time.Now())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run one message through the chat pipeline and print the JSON reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if a.cfg.Server.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.cfg.Server.RequestTimeout)
			defer cancel()
		}

		db, err := a.openStore(ctx)
		if err != nil {
			return err
		}

		reply, err := a.assistant(db).Handle(ctx, assistant.Request{Message: strings.Join(args, " ")})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode reply: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	serveCmd.Flags().Bool("watch", false, "Reload the log level when the config file changes")
	serveCmd.Flags().Bool("migrate", false, "Apply the schema before serving")
}
