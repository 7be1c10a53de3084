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

// Package server wires the chat, health and records endpoints onto a gin router
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/assistant"
	"github.com/your-org/hatchery-assistant/internal/config"
	"github.com/your-org/hatchery-assistant/internal/health"
	"github.com/your-org/hatchery-assistant/internal/records"
	"github.com/your-org/hatchery-assistant/internal/resilience"
)

// ShutdownGrace is how long in-flight requests get to finish on shutdown
const ShutdownGrace = 10 * time.Second

// Dependencies are the services the router exposes
type Dependencies struct {
	Assistant *assistant.Service
	Records   *records.Service
	Health    *health.Manager
}

// Server is the HTTP front end
type Server struct {
	cfg       config.ServerConfig
	assistant *assistant.Service
	errors    *resilience.ErrorHandler
	engine    *gin.Engine
	logger    *zap.Logger
}

// New builds the router. Records routes are mounted only when a records
// service is supplied.
func New(cfg config.ServerConfig, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:       cfg,
		assistant: deps.Assistant,
		errors:    resilience.NewErrorHandler(logger),
		engine:    gin.New(),
		logger:    logger,
	}

	s.engine.Use(gin.Recovery(), RequestID(), RequestLogger(logger))

	if deps.Health != nil {
		s.engine.GET("/health", deps.Health.Handler())
	}

	api := s.engine.Group("/api", Timeout(cfg.RequestTimeout))
	api.POST("/chat", s.chat)
	api.GET("/chat", s.probe)

	if deps.Records != nil {
		handler := records.NewHandler(deps.Records, s.renderError, logger)
		handler.Register(api.Group("/v1"))
	}
	return s
}

// Handler returns the router for use with httptest or a custom listener
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Starting hatchery assistant server", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown did not complete", zap.Error(err))
			return srv.Close()
		}
		s.logger.Info("Server stopped gracefully")
		return nil
	}
}
