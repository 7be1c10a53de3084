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

// Package assistant runs one chat request end to end: tool planning, tool
// execution, the intent fast paths, the final model call and reply assembly.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/charts"
	"github.com/your-org/hatchery-assistant/internal/completion"
	"github.com/your-org/hatchery-assistant/internal/intent"
	"github.com/your-org/hatchery-assistant/internal/resilience"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

// DefaultHealthSentinel is the message that turns a chat request into a probe
const DefaultHealthSentinel = "__health_check__"

// Remediation texts for configuration errors
const (
	missingKeyRemediation = "The assistant is not configured: set OPENAI_API_KEY to a valid OpenAI key and restart the server."
	invalidKeyRemediation = "The assistant is misconfigured: OPENAI_API_KEY must start with \"sk-\". Update it and restart the server."
	unavailableMessage    = "The language model service is unavailable"
)

// Request is an inbound chat message
type Request struct {
	Message string            `json:"message" binding:"required"`
	History []completion.Turn `json:"history,omitempty"`
}

// Options configures a Service
type Options struct {
	APIKey         string
	HealthSentinel string
	Now            func() time.Time
}

// Service handles chat requests
type Service struct {
	orchestrator *completion.Orchestrator
	executor     *tools.Executor
	classifier   *intent.Classifier
	apiKey       string
	sentinel     string
	now          func() time.Time
	logger       *zap.Logger
}

// NewService creates a Service
func NewService(orchestrator *completion.Orchestrator, executor *tools.Executor, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HealthSentinel == "" {
		opts.HealthSentinel = DefaultHealthSentinel
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		orchestrator: orchestrator,
		executor:     executor,
		classifier:   intent.NewClassifier(),
		apiKey:       opts.APIKey,
		sentinel:     opts.HealthSentinel,
		now:          opts.Now,
		logger:       logger,
	}
}

// Configured reports whether an upstream API key of valid format is set
func (s *Service) Configured() bool {
	return completion.ValidateAPIKey(s.apiKey) == nil
}

// Probe returns the liveness reply
func (s *Service) Probe() *Probe {
	return &Probe{Status: "healthy", OpenAIConfigured: s.Configured(), Timestamp: s.now().UTC()}
}

// Handle answers one chat request. Errors are *resilience.ServiceError values.
func (s *Service) Handle(ctx context.Context, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, resilience.NewBadRequestError("message is required", nil)
	}
	if message == s.sentinel {
		return &Reply{Shape: ShapeProbe, Probe: s.Probe()}, nil
	}

	if err := completion.ValidateAPIKey(s.apiKey); err != nil {
		remediation := invalidKeyRemediation
		if errors.Is(err, completion.ErrMissingAPIKey) {
			remediation = missingKeyRemediation
		}
		s.logger.Error("Chat request rejected: upstream not configured", zap.Error(err))
		return nil, resilience.NewConfigurationError(remediation, err)
	}

	start := time.Now()
	conv := s.orchestrator.Start(message, req.History)

	plan, err := s.orchestrator.Plan(ctx, conv)
	if err != nil {
		s.logger.Error("Tool planning failed", zap.Error(err))
		return nil, resilience.NewDependencyFailureError(unavailableMessage, err)
	}

	invocations := plan.Invocations()
	if len(invocations) == 0 {
		s.logger.Info("Answered without tools", zap.String("model", plan.Model))
		return &Reply{Shape: ShapePlain, Text: plan.Message.Content}, nil
	}

	results := s.executor.ExecuteAll(ctx, invocations)
	conv.AddToolResults(plan, results)

	if reply, ok := s.fastPath(message, results, plan.Model); ok {
		s.logger.Info("Answered from fast path",
			zap.String("source", string(reply.Source)),
			zap.Duration("processing_time", time.Since(start)))
		return reply, nil
	}

	final, err := s.orchestrator.Finalize(ctx, conv)
	if err != nil {
		s.logger.Warn("Final answer failed, using fallback summary", zap.Error(err))
		return s.fallback(results), nil
	}

	reply := s.assemble(message, final, results)
	s.logger.Info("Chat request completed",
		zap.String("source", string(reply.Source)),
		zap.String("model", reply.Model),
		zap.Int("tool_calls", len(invocations)),
		zap.Duration("processing_time", time.Since(start)))
	return reply, nil
}

// fastPath returns an envelope without the final model call when the message
// names a chart family or a smart default applies
func (s *Service) fastPath(message string, results []tools.Result, model string) (*Reply, bool) {
	if family, ok := s.classifier.DetectChartType(message); ok {
		if r, ok := charts.FirstChartable(results); ok {
			if env, err := charts.Synthesize(charts.Request{Explicit: family, Result: r, Now: s.now()}); err == nil {
				return s.analytics(env, SourceExplicitIntent, model), true
			}
		}
	}

	if d, ok := s.classifier.SmartDefault(message, results); ok {
		env, err := charts.Synthesize(charts.Request{
			Requested: s.classifier.RequestedFamilies(message),
			Result:    d.Result,
			Now:       s.now(),
		})
		if err == nil {
			return s.analytics(env, SourceSmartDefault, model), true
		}
		s.logger.Debug("Smart default could not be charted", zap.String("bundle", string(d.Bundle)), zap.Error(err))
	}
	return nil, false
}

// assemble builds the reply from the final model answer
func (s *Service) assemble(message string, final *completion.Reply, results []tools.Result) *Reply {
	content := strings.TrimSpace(final.Message.Content)
	if raw, ok := isEnvelopeJSON(content); ok {
		return s.analytics(raw, SourceOpenAI, final.Model)
	}

	text := proseOf(content)
	if s.classifier.VisualizationWarranted(message, results) {
		if r, ok := charts.FirstChartable(results); ok {
			env, err := charts.Synthesize(charts.Request{
				Requested: s.classifier.RequestedFamilies(message),
				Result:    r,
				Now:       s.now(),
			})
			if err == nil {
				if text != "" {
					env.Summary = text
				}
				return s.analytics(env, SourceEnhanced, final.Model)
			}
		}
	}

	reply := &Reply{Shape: ShapeText, Text: text, Timestamp: s.now().UTC(), Source: SourceOpenAI, Model: final.Model}
	if table, ok := charts.Tabulate(results); ok {
		reply.Payload = table
		reply.Actions = charts.StandardActions()
	}
	return reply
}

func (s *Service) analytics(envelope interface{}, source Source, model string) *Reply {
	return &Reply{Shape: ShapeAnalytics, Envelope: envelope, Timestamp: s.now().UTC(), Source: source, Model: model}
}

// fallback summarizes tool results without the model
func (s *Service) fallback(results []tools.Result) *Reply {
	reply := &Reply{Shape: ShapeText, Text: Summarize(results), Timestamp: s.now().UTC(), Source: SourceFallback}
	if table, ok := charts.Tabulate(results); ok {
		reply.Payload = table
		reply.Actions = charts.StandardActions()
	}
	return reply
}
