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

// Package completion calls the upstream chat-completion service in two
// phases, walking an ordered list of model candidates in each.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/your-org/hatchery-assistant/internal/tools"
)

// DefaultHistoryTurns is how many prior turns are sent to the model
const DefaultHistoryTurns = 10

// ErrCandidatesExhausted matches every ExhaustedError
var ErrCandidatesExhausted = errors.New("all model candidates failed")

// Attempt records one failed candidate call
type Attempt struct {
	Model string
	Err   error
}

// ExhaustedError is returned when every candidate in a phase failed
type ExhaustedError struct {
	Phase    Phase
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Err.Error()
	}
	return fmt.Sprintf("%s phase: %s: %s", e.Phase, ErrCandidatesExhausted, strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrCandidatesExhausted
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrCandidatesExhausted
}

// Unauthorized reports whether every attempt was rejected for credentials
func (e *ExhaustedError) Unauthorized() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	for _, a := range e.Attempts {
		var up *UpstreamError
		if !errors.As(a.Err, &up) || !up.Unauthorized() {
			return false
		}
	}
	return true
}

// Turn is one prior message of the conversation
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the running message list of one request
type Conversation struct {
	Messages []openai.ChatCompletionMessage
}

// Reply is a successful model response
type Reply struct {
	Model   string
	Message openai.ChatCompletionMessage
}

// Invocations converts the reply's tool calls into tool invocations
func (r *Reply) Invocations() []tools.Invocation {
	out := make([]tools.Invocation, 0, len(r.Message.ToolCalls))
	for _, tc := range r.Message.ToolCalls {
		out = append(out, tools.Invocation{CallID: tc.ID, Tool: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out
}

// Options configures an Orchestrator
type Options struct {
	Candidates   []Candidate
	HistoryTurns int
	Now          func() time.Time
}

// Orchestrator runs the PLAN and FINALIZE phases
type Orchestrator struct {
	client       ChatClient
	candidates   []Candidate
	specs        []tools.Spec
	tools        []openai.Tool
	historyTurns int
	now          func() time.Time
	logger       *zap.Logger
}

// NewOrchestrator creates an Orchestrator advertising the given tool specs
func NewOrchestrator(client ChatClient, specs []tools.Spec, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Candidates) == 0 {
		opts.Candidates = DefaultCandidates(nil, DefaultMaxTokens, DefaultTemperature)
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = DefaultHistoryTurns
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		client:       client,
		candidates:   opts.Candidates,
		specs:        specs,
		tools:        toolDefinitions(specs),
		historyTurns: opts.HistoryTurns,
		now:          opts.Now,
		logger:       logger,
	}
}

func toolDefinitions(specs []tools.Spec) []openai.Tool {
	out := make([]openai.Tool, len(specs))
	for i, s := range specs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema(),
			},
		}
	}
	return out
}

// Start builds the conversation: system prompt, the trimmed history and the message
func (o *Orchestrator) Start(message string, history []Turn) *Conversation {
	msgs := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(o.now(), o.specs),
	}}
	for _, t := range trimHistory(history, o.historyTurns) {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
	return &Conversation{Messages: msgs}
}

// trimHistory keeps the last n user or assistant turns with content
func trimHistory(history []Turn, n int) []Turn {
	kept := make([]Turn, 0, len(history))
	for _, t := range history {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		kept = append(kept, Turn{Role: role, Content: t.Content})
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

// AddToolResults appends the assistant's tool-call message and one tool
// message per result. Results must be in the order of plan.Invocations();
// call ids are rewritten so every tool call has a matching tool message.
func (c *Conversation) AddToolResults(plan *Reply, results []tools.Result) {
	assistant := plan.Message
	assistant.Role = openai.ChatMessageRoleAssistant
	calls := make([]openai.ToolCall, len(assistant.ToolCalls))
	copy(calls, assistant.ToolCalls)
	for i := range calls {
		if i < len(results) {
			calls[i].ID = results[i].CallID
		}
		if calls[i].Type == "" {
			calls[i].Type = openai.ToolTypeFunction
		}
	}
	assistant.ToolCalls = calls
	c.Messages = append(c.Messages, assistant)

	for _, r := range results {
		c.Messages = append(c.Messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    r.ModelContent(),
			ToolCallID: r.CallID,
		})
	}
}

// Plan asks the model which tools to call
func (o *Orchestrator) Plan(ctx context.Context, conv *Conversation) (*Reply, error) {
	return o.run(ctx, PhasePlan, conv)
}

// Finalize asks for the final answer. No tools are offered.
func (o *Orchestrator) Finalize(ctx context.Context, conv *Conversation) (*Reply, error) {
	return o.run(ctx, PhaseFinalize, conv)
}

func (o *Orchestrator) run(ctx context.Context, phase Phase, conv *Conversation) (*Reply, error) {
	attempts := make([]Attempt, 0, len(o.candidates))
	for _, cand := range o.candidates {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Model: cand.Model, Err: err})
			break
		}

		req := openai.ChatCompletionRequest{
			Model:    cand.Model,
			Messages: conv.Messages,
		}
		if phase == PhasePlan && len(o.tools) > 0 {
			req.Tools = o.tools
			req.ToolChoice = "auto"
		}
		if cand.Shape != nil {
			cand.Shape(phase, &req)
		}

		start := time.Now()
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err == nil && len(resp.Choices) == 0 {
			err = errors.New("no choices returned")
		}
		if err != nil {
			upErr := handleAPIError(cand.Model, err)
			o.logger.Warn("Model candidate failed",
				zap.String("phase", string(phase)),
				zap.String("model", cand.Model),
				zap.Int("status_code", upErr.StatusCode),
				zap.Duration("processing_time", time.Since(start)),
				zap.Error(err),
			)
			attempts = append(attempts, Attempt{Model: cand.Model, Err: upErr})
			continue
		}

		msg := resp.Choices[0].Message
		o.logger.Info("Model candidate succeeded",
			zap.String("phase", string(phase)),
			zap.String("model", cand.Model),
			zap.Int("tool_calls", len(msg.ToolCalls)),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
			zap.Duration("processing_time", time.Since(start)),
		)
		return &Reply{Model: cand.Model, Message: msg}, nil
	}

	o.logger.Error("All model candidates failed",
		zap.String("phase", string(phase)),
		zap.Int("attempts", len(attempts)),
	)
	return nil, &ExhaustedError{Phase: phase, Attempts: attempts}
}
