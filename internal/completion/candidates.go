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
	"github.com/sashabaranov/go-openai"
)

// Phase is one of the two model calls made per request
type Phase string

const (
	// PhasePlan asks the model which tools to call
	PhasePlan Phase = "plan"
	// PhaseFinalize asks for the final answer with tool results in context
	PhaseFinalize Phase = "finalize"
)

// Shape adjusts a request for one candidate before it is sent
type Shape func(phase Phase, req *openai.ChatCompletionRequest)

// Candidate is one entry in the ordered model fallback list
type Candidate struct {
	Model string
	Shape Shape
}

// Default generation settings
const (
	DefaultMaxTokens   = 1500
	DefaultTemperature = 0.2
)

// DefaultModels is the fallback order used when none is configured
var DefaultModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}

// StandardShape sets token and temperature limits. FINALIZE asks for a JSON
// object so the model can return an analytics envelope.
func StandardShape(maxTokens int, temperature float32) Shape {
	return func(phase Phase, req *openai.ChatCompletionRequest) {
		req.MaxTokens = maxTokens
		req.Temperature = temperature
		if phase == PhaseFinalize {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		}
	}
}

// CompactShape halves the token budget, keeps the model's default
// temperature and asks for plain text, for models that reject JSON mode
func CompactShape(maxTokens int) Shape {
	return func(_ Phase, req *openai.ChatCompletionRequest) {
		req.MaxTokens = maxTokens / 2
		req.Temperature = 0
		req.ResponseFormat = nil
	}
}

// DefaultCandidates builds the fallback list: the first model gets the
// standard shape and every later model the compact one
func DefaultCandidates(models []string, maxTokens int, temperature float32) []Candidate {
	if len(models) == 0 {
		models = DefaultModels
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	out := make([]Candidate, 0, len(models))
	for i, m := range models {
		shape := CompactShape(maxTokens)
		if i == 0 {
			shape = StandardShape(maxTokens, temperature)
		}
		out = append(out, Candidate{Model: m, Shape: shape})
	}
	return out
}
