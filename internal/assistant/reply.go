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

package assistant

import (
	"encoding/json"
	"time"

	"github.com/your-org/hatchery-assistant/internal/charts"
)

// Source names the pipeline stage that produced a reply
type Source string

const (
	SourceExplicitIntent Source = "explicit_intent"
	SourceSmartDefault   Source = "smart_default"
	SourceOpenAI         Source = "openai"
	SourceFallback       Source = "fallback"
	SourceEnhanced       Source = "enhanced"
)

// Shape is one of the wire shapes a reply can take
type Shape int

const (
	// ShapePlain is {response, actions: []}
	ShapePlain Shape = iota
	// ShapeText is {response, actions?, payload?, timestamp, source}
	ShapeText
	// ShapeAnalytics is {response: envelope, timestamp, source}
	ShapeAnalytics
	// ShapeProbe is {status, openai_configured, timestamp}
	ShapeProbe
)

// Probe is the liveness reply to the health sentinel and GET /api/chat
type Probe struct {
	Status           string    `json:"status"`
	OpenAIConfigured bool      `json:"openai_configured"`
	Timestamp        time.Time `json:"timestamp"`
}

// Reply is the result of one chat request
type Reply struct {
	Shape     Shape
	Text      string
	Envelope  interface{}
	Actions   []charts.Action
	Payload   interface{}
	Timestamp time.Time
	Source    Source
	Model     string
	Probe     *Probe
}

type plainBody struct {
	Response string          `json:"response"`
	Actions  []charts.Action `json:"actions"`
}

type textBody struct {
	Response  string          `json:"response"`
	Actions   []charts.Action `json:"actions,omitempty"`
	Payload   interface{}     `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Source    Source          `json:"source"`
	Model     string          `json:"model,omitempty"`
}

type analyticsBody struct {
	Response  interface{} `json:"response"`
	Timestamp time.Time   `json:"timestamp"`
	Source    Source      `json:"source"`
	Model     string      `json:"model,omitempty"`
}

// MarshalJSON renders the reply in its shape
func (r Reply) MarshalJSON() ([]byte, error) {
	switch r.Shape {
	case ShapePlain:
		actions := r.Actions
		if actions == nil {
			actions = []charts.Action{}
		}
		return json.Marshal(plainBody{Response: r.Text, Actions: actions})
	case ShapeAnalytics:
		return json.Marshal(analyticsBody{Response: r.Envelope, Timestamp: r.Timestamp, Source: r.Source, Model: r.Model})
	case ShapeProbe:
		return json.Marshal(r.Probe)
	default:
		return json.Marshal(textBody{
			Response: r.Text, Actions: r.Actions, Payload: r.Payload,
			Timestamp: r.Timestamp, Source: r.Source, Model: r.Model,
		})
	}
}

// isEnvelopeJSON reports whether content is a JSON object whose type is
// analytics or chart
func isEnvelopeJSON(content string) (json.RawMessage, bool) {
	var probe struct {
		Type string `json:"type"`
	}
	raw := json.RawMessage(content)
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false
	}
	if probe.Type == charts.EnvelopeType || probe.Type == "chart" {
		return raw, true
	}
	return nil, false
}

// proseOf extracts the answer text from a FINALIZE reply. JSON-mode replies
// carry it under "response" or "answer"; anything else is used verbatim.
func proseOf(content string) string {
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(content), &body); err == nil {
		for _, key := range []string{"response", "answer", "text", "message"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return content
}
