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
	"fmt"
	"strings"
	"time"

	"github.com/your-org/hatchery-assistant/internal/tools"
)

const systemTemplate = `You are the analytics assistant for a poultry hatchery.
Today is %s.

You answer questions about batches, fertility analyses, machines and alerts.
Always use the tools to read data; never invent numbers.
Available tools:
%s
Fertility terms: fertility = fertile eggs / sample size, hatch = chicks hatched / eggs set,
HOF = hatch of fertile, HOI = hatch of injected. All are percentages between 0 and 100.

When you give the final answer, reply with a single JSON object.
For a chart-worthy answer use:
{"type": "analytics", "title": "...", "summary": "...", "charts": [{"type": "bar|line|area|pie|radar|scatter", "title": "...", "data": [...], "x_axis_key": "...", "series": [{"key": "...", "name": "..."}], "insights": "..."}], "metrics": [{"label": "...", "value": "..."}], "insights": ["..."], "recommendations": ["..."]}
Otherwise use:
{"type": "text", "response": "..."}
Only quote values that appear in the tool results.`

// SystemPrompt renders the system message for the given date and catalog
func SystemPrompt(now time.Time, specs []tools.Spec) string {
	var b strings.Builder
	for _, s := range specs {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return fmt.Sprintf(systemTemplate, now.Format("Monday, 2 January 2006"), b.String())
}
