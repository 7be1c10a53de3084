// Package intent provides deterministic keyword matchers that decide whether
// a message asks for a chart, which chart family it names, and whether a
// topic-specific visualization should be returned without a final model call.
package intent

import (
	"strings"
	"unicode"

	"github.com/your-org/hatchery-assistant/internal/charts"
	"github.com/your-org/hatchery-assistant/internal/tools"
)

// NegationWindow is how many words before a keyword are checked for a negation
const NegationWindow = 2

// MinAutoRows is the row count above which a result is charted without a topic match
const MinAutoRows = 3

// Bundle names a smart-default chart bundle
type Bundle string

// Smart-default bundles
const (
	BundleBatch     Bundle = "batch"
	BundleFertility Bundle = "fertility"
	BundleMachine   Bundle = "machine"
)

// Decision is a smart-default match: the bundle and the tool result to chart
type Decision struct {
	Bundle Bundle
	Result tools.Result
}

// Classifier holds the keyword tables used by the matchers
type Classifier struct {
	familyKeywords  map[charts.ChartType][]string
	visualKeywords  []string
	negations       map[string]bool
	articles        map[string]bool
	batchTopics     []string
	batchQualifiers []string
	batchOverrides  []string
	fertilityTopics []string
}

// NewClassifier creates a Classifier with the built-in keyword tables
func NewClassifier() *Classifier {
	return &Classifier{
		familyKeywords: map[charts.ChartType][]string{
			charts.Bar:     {"bar", "bars", "column", "columns", "histogram"},
			charts.Line:    {"line", "lines", "trend", "trends", "over time"},
			charts.Area:    {"area chart", "area graph", "area plot"},
			charts.Pie:     {"pie", "donut", "doughnut"},
			charts.Radar:   {"radar", "spider"},
			charts.Scatter: {"scatter", "xy", "x-y"},
		},
		visualKeywords: []string{
			"compare", "comparison", "vs", "versus", "between",
			"chart", "graph", "plot", "visualize", "visualise", "pie", "bar", "line",
			"trend", "trends", "over time", "pattern", "patterns",
			"breakdown", "distribution", "analyze", "analyse", "analysis",
			"show me", "fertility", "hatch", "performance",
		},
		negations: map[string]bool{
			"not": true, "no": true, "without": true, "dont": true, "never": true,
		},
		articles:        map[string]bool{"a": true, "an": true, "the": true},
		batchTopics:     []string{"batch", "batches"},
		batchQualifiers: []string{"overview", "summary", "status"},
		batchOverrides:  []string{"dashboard", "recent"},
		fertilityTopics: []string{"fertility", "hatch"},
	}
}

// Normalize lowercases a message, drops apostrophes and reduces every other
// non-alphanumeric rune except '-' to single spaces
func Normalize(msg string) string {
	var b strings.Builder
	b.Grow(len(msg))
	for _, r := range strings.ToLower(msg) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func words(msg string) []string {
	return strings.Fields(Normalize(msg))
}

// DetectChartType returns the first non-negated chart family named in the
// message, scanning families in charts.ScanOrder
func (c *Classifier) DetectChartType(msg string) (charts.ChartType, bool) {
	w := words(msg)
	for _, family := range charts.ScanOrder {
		if c.mentionsFamily(w, family) {
			return family, true
		}
	}
	return "", false
}

// RequestedFamilies returns every non-negated chart family named in the message
func (c *Classifier) RequestedFamilies(msg string) []charts.ChartType {
	w := words(msg)
	var out []charts.ChartType
	for _, family := range charts.ScanOrder {
		if c.mentionsFamily(w, family) {
			out = append(out, family)
		}
	}
	return out
}

func (c *Classifier) mentionsFamily(w []string, family charts.ChartType) bool {
	for _, kw := range c.familyKeywords[family] {
		for _, at := range indexPhrase(w, kw) {
			if !c.negated(w, at) {
				return true
			}
		}
	}
	return false
}

// negated reports whether one of the NegationWindow words before position at,
// skipping articles, is a negation
func (c *Classifier) negated(w []string, at int) bool {
	seen := 0
	for i := at - 1; i >= 0 && seen < NegationWindow; i-- {
		if c.articles[w[i]] {
			continue
		}
		if c.negations[w[i]] {
			return true
		}
		seen++
	}
	return false
}

// VisualizationWarranted reports whether the message carries a visualization
// keyword and at least one tool call succeeded
func (c *Classifier) VisualizationWarranted(msg string, results []tools.Result) bool {
	if !anySucceeded(results) {
		return false
	}
	return containsAny(words(msg), c.visualKeywords)
}

// SmartDefault picks a chart bundle from topic words and the shape of the tool
// results. The second return is false when no rule applies.
func (c *Classifier) SmartDefault(msg string, results []tools.Result) (Decision, bool) {
	w := words(msg)

	batchTopic := containsAny(w, c.batchTopics) && containsAny(w, c.batchQualifiers)
	if batchTopic || containsAny(w, c.batchOverrides) {
		if r, ok := firstOfKind(results, tools.KindBatchOverview, tools.KindRecentActivity); ok {
			return Decision{Bundle: BundleBatch, Result: r}, true
		}
	}

	if containsAny(w, c.fertilityTopics) {
		if r, ok := firstOfKind(results, tools.KindFertility); ok {
			return Decision{Bundle: BundleFertility, Result: r}, true
		}
	}

	for _, r := range results {
		if !charts.Chartable(r) || r.Payload.RowCount() <= MinAutoRows {
			continue
		}
		switch r.Payload.Kind() {
		case tools.KindBatchOverview, tools.KindRecentActivity:
			return Decision{Bundle: BundleBatch, Result: r}, true
		case tools.KindFertility:
			return Decision{Bundle: BundleFertility, Result: r}, true
		case tools.KindMachineStatus:
			return Decision{Bundle: BundleMachine, Result: r}, true
		}
	}
	return Decision{}, false
}

func firstOfKind(results []tools.Result, kinds ...tools.Kind) (tools.Result, bool) {
	for _, r := range results {
		if !charts.Chartable(r) {
			continue
		}
		for _, k := range kinds {
			if r.Payload.Kind() == k {
				return r, true
			}
		}
	}
	return tools.Result{}, false
}

func anySucceeded(results []tools.Result) bool {
	for _, r := range results {
		if r.OK {
			return true
		}
	}
	return false
}

func containsAny(w []string, phrases []string) bool {
	for _, p := range phrases {
		if len(indexPhrase(w, p)) > 0 {
			return true
		}
	}
	return false
}

// indexPhrase returns the word positions where phrase starts
func indexPhrase(w []string, phrase string) []int {
	parts := strings.Fields(phrase)
	if len(parts) == 0 {
		return nil
	}
	var at []int
	for i := 0; i+len(parts) <= len(w); i++ {
		match := true
		for j, p := range parts {
			if w[i+j] != p {
				match = false
				break
			}
		}
		if match {
			at = append(at, i)
		}
	}
	return at
}
