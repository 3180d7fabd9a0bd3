// Package generator renders an enriched alert and its retrieved runbook
// chunks into a Checklist through an LLM, with a deterministic Markdown
// fallback when the model ignores the strict-JSON instruction.
package generator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/llm"
	"github.com/triagekit/triagekit/internal/models"
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 4096
)

// Generator produces checklists from enriched contexts.
type Generator struct {
	provider llm.Provider
	now      func() time.Time
}

// New creates a generator backed by the given provider.
func New(provider llm.Provider) *Generator {
	return &Generator{provider: provider, now: time.Now}
}

// llmChecklist is the schema the model is asked to emit.
type llmChecklist struct {
	Summary string `json:"summary"`
	Steps   []struct {
		Order         int      `json:"order"`
		Instruction   string   `json:"instruction"`
		Rationale     string   `json:"rationale"`
		CurrentValue  string   `json:"currentValue"`
		ExpectedValue string   `json:"expectedValue"`
		Priority      string   `json:"priority"`
		Commands      []string `json:"commands"`
	} `json:"steps"`
}

// Generate composes the prompt, invokes the LLM, and parses the structured
// output. LLM transport errors propagate; parse failures never error, they
// fall back to the Markdown parser.
func (g *Generator) Generate(ctx context.Context, ec *models.EnrichedContext, chunks []models.RetrievedChunk) (*models.Checklist, error) {
	resp, err := g.provider.GenerateText(ctx, llm.GenerateRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(ec, chunks),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return nil, errors.Providerf("generate_checklist", g.provider.ProviderID(), err)
	}

	steps, summary, ok := parseStrictJSON(resp.Content)
	if !ok {
		log.Warn().
			Str("alertId", ec.Alert.ID).
			Str("provider", g.provider.ProviderID()).
			Msg("LLM output is not valid checklist JSON, using markdown fallback")
		steps = parseMarkdownFallback(resp.Content)
		summary = fallbackSummary(ec)
	}
	renumber(steps)

	return &models.Checklist{
		AlertID:         ec.Alert.ID,
		Summary:         summary,
		Steps:           steps,
		SourceRunbooks:  distinctRunbooks(chunks),
		GeneratedAt:     g.now(),
		LLMProviderUsed: g.provider.ProviderID(),
	}, nil
}

// parseStrictJSON attempts the strict parse. Models frequently wrap JSON in a
// code fence; the fence is stripped before parsing.
func parseStrictJSON(content string) ([]models.ChecklistStep, string, bool) {
	trimmed := stripCodeFence(content)

	var parsed llmChecklist
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, "", false
	}
	if len(parsed.Steps) == 0 {
		return nil, "", false
	}

	steps := make([]models.ChecklistStep, 0, len(parsed.Steps))
	for _, s := range parsed.Steps {
		if strings.TrimSpace(s.Instruction) == "" {
			return nil, "", false
		}
		commands := s.Commands
		if commands == nil {
			commands = []string{}
		}
		steps = append(steps, models.ChecklistStep{
			Order:         s.Order,
			Instruction:   s.Instruction,
			Rationale:     s.Rationale,
			CurrentValue:  s.CurrentValue,
			ExpectedValue: s.ExpectedValue,
			Priority:      normalizePriority(s.Priority),
			Commands:      commands,
		})
	}
	return steps, parsed.Summary, true
}

// parseMarkdownFallback maps numbered lines to medium-priority steps. It is
// pure: no re-prompting, so output is deterministic under test. A response
// with no usable line becomes a single diagnostic step carrying the raw text.
func parseMarkdownFallback(content string) []models.ChecklistStep {
	var steps []models.ChecklistStep
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		instruction := stripListMarker(line)
		if instruction == "" {
			continue
		}
		steps = append(steps, models.ChecklistStep{
			Instruction: instruction,
			Priority:    models.PriorityMedium,
			Commands:    []string{},
		})
	}

	if len(steps) == 0 {
		raw := strings.TrimSpace(content)
		if raw == "" {
			raw = "(empty LLM response)"
		}
		steps = []models.ChecklistStep{{
			Instruction: "Review raw model output: " + raw,
			Priority:    models.PriorityMedium,
			Commands:    []string{},
		}}
	}
	return steps
}

// stripListMarker removes a leading "1.", "2)", "-" or "*" marker.
func stripListMarker(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:])
	}
	return line
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func normalizePriority(p string) models.Priority {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "HIGH":
		return models.PriorityHigh
	case "LOW":
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// renumber enforces steps[i].order = i+1 regardless of what the model emitted.
func renumber(steps []models.ChecklistStep) {
	for i := range steps {
		steps[i].Order = i + 1
	}
}

// distinctRunbooks derives the duplicate-free source list in first-appearance
// order.
func distinctRunbooks(chunks []models.RetrievedChunk) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, rc := range chunks {
		path := rc.Chunk.RunbookPath
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}

func fallbackSummary(ec *models.EnrichedContext) string {
	return "Troubleshooting checklist for: " + ec.Alert.Title
}
