package generator

import (
	"fmt"
	"strings"

	"github.com/triagekit/triagekit/internal/models"
)

// unknownField is rendered for any alert-context placeholder with no value.
const unknownField = "unknown"

const systemPrompt = `You are an experienced site reliability engineer producing troubleshooting checklists.
The user message contains three sections: ALERT CONTEXT, RUNBOOK SECTIONS, and INSTRUCTIONS.
Ground every step in the runbook sections; prefer concrete commands over generalities.
Respond with strict JSON only, no prose outside the JSON document.`

const instructions = `Produce a prioritized troubleshooting checklist for the alert above.
Respond with strict JSON matching this schema exactly:
{
  "summary": "one-paragraph diagnosis summary",
  "steps": [
    {
      "order": 1,
      "instruction": "what to do",
      "rationale": "why this step helps",
      "currentValue": "observed value if known, else empty",
      "expectedValue": "healthy value if known, else empty",
      "priority": "HIGH" | "MEDIUM" | "LOW",
      "commands": ["shell command", "..."]
    }
  ]
}
Order steps from most to least urgent. Output JSON only.`

// buildPrompt composes the user message: ALERT CONTEXT with its five fixed
// placeholders, RUNBOOK SECTIONS in finalScore order, then INSTRUCTIONS.
func buildPrompt(ec *models.EnrichedContext, chunks []models.RetrievedChunk) string {
	var b strings.Builder

	b.WriteString("ALERT CONTEXT\n")
	fmt.Fprintf(&b, "Title: %s\n", orUnknown(ec.Alert.Title))
	fmt.Fprintf(&b, "Severity: %s\n", orUnknown(string(ec.Alert.Severity)))
	fmt.Fprintf(&b, "Message: %s\n", orUnknown(ec.Alert.Message))

	displayName, shape := unknownField, unknownField
	if ec.Resource != nil {
		displayName = orUnknown(ec.Resource.DisplayName)
		shape = orUnknown(ec.Resource.Shape)
	}
	fmt.Fprintf(&b, "Resource: %s\n", displayName)
	fmt.Fprintf(&b, "Shape: %s\n", shape)

	if len(ec.Metrics) > 0 {
		b.WriteString("Recent metrics:\n")
		for _, m := range ec.Metrics {
			fmt.Fprintf(&b, "  %s/%s = %.2f %s at %s\n",
				m.Namespace, m.Name, m.Value, m.Unit, m.Timestamp.Format("15:04:05"))
		}
	}
	if len(ec.Logs) > 0 {
		b.WriteString("Recent logs:\n")
		for _, l := range ec.Logs {
			fmt.Fprintf(&b, "  [%s] %s\n", l.Level, l.Message)
		}
	}

	b.WriteString("\nRUNBOOK SECTIONS\n")
	for _, rc := range chunks {
		fmt.Fprintf(&b, "--- %s / %s ---\n%s\n", rc.Chunk.RunbookPath, rc.Chunk.SectionTitle, rc.Chunk.Content)
	}

	b.WriteString("\nINSTRUCTIONS\n")
	b.WriteString(instructions)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownField
	}
	return s
}
