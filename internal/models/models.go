// Package models defines the records that flow through the alert-to-checklist
// pipeline. All records are constructed once and never mutated; the only one
// with durable lifetime is RunbookChunk, which lives in the vector store.
package models

import (
	"fmt"
	"time"
)

// Severity is the canonical alert severity.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Valid reports whether s is one of the three canonical severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Priority ranks a checklist step.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Alert is the canonical representation of one incident signal from a
// monitoring source, produced by the parser registry.
type Alert struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	Severity      Severity          `json:"severity"`
	SourceService string            `json:"sourceService"`
	Dimensions    map[string]string `json:"dimensions,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	RawPayload    string            `json:"-"` // retained for audit, never serialized out
}

// Validate checks the parser invariants: non-empty id, known severity.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("alert id is empty")
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", a.Severity)
	}
	return nil
}

// ResourceMetadata describes the compute resource an alert fired on. It may be
// absent from an EnrichedContext when the metadata provider cannot resolve the
// resource.
type ResourceMetadata struct {
	ID             string                       `json:"id"`
	DisplayName    string                       `json:"displayName"`
	Grouping       string                       `json:"grouping,omitempty"` // account/project/compartment
	Shape          string                       `json:"shape,omitempty"`
	Zone           string                       `json:"zone,omitempty"`
	Tags           map[string]string            `json:"tags,omitempty"`
	StructuredTags map[string]map[string]string `json:"structuredTags,omitempty"`
}

// MetricSample is one datapoint of one metric.
type MetricSample struct {
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEvent is one log line fetched during enrichment.
type LogEvent struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Level      string            `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EnrichedContext is an alert augmented with whatever the metadata, metrics
// and logs providers could supply. Alert is always present; everything else
// may be empty when the corresponding provider failed.
type EnrichedContext struct {
	Alert    Alert             `json:"alert"`
	Resource *ResourceMetadata `json:"resource,omitempty"`
	Metrics  []MetricSample    `json:"metrics,omitempty"`
	Logs     []LogEvent        `json:"logs,omitempty"`
	Extras   map[string]string `json:"extras,omitempty"`
}

// RunbookChunk is a semantically coherent fragment of a runbook, the unit of
// retrieval and indexing.
type RunbookChunk struct {
	ID               string    `json:"id"`
	RunbookPath      string    `json:"runbookPath"`
	SectionTitle     string    `json:"sectionTitle"`
	Content          string    `json:"content"`
	Tags             []string  `json:"tags,omitempty"`
	ApplicableShapes []string  `json:"applicableShapes,omitempty"`
	Embedding        []float32 `json:"embedding,omitempty"`
}

// ScoredChunk is a chunk returned from similarity search.
type ScoredChunk struct {
	Chunk      RunbookChunk `json:"chunk"`
	Similarity float32      `json:"similarityScore"`
}

// RetrievedChunk is a re-ranked chunk ready for prompt assembly.
// FinalScore = Similarity + MetadataBoost.
type RetrievedChunk struct {
	Chunk         RunbookChunk `json:"chunk"`
	Similarity    float32      `json:"similarityScore"`
	MetadataBoost float32      `json:"metadataBoost"`
	FinalScore    float32      `json:"finalScore"`
}

// ChecklistStep is one prioritized troubleshooting action.
type ChecklistStep struct {
	Order         int      `json:"order"`
	Instruction   string   `json:"instruction"`
	Rationale     string   `json:"rationale,omitempty"`
	CurrentValue  string   `json:"currentValue,omitempty"`
	ExpectedValue string   `json:"expectedValue,omitempty"`
	Priority      Priority `json:"priority"`
	Commands      []string `json:"commands"`
}

// Checklist is the rendered troubleshooting output for one alert.
type Checklist struct {
	AlertID         string          `json:"alertId"`
	Summary         string          `json:"summary"`
	Steps           []ChecklistStep `json:"steps"`
	SourceRunbooks  []string        `json:"sourceRunbooks"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	LLMProviderUsed string          `json:"llmProviderUsed"`
}

// DeliveryResult records the outcome of one destination delivery.
type DeliveryResult struct {
	Destination string    `json:"destination"`
	Type        string    `json:"type"`
	Success     bool      `json:"success"`
	Skipped     bool      `json:"skipped,omitempty"`
	StatusCode  int       `json:"statusCode,omitempty"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error,omitempty"`
	DeliveredAt time.Time `json:"deliveredAt"`
}
