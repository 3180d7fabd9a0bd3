// Package dispatch delivers checklists to configured destinations in
// parallel, with per-destination filtering and exponential-backoff retry.
package dispatch

import (
	"context"

	"github.com/triagekit/triagekit/internal/models"
)

// Config describes one destination.
type Config struct {
	Name         string            `json:"name" yaml:"name"`
	Type         string            `json:"type" yaml:"type"` // webhook, file
	URL          string            `json:"url,omitempty" yaml:"url,omitempty"`
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Filter       FilterRules       `json:"filter,omitempty" yaml:"filter,omitempty"`
	RetryCount   int               `json:"retryCount" yaml:"retryCount"`
	RetryDelayMs int               `json:"retryDelayMs" yaml:"retryDelayMs"`
	OutputDir    string            `json:"outputDirectory,omitempty" yaml:"outputDirectory,omitempty"`
}

// FilterRules defines per-destination admission rules.
type FilterRules struct {
	Severities     []string          `json:"severities,omitempty" yaml:"severities,omitempty"`
	RequiredLabels map[string]string `json:"requiredLabels,omitempty" yaml:"requiredLabels,omitempty"`
}

// Admits reports whether the alert passes the filter: the severity set is
// empty or contains the alert's severity, and every required label is present
// with a matching value.
func (f FilterRules) Admits(alert *models.Alert) bool {
	if len(f.Severities) > 0 {
		found := false
		for _, s := range f.Severities {
			if string(alert.Severity) == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, want := range f.RequiredLabels {
		if got, ok := alert.Labels[key]; !ok || got != want {
			return false
		}
	}
	return true
}

// Destination is one downstream channel that can receive a checklist.
// Destinations are leaves: they hold no reference back to the dispatcher.
type Destination interface {
	// Name returns the configured destination name.
	Name() string

	// Type returns the destination kind ("webhook", "file").
	Type() string

	// ShouldSend reports whether the checklist for this alert passes the
	// destination's filter.
	ShouldSend(checklist *models.Checklist, alert *models.Alert) bool

	// Send delivers the checklist once. Transport failures are reported in
	// the result, not as a Go error.
	Send(ctx context.Context, checklist *models.Checklist) models.DeliveryResult

	// Config returns the destination configuration.
	Config() Config
}
