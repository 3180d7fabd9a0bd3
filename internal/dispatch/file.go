package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/triagekit/triagekit/internal/models"
)

// FileDestination serializes the checklist as JSON into the configured
// output directory. The file name schema is part of the contract:
// checklist-<alertId>-<unix-millis>.json.
type FileDestination struct {
	cfg Config
	now func() time.Time
}

// NewFileDestination creates a file destination writing under cfg.OutputDir.
func NewFileDestination(cfg Config) *FileDestination {
	return &FileDestination{cfg: cfg, now: time.Now}
}

// Name returns the configured destination name.
func (d *FileDestination) Name() string {
	if d.cfg.Name != "" {
		return d.cfg.Name
	}
	return "file"
}

// Type returns "file".
func (d *FileDestination) Type() string { return "file" }

// Config returns the destination configuration.
func (d *FileDestination) Config() Config { return d.cfg }

// ShouldSend always admits unless filter rules were configured.
func (d *FileDestination) ShouldSend(_ *models.Checklist, alert *models.Alert) bool {
	return d.cfg.Filter.Admits(alert)
}

// Send writes the checklist, creating the output directory if missing.
func (d *FileDestination) Send(_ context.Context, checklist *models.Checklist) models.DeliveryResult {
	result := models.DeliveryResult{
		Destination: d.Name(),
		Type:        d.Type(),
		DeliveredAt: time.Now(),
	}

	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		result.Error = fmt.Sprintf("failed to create output directory: %v", err)
		return result
	}

	payload, err := json.MarshalIndent(checklist, "", "  ")
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal checklist: %v", err)
		return result
	}

	name := fmt.Sprintf("checklist-%s-%d.json", checklist.AlertID, d.now().UnixMilli())
	path := filepath.Join(d.cfg.OutputDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		result.Error = fmt.Sprintf("failed to write %s: %v", path, err)
		return result
	}

	result.Success = true
	return result
}
