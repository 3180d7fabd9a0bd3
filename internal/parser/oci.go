package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/triagekit/triagekit/internal/models"
)

// ociAlarmMessage is the OCI Monitoring alarm notification format.
type ociAlarmMessage struct {
	DedupeKey            string `json:"dedupeKey"`
	Title                string `json:"title"`
	Body                 string `json:"body"`
	Type                 string `json:"type"` // e.g. OK_TO_FIRING, FIRING_TO_OK, REPEAT
	Severity             string `json:"severity"`
	TimestampEpochMillis int64  `json:"timestampEpochMillis"`
	AlarmMetaData        []struct {
		ID         string              `json:"id"`
		Status     string              `json:"status"`
		Severity   string              `json:"severity"`
		Namespace  string              `json:"namespace"`
		Query      string              `json:"query"`
		Dimensions []map[string]string `json:"dimensions"`
	} `json:"alarmMetaData"`
}

// OCIAdapter parses OCI Monitoring alarm notifications.
type OCIAdapter struct{}

// NewOCIAdapter creates an OCI Monitoring alarm adapter.
func NewOCIAdapter() *OCIAdapter {
	return &OCIAdapter{}
}

// SourceType returns the adapter identifier.
func (a *OCIAdapter) SourceType() string {
	return "oci"
}

// CanHandle claims payloads that carry OCI alarm markers.
func (a *OCIAdapter) CanHandle(raw []byte) bool {
	s := string(raw)
	return strings.Contains(s, `"dedupeKey"`) || strings.Contains(s, `"alarmMetaData"`)
}

// ParseAlert converts an OCI alarm message to the canonical Alert. Recovery
// transitions (…_TO_OK) return (nil, nil).
func (a *OCIAdapter) ParseAlert(raw []byte) (*models.Alert, error) {
	var msg ociAlarmMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid alarm message: %w", err)
	}
	if msg.DedupeKey == "" && len(msg.AlarmMetaData) == 0 {
		return nil, fmt.Errorf("alarm message missing dedupeKey and alarmMetaData")
	}

	if strings.HasSuffix(strings.ToUpper(msg.Type), "_TO_OK") {
		return nil, nil
	}

	alarmID := ""
	dimensions := map[string]string{}
	labels := map[string]string{}
	if len(msg.AlarmMetaData) > 0 {
		meta := msg.AlarmMetaData[0]
		alarmID = meta.ID
		if len(meta.Dimensions) > 0 {
			for k, v := range meta.Dimensions[0] {
				dimensions[k] = v
			}
		}
		if meta.Namespace != "" {
			labels["namespace"] = meta.Namespace
		}
		if meta.Query != "" {
			labels["query"] = meta.Query
		}
	}

	timestamp := time.Now()
	if msg.TimestampEpochMillis > 0 {
		timestamp = time.UnixMilli(msg.TimestampEpochMillis)
	}

	return &models.Alert{
		ID:            deterministicID("oci", msg.DedupeKey, alarmID),
		Title:         msg.Title,
		Message:       msg.Body,
		Severity:      mapOCISeverity(msg.Severity),
		SourceService: a.SourceType(),
		Dimensions:    dimensions,
		Labels:        labels,
		Timestamp:     timestamp,
		RawPayload:    string(raw),
	}, nil
}

func mapOCISeverity(severity string) models.Severity {
	switch strings.ToUpper(severity) {
	case "CRITICAL", "ERROR":
		return models.SeverityCritical
	case "WARNING":
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
