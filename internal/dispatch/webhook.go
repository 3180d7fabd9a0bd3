package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/triagekit/triagekit/internal/models"
)

const userAgent = "TriageKit/1.0"

// WebhookDestination POSTs the checklist JSON to a configured URL.
type WebhookDestination struct {
	cfg    Config
	client *http.Client
}

// NewWebhookDestination creates a webhook destination. An optional client
// override is used by tests; nil gets a 30s-timeout default.
func NewWebhookDestination(cfg Config, client *http.Client) *WebhookDestination {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookDestination{cfg: cfg, client: client}
}

// Name returns the configured destination name.
func (d *WebhookDestination) Name() string { return d.cfg.Name }

// Type returns "webhook".
func (d *WebhookDestination) Type() string { return "webhook" }

// Config returns the destination configuration.
func (d *WebhookDestination) Config() Config { return d.cfg }

// ShouldSend applies the configured filter rules.
func (d *WebhookDestination) ShouldSend(_ *models.Checklist, alert *models.Alert) bool {
	return d.cfg.Filter.Admits(alert)
}

// Send delivers the checklist once. A non-2xx status or transport error
// yields a failure result carrying the status code when one was received.
func (d *WebhookDestination) Send(ctx context.Context, checklist *models.Checklist) models.DeliveryResult {
	result := models.DeliveryResult{
		Destination: d.cfg.Name,
		Type:        d.Type(),
		DeliveredAt: time.Now(),
	}

	payload, err := json.Marshal(checklist)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal checklist: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}
	for key, value := range d.cfg.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
	} else {
		result.Error = fmt.Sprintf("webhook returned status %d", resp.StatusCode)
	}
	return result
}
