package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/triagekit/triagekit/internal/dispatch"
	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/logging"
	"github.com/triagekit/triagekit/internal/metrics"
)

// maxAlertBody caps alert payload size. CloudWatch SNS envelopes are a few
// KB; 1 MB leaves generous headroom.
const maxAlertBody = 1 << 20

// dispatchTimeout bounds one background fan-out including all retries.
const dispatchTimeout = 5 * time.Minute

// handleAlert is the main intake: parse, process, respond with the
// checklist, then dispatch in the background after the response is written.
func (r *Router) handleAlert(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxAlertBody))
	if err != nil {
		writeError(w, req, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read request body", nil)
		return
	}
	if len(raw) == 0 {
		writeError(w, req, http.StatusBadRequest, "VALIDATION_ERROR", "empty request body", nil)
		return
	}

	alert, err := r.registry.Parse(raw)
	if err != nil {
		metrics.AlertsFailedTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
		writePipelineError(w, req, err)
		return
	}
	if alert == nil {
		metrics.AlertsSkippedTotal.Inc()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "SKIPPED",
			"reason":    "non-actionable state transition",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	metrics.AlertsReceivedTotal.WithLabelValues(alert.SourceService).Inc()

	checklist, err := r.pipeline.ProcessAlert(req.Context(), *alert, r.topK)
	if err != nil {
		metrics.AlertsFailedTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
		writePipelineError(w, req, err)
		return
	}
	metrics.ChecklistsGeneratedTotal.WithLabelValues(checklist.LLMProviderUsed).Inc()

	writeJSON(w, http.StatusOK, checklist)

	// Fire-and-forget: delivery happens after the response, detached from
	// the request context so client disconnects do not cancel it.
	requestID := logging.RequestID(req.Context())
	r.background.Go("dispatch:"+alert.ID, func(ctx context.Context) {
		ctx, _ = logging.WithRequestID(ctx, requestID)
		ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()

		results := r.dispatcher.Dispatch(ctx, checklist, alert)
		for _, res := range results {
			metrics.RecordDispatch(res.Type, res.Success, res.Skipped, res.Attempts)
		}
	})
}

// handleRunbookSync kicks off a full corpus re-ingestion and returns
// immediately.
func (r *Router) handleRunbookSync(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.ingester == nil {
		writeError(w, req, http.StatusConflict, "CONFIG_ERROR", "no runbook source configured", nil)
		return
	}

	requestID := logging.RequestID(req.Context())
	r.background.Go("runbook-sync", func(ctx context.Context) {
		ctx, _ = logging.WithRequestID(ctx, requestID)
		report, err := r.ingester.IngestAll(ctx)
		if err != nil {
			logger := logging.FromContext(ctx)
			logger.Error().Err(err).Msg("Runbook sync failed")
			return
		}
		metrics.RunbooksIngestedTotal.Add(float64(report.Paths - len(report.Failed)))
		metrics.ChunksStoredTotal.Add(float64(report.Chunks))
	})

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":    "STARTED",
		"requestId": requestID,
	})
}

// webhookRequest is the create-destination payload.
type webhookRequest struct {
	Name         string               `json:"name"`
	URL          string               `json:"url"`
	Enabled      *bool                `json:"enabled"`
	Headers      map[string]string    `json:"headers"`
	Filter       dispatch.FilterRules `json:"filter"`
	RetryCount   int                  `json:"retryCount"`
	RetryDelayMs int                  `json:"retryDelayMs"`
}

// handleWebhooks lists registered destinations or adds a webhook at runtime.
func (r *Router) handleWebhooks(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		configs := []dispatch.Config{}
		for _, dest := range r.dispatcher.Destinations() {
			configs = append(configs, dest.Config())
		}
		writeJSON(w, http.StatusOK, configs)

	case http.MethodPost:
		var body webhookRequest
		if err := decodeJSONBody(req, &body); err != nil {
			writeError(w, req, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		if body.Name == "" || body.URL == "" {
			writeError(w, req, http.StatusBadRequest, "VALIDATION_ERROR", "name and url are required", nil)
			return
		}
		for _, dest := range r.dispatcher.Destinations() {
			if dest.Name() == body.Name {
				writeError(w, req, http.StatusConflict, "VALIDATION_ERROR", "destination name already registered", nil)
				return
			}
		}

		enabled := true
		if body.Enabled != nil {
			enabled = *body.Enabled
		}
		cfg := dispatch.Config{
			Name:         body.Name,
			Type:         "webhook",
			URL:          body.URL,
			Enabled:      enabled,
			Headers:      body.Headers,
			Filter:       body.Filter,
			RetryCount:   body.RetryCount,
			RetryDelayMs: body.RetryDelayMs,
		}
		r.dispatcher.AddDestination(dispatch.NewWebhookDestination(cfg, nil))
		writeJSON(w, http.StatusCreated, cfg)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func decodeJSONBody(req *http.Request, dst interface{}) error {
	defer req.Body.Close()
	dec := json.NewDecoder(io.LimitReader(req.Body, maxAlertBody))
	return dec.Decode(dst)
}
