// Package api exposes the HTTP surface: alert intake, runbook sync,
// webhook management, health, and metrics.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/triagekit/triagekit/internal/dispatch"
	"github.com/triagekit/triagekit/internal/ingest"
	"github.com/triagekit/triagekit/internal/parser"
	"github.com/triagekit/triagekit/internal/pipeline"
)

// Router wires the HTTP endpoints to the pipeline components.
type Router struct {
	mux        *http.ServeMux
	registry   *parser.Registry
	pipeline   *pipeline.Pipeline
	dispatcher *dispatch.Dispatcher
	ingester   *ingest.Pipeline
	background *pipeline.Background
	topK       int
}

// New creates the router. ingester may be nil when no runbook source is
// configured; the sync endpoint then reports a config error.
func New(registry *parser.Registry, pl *pipeline.Pipeline, dispatcher *dispatch.Dispatcher, ingester *ingest.Pipeline, background *pipeline.Background, topK int) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		registry:   registry,
		pipeline:   pl,
		dispatcher: dispatcher,
		ingester:   ingester,
		background: background,
		topK:       topK,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/api/v1/alerts", r.handleAlert)
	r.mux.HandleFunc("/api/v1/runbooks/sync", r.handleRunbookSync)
	r.mux.HandleFunc("/api/v1/webhooks", r.handleWebhooks)
	r.mux.HandleFunc("/health", r.handleHealth)
	r.mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the full middleware chain.
func (r *Router) Handler() http.Handler {
	return withRequestID(withAccessLog(r.mux))
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "UP",
		"timestamp": time.Now().UTC(),
	})
}

// Server builds an http.Server around the router.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Shutdown drains the background dispatch tasks.
func (r *Router) Shutdown(grace time.Duration) {
	r.background.Shutdown(grace)
}
