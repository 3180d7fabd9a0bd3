// Package metrics exposes Prometheus instrumentation for the alert
// pipeline: parse outcomes, retrieval latency, generation latency, and
// dispatch results.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alert lifecycle metrics
	AlertsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triagekit_alerts_received_total",
			Help: "Total alert payloads received by source type",
		},
		[]string{"source"},
	)

	AlertsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triagekit_alerts_skipped_total",
			Help: "Total alerts skipped as non-actionable state transitions",
		},
	)

	AlertsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triagekit_alerts_failed_total",
			Help: "Total alerts that failed processing by error kind",
		},
		[]string{"kind"},
	)

	ChecklistsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triagekit_checklists_generated_total",
			Help: "Total checklists generated by LLM provider",
		},
		[]string{"provider"},
	)

	// Stage latency metrics
	PipelineStageSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triagekit_pipeline_stage_seconds",
			Help:    "Latency of pipeline stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"}, // enrich, retrieve, generate
	)

	RetrievedChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triagekit_retrieved_chunks",
			Help:    "Number of chunks returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// Dispatch metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triagekit_dispatch_total",
			Help: "Delivery outcomes by destination type and result",
		},
		[]string{"type", "result"}, // result: success, failure, skipped
	)

	DispatchAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triagekit_dispatch_attempts",
			Help:    "Attempts used per delivery",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"type"},
	)

	// Ingestion metrics
	RunbooksIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triagekit_runbooks_ingested_total",
			Help: "Total runbook documents ingested",
		},
	)

	ChunksStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triagekit_chunks_stored_total",
			Help: "Total runbook chunks embedded and stored",
		},
	)
)

// ObserveStage records one pipeline stage duration.
func ObserveStage(stage string, start time.Time) {
	PipelineStageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordDispatch records one delivery outcome.
func RecordDispatch(destType string, success, skipped bool, attempts int) {
	result := "failure"
	switch {
	case skipped:
		result = "skipped"
	case success:
		result = "success"
	}
	DispatchTotal.WithLabelValues(destType, result).Inc()
	if !skipped {
		DispatchAttempts.WithLabelValues(destType).Observe(float64(attempts))
	}
}
