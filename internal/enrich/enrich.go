// Package enrich augments an alert with live infrastructure state: resource
// metadata, recent metrics, and recent logs, fetched in parallel with
// per-provider failure isolation.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/models"
)

// DefaultLookback is how far back metrics and logs are fetched when the
// caller does not say otherwise.
const DefaultLookback = 15 * time.Minute

// resourceIDKeys is the fixed priority list probed against alert dimensions.
var resourceIDKeys = []string{"resourceId", "instanceId", "InstanceId", "resource_id"}

// ComputeMetadataProvider resolves a resource id to its metadata. A nil
// result with nil error means the resource could not be resolved.
type ComputeMetadataProvider interface {
	GetInstance(ctx context.Context, resourceID string) (*models.ResourceMetadata, error)
}

// MetricsProvider fetches recent metric samples for a resource.
type MetricsProvider interface {
	FetchMetrics(ctx context.Context, resourceID string, lookback time.Duration) ([]models.MetricSample, error)
}

// LogsProvider fetches recent log events for a resource.
type LogsProvider interface {
	FetchLogs(ctx context.Context, resourceID string, lookback time.Duration, query string) ([]models.LogEvent, error)
}

// Enricher fans out to the three providers. Individual provider failures are
// logged and folded to empty values; only parent-context cancellation is
// surfaced as an error.
type Enricher struct {
	metadata ComputeMetadataProvider
	metrics  MetricsProvider
	logs     LogsProvider
	lookback time.Duration
}

// Option configures the Enricher.
type Option func(*Enricher)

// WithLookback overrides the default metrics/logs lookback window.
func WithLookback(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.lookback = d
		}
	}
}

// New creates an enricher. Any provider may be nil; its field is then always
// empty in the result.
func New(metadata ComputeMetadataProvider, metrics MetricsProvider, logs LogsProvider, opts ...Option) *Enricher {
	e := &Enricher{
		metadata: metadata,
		metrics:  metrics,
		logs:     logs,
		lookback: DefaultLookback,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enrich produces the enriched context for an alert. The three provider calls
// run concurrently; the result includes whatever succeeded. A cancelled
// parent context cancels all children and returns the cancellation error.
func (e *Enricher) Enrich(ctx context.Context, alert models.Alert) (*models.EnrichedContext, error) {
	resourceID := ResolveResourceID(&alert)

	ec := &models.EnrichedContext{
		Alert:   alert,
		Metrics: []models.MetricSample{},
		Logs:    []models.LogEvent{},
		Extras:  map[string]string{},
	}

	var wg sync.WaitGroup

	if e.metadata != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverProvider("metadata", alert.ID)
			resource, err := e.metadata.GetInstance(ctx, resourceID)
			if err != nil {
				log.Warn().Err(err).Str("alertId", alert.ID).Str("resourceId", resourceID).
					Msg("Metadata provider failed, continuing without resource metadata")
				return
			}
			ec.Resource = resource
		}()
	}

	if e.metrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverProvider("metrics", alert.ID)
			samples, err := e.metrics.FetchMetrics(ctx, resourceID, e.lookback)
			if err != nil {
				log.Warn().Err(err).Str("alertId", alert.ID).Str("resourceId", resourceID).
					Msg("Metrics provider failed, continuing without metrics")
				return
			}
			ec.Metrics = samples
		}()
	}

	if e.logs != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recoverProvider("logs", alert.ID)
			events, err := e.logs.FetchLogs(ctx, resourceID, e.lookback, "")
			if err != nil {
				log.Warn().Err(err).Str("alertId", alert.ID).Str("resourceId", resourceID).
					Msg("Logs provider failed, continuing without logs")
				return
			}
			ec.Logs = events
		}()
	}

	wg.Wait()

	// Partial-failure tolerance never swallows cancellation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ec.Metrics == nil {
		ec.Metrics = []models.MetricSample{}
	}
	if ec.Logs == nil {
		ec.Logs = []models.LogEvent{}
	}
	return ec, nil
}

// ResolveResourceID probes the alert dimensions for the first present key in
// the fixed priority list, falling back to the alert id with a warning.
func ResolveResourceID(alert *models.Alert) string {
	for _, key := range resourceIDKeys {
		if v, ok := alert.Dimensions[key]; ok && v != "" {
			return v
		}
	}
	log.Warn().Str("alertId", alert.ID).
		Msg("No resource id dimension on alert, using alert id as synthetic resource id")
	return alert.ID
}

func recoverProvider(name, alertID string) {
	if r := recover(); r != nil {
		log.Error().Str("provider", name).Str("alertId", alertID).
			Msg(fmt.Sprintf("Provider panicked: %v", r))
	}
}
