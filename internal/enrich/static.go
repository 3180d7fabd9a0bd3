package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/triagekit/triagekit/internal/models"
)

// StaticProvider serves canned metadata, metrics, and logs for the local
// cloud provider, so the full pipeline runs without cloud credentials.
type StaticProvider struct {
	Shape string
	Zone  string
}

// NewStaticProvider creates a static provider with a default VM shape.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{Shape: "VM.Standard2.4", Zone: "local-1"}
}

// GetInstance returns synthetic metadata for the resource.
func (p *StaticProvider) GetInstance(_ context.Context, resourceID string) (*models.ResourceMetadata, error) {
	return &models.ResourceMetadata{
		ID:          resourceID,
		DisplayName: "instance-" + resourceID,
		Shape:       p.Shape,
		Zone:        p.Zone,
		Tags:        map[string]string{"env": "local"},
	}, nil
}

// FetchMetrics returns a small synthetic CPU/memory series inside the
// lookback window.
func (p *StaticProvider) FetchMetrics(_ context.Context, resourceID string, lookback time.Duration) ([]models.MetricSample, error) {
	now := time.Now()
	samples := make([]models.MetricSample, 0, 6)
	for i := 0; i < 3; i++ {
		at := now.Add(-lookback + time.Duration(i)*lookback/3)
		samples = append(samples,
			models.MetricSample{Name: "CPUUtilization", Namespace: "compute", Value: 40 + float64(i)*20, Unit: "Percent", Timestamp: at},
			models.MetricSample{Name: "MemoryUtilization", Namespace: "compute", Value: 60 + float64(i)*15, Unit: "Percent", Timestamp: at},
		)
	}
	return samples, nil
}

// FetchLogs returns a couple of synthetic log events.
func (p *StaticProvider) FetchLogs(_ context.Context, resourceID string, lookback time.Duration, _ string) ([]models.LogEvent, error) {
	now := time.Now()
	return []models.LogEvent{
		{
			ID:        fmt.Sprintf("%s-log-1", resourceID),
			Timestamp: now.Add(-lookback / 2),
			Level:     "WARN",
			Message:   "oom-killer invoked for process java",
		},
		{
			ID:        fmt.Sprintf("%s-log-2", resourceID),
			Timestamp: now.Add(-lookback / 4),
			Level:     "ERROR",
			Message:   "health check failed: connection refused",
		},
	}, nil
}
