package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triagekit/internal/models"
)

type fakeMetadata struct {
	meta *models.ResourceMetadata
	err  error
}

func (f *fakeMetadata) GetInstance(_ context.Context, _ string) (*models.ResourceMetadata, error) {
	return f.meta, f.err
}

type fakeMetrics struct {
	samples []models.MetricSample
	err     error
	panics  bool
}

func (f *fakeMetrics) FetchMetrics(_ context.Context, _ string, _ time.Duration) ([]models.MetricSample, error) {
	if f.panics {
		panic("metrics provider exploded")
	}
	return f.samples, f.err
}

type fakeLogs struct {
	events []models.LogEvent
	err    error
}

func (f *fakeLogs) FetchLogs(_ context.Context, _ string, _ time.Duration, _ string) ([]models.LogEvent, error) {
	return f.events, f.err
}

func testAlert() models.Alert {
	return models.Alert{
		ID:       "cw-abc",
		Title:    "High CPU",
		Severity: models.SeverityCritical,
		Dimensions: map[string]string{
			"InstanceId": "i-0abc",
		},
	}
}

func TestEnrichAllProvidersSucceed(t *testing.T) {
	e := New(
		&fakeMetadata{meta: &models.ResourceMetadata{ID: "i-0abc", Shape: "VM.Standard2.4"}},
		&fakeMetrics{samples: []models.MetricSample{{Name: "CPUUtilization", Value: 92}}},
		&fakeLogs{events: []models.LogEvent{{ID: "l1", Message: "oom"}}},
	)

	ec, err := e.Enrich(context.Background(), testAlert())
	require.NoError(t, err)
	require.NotNil(t, ec.Resource)
	assert.Equal(t, "VM.Standard2.4", ec.Resource.Shape)
	assert.Len(t, ec.Metrics, 1)
	assert.Len(t, ec.Logs, 1)
}

func TestEnrichPartialFailureFoldsToEmpty(t *testing.T) {
	e := New(
		&fakeMetadata{err: fmt.Errorf("metadata api down")},
		&fakeMetrics{err: fmt.Errorf("metrics api down")},
		&fakeLogs{events: []models.LogEvent{{ID: "l1"}}},
	)

	ec, err := e.Enrich(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Nil(t, ec.Resource)
	assert.Empty(t, ec.Metrics)
	assert.Len(t, ec.Logs, 1)
	assert.Equal(t, "cw-abc", ec.Alert.ID)
}

func TestEnrichProviderPanicIsContained(t *testing.T) {
	e := New(nil, &fakeMetrics{panics: true}, &fakeLogs{})

	ec, err := e.Enrich(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Empty(t, ec.Metrics)
}

func TestEnrichNilProviders(t *testing.T) {
	e := New(nil, nil, nil)

	ec, err := e.Enrich(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Nil(t, ec.Resource)
	assert.NotNil(t, ec.Metrics)
	assert.NotNil(t, ec.Logs)
}

func TestEnrichCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(&fakeMetadata{}, &fakeMetrics{}, &fakeLogs{})
	_, err := e.Enrich(ctx, testAlert())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveResourceIDProbeOrder(t *testing.T) {
	tests := []struct {
		name       string
		dimensions map[string]string
		want       string
	}{
		{"resourceId wins", map[string]string{"resourceId": "r-1", "instanceId": "i-1"}, "r-1"},
		{"instanceId second", map[string]string{"instanceId": "i-1", "InstanceId": "I-1"}, "i-1"},
		{"InstanceId third", map[string]string{"InstanceId": "I-1", "resource_id": "r_1"}, "I-1"},
		{"snake_case last", map[string]string{"resource_id": "r_1"}, "r_1"},
		{"fallback to alert id", map[string]string{"host": "web-1"}, "cw-abc"},
		{"empty value skipped", map[string]string{"resourceId": "", "instanceId": "i-1"}, "i-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alert := testAlert()
			alert.Dimensions = tc.dimensions
			assert.Equal(t, tc.want, ResolveResourceID(&alert))
		})
	}
}

func TestWithLookbackOption(t *testing.T) {
	e := New(nil, nil, nil, WithLookback(5*time.Minute))
	assert.Equal(t, 5*time.Minute, e.lookback)

	e = New(nil, nil, nil, WithLookback(0))
	assert.Equal(t, DefaultLookback, e.lookback)
}
