package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/models"
)

const (
	defaultRetryCount   = 3
	defaultInitialDelay = time.Second
)

// Dispatcher fans a checklist out to every admitted destination in parallel.
// A failure in one destination never prevents attempts on another.
type Dispatcher struct {
	mu           sync.RWMutex
	destinations []Destination
}

// NewDispatcher creates a dispatcher over the given destinations.
func NewDispatcher(destinations ...Destination) *Dispatcher {
	return &Dispatcher{destinations: destinations}
}

// AddDestination registers a destination at runtime.
func (d *Dispatcher) AddDestination(dest Destination) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destinations = append(d.destinations, dest)
}

// Destinations returns a snapshot of the registered destinations.
func (d *Dispatcher) Destinations() []Destination {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Destination, len(d.destinations))
	copy(out, d.destinations)
	return out
}

// Dispatch delivers the checklist to every destination, completing when each
// has succeeded, exhausted its retries, or been filtered out. Every
// destination appears exactly once in the result list, in registration order.
func (d *Dispatcher) Dispatch(ctx context.Context, checklist *models.Checklist, alert *models.Alert) []models.DeliveryResult {
	destinations := d.Destinations()
	results := make([]models.DeliveryResult, len(destinations))

	var wg sync.WaitGroup
	for i, dest := range destinations {
		if !dest.ShouldSend(checklist, alert) {
			log.Debug().
				Str("destination", dest.Name()).
				Str("alertId", checklist.AlertID).
				Msg("Checklist filtered out by destination rules")
			results[i] = models.DeliveryResult{
				Destination: dest.Name(),
				Type:        dest.Type(),
				Skipped:     true,
				DeliveredAt: time.Now(),
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.sendWithRetry(ctx, dest, checklist)
		}()
	}
	wg.Wait()
	return results
}

// sendWithRetry implements exponential backoff: attempt n failing retryably
// waits initialDelay * 2^(n-1) before attempt n+1. On exhaustion the last
// failure result is returned verbatim. Panics inside a destination are
// captured as failure results.
func (d *Dispatcher) sendWithRetry(ctx context.Context, dest Destination, checklist *models.Checklist) (result models.DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.DeliveryResult{
				Destination: dest.Name(),
				Type:        dest.Type(),
				Error:       fmt.Sprintf("destination panicked: %v", r),
				DeliveredAt: time.Now(),
			}
		}
	}()

	cfg := dest.Config()
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = defaultRetryCount
	}
	maxAttempts := retryCount + 1

	delay := defaultInitialDelay
	if cfg.RetryDelayMs > 0 {
		delay = time.Duration(cfg.RetryDelayMs) * time.Millisecond
	}

	for attempt := 1; ; attempt++ {
		result = dest.Send(ctx, checklist)
		result.Attempts = attempt

		if result.Success || !isRetryable(result) || attempt >= maxAttempts {
			if !result.Success {
				log.Warn().
					Str("destination", dest.Name()).
					Str("alertId", checklist.AlertID).
					Int("attempts", attempt).
					Int("status", result.StatusCode).
					Str("error", result.Error).
					Msg("Delivery failed")
			} else if attempt > 1 {
				log.Info().
					Str("destination", dest.Name()).
					Int("attempts", attempt).
					Msg("Delivery succeeded after retry")
			}
			return result
		}

		log.Debug().
			Str("destination", dest.Name()).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying delivery after backoff")

		select {
		case <-ctx.Done():
			result.Error = fmt.Sprintf("dispatch cancelled: %v", ctx.Err())
			return result
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// isRetryable classifies a failed delivery: 5xx statuses and transport
// errors (no status at all) are retryable, 4xx are not.
func isRetryable(result models.DeliveryResult) bool {
	if result.Success {
		return false
	}
	if result.StatusCode >= 500 && result.StatusCode <= 599 {
		return true
	}
	if result.StatusCode >= 400 && result.StatusCode < 500 {
		return false
	}
	// No HTTP status: connection or timeout failure.
	return result.StatusCode == 0 && result.Error != ""
}
