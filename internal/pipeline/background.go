package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Background runs fire-and-forget tasks that outlive a request scope but are
// bounded by the process lifetime. Shutdown drains pending tasks up to the
// grace period, then cancels the rest.
type Background struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewBackground creates a runner rooted at parent.
func NewBackground(parent context.Context) *Background {
	ctx, cancel := context.WithCancel(parent)
	return &Background{ctx: ctx, cancel: cancel}
}

// Go schedules fn on its own goroutine with the runner's context. Tasks
// submitted after shutdown are dropped with a warning.
func (b *Background) Go(name string, fn func(ctx context.Context)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		log.Warn().Str("task", name).Msg("Background runner is shut down, dropping task")
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("task", name).Interface("panic", r).Msg("Background task panicked")
			}
		}()
		fn(b.ctx)
	}()
}

// Shutdown waits up to grace for running tasks, then cancels them and waits
// for their goroutines to return.
func (b *Background) Shutdown(grace time.Duration) {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		log.Warn().Dur("grace", grace).Msg("Background tasks still running after grace period, cancelling")
		b.cancel()
		<-done
	}
	b.cancel()
}
