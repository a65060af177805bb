// Package background runs fire-and-forget work outside the request that
// scheduled it. Tasks get a context detached from the caller that is
// cancelled when the runner shuts down.
package background

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/darkodi/sitebuilder/internal/logger"
	"github.com/darkodi/sitebuilder/internal/metrics"
)

// Runner tracks in-flight tasks so shutdown can drain or abandon them
type Runner struct {
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // guards closed and wg.Add
	closed   bool
	wg       sync.WaitGroup
	inFlight atomic.Int64
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewRunner creates a runner. m may be nil.
func NewRunner(log *logger.Logger, m *metrics.Metrics) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:     ctx,
		cancel:  cancel,
		log:     log.Component("background"),
		metrics: m,
	}
}

// Go starts fn in its own goroutine. It reports false, without running fn,
// once Shutdown has been called.
func (r *Runner) Go(name string, fn func(ctx context.Context)) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("runner closed, dropping task", "task", name)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.track(1)
	go func() {
		defer r.wg.Done()
		defer r.track(-1)
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("task panicked", "task", name, "panic", p, "stack", string(debug.Stack()))
			}
		}()
		fn(r.ctx)
	}()
	return true
}

// InFlight is the number of tasks currently running
func (r *Runner) InFlight() int {
	return int(r.inFlight.Load())
}

// Wait blocks until every started task has returned
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones until ctx is
// done, at which point their contexts are cancelled and it waits again.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.log.Warn("abandoning background tasks", "in_flight", r.InFlight())
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Runner) track(delta int64) {
	r.inFlight.Add(delta)
	if r.metrics != nil {
		r.metrics.BackgroundTasks.Add(float64(delta))
	}
}
