// Package background runs detached tasks whose failures are logged, never
// propagated. Work handed to the runner must not delay or fail the turn that
// spawned it.
package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner spawns detached background tasks with a uniform failure sink.
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewRunner creates a runner. Each task gets its own context with the given
// timeout; zero means no timeout.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout}
}

// Go runs fn in a new goroutine. Errors and panics are logged under the task
// name and swallowed. The task receives a fresh context detached from the
// caller's, so a finished turn does not cancel its background work.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("background task panicked", "task", name, "panic", rec)
			}
		}()

		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		if err := fn(ctx); err != nil {
			slog.Error("background task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all spawned tasks have finished. Intended for shutdown
// and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
