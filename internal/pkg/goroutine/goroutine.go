// Package goroutine runs the long-lived background jobs of the service, such
// as message consumers and the credential sweeper, and waits for them on
// shutdown.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/estatebite/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine = 100

var (
	// ErrClosed is returned by Go after Wait has been called.
	ErrClosed = errors.New("goroutine: manager is closed")
	// ErrLimitReached is returned by Go when every slot is taken.
	ErrLimitReached = errors.New("goroutine: limit reached")
)

// Manager runs named jobs with a cap on how many run at once. Errors from
// jobs are collected for Wait, except the context errors a job returns once
// its context is done.
type Manager struct {
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	errs   []error
	closed bool
}

// NewManager creates a Manager running at most limit jobs.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = DefaultMaxGoroutine
	}
	return &Manager{slots: make(chan struct{}, limit)}
}

// Go starts fn in its own goroutine. A panic in fn is logged and recorded as
// the job's error.
func (g *Manager) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	select {
	case g.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "background job not started", "job", name, "limit", cap(g.slots))
		return ErrLimitReached
	}

	g.wg.Go(func() {
		defer func() { <-g.slots }()

		slog.InfoContext(ctx, "background job started", "job", name)
		switch err := run(ctx, name, fn); {
		case err == nil, ctx.Err() != nil && errors.Is(err, ctx.Err()):
			slog.InfoContext(ctx, "background job stopped", "job", name)
		default:
			slog.ErrorContext(ctx, "background job failed", "job", name, "error", err)
			g.record(fmt.Errorf("%s: %w", name, err))
		}
	})
	return nil
}

func run(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		var trace any = string(stack)
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			trace = paths
		}
		slog.ErrorContext(ctx, "panic in background job", "job", name, "panic", rvr, "stack", trace)
		err = fmt.Errorf("panic: %v", rvr)
	}()

	return fn(ctx)
}

func (g *Manager) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs = append(g.errs, err)
}

// Wait stops accepting jobs and blocks until the running ones return.
func (g *Manager) Wait() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
