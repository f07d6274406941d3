package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"go.uber.org/atomic"
)

const sweepLockKey = "credential:sweep"

// Sweeper periodically runs SweepExpired. At most one replica sweeps per
// interval when an idempotency tracker is configured.
type Sweeper struct {
	uc       *Usecase
	interval time.Duration
	running  *atomic.Bool
}

func NewSweeper(uc *Usecase, interval time.Duration) *Sweeper {
	return &Sweeper{uc: uc, interval: interval, running: atomic.NewBool(false)}
}

// Run blocks until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	if w.interval <= 0 {
		slog.InfoContext(ctx, "otp sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one sweep unless another is still in flight.
func (w *Sweeper) Tick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		slog.WarnContext(ctx, "otp sweep skipped, previous run still in progress")
		return
	}
	defer w.running.Store(false)

	sweep := func(ctx context.Context) error {
		_, err := w.uc.SweepExpired(ctx)
		return err
	}

	if w.uc.idemp == nil {
		if err := sweep(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to sweep otp credentials", "error", err)
		}
		return
	}

	err := w.uc.idemp.Exec(ctx, sweepLockKey, sweep,
		idempotency.WithLockDuration(w.interval),
		idempotency.WithStateTTL(w.interval/2),
	)
	switch {
	case errors.Is(err, idempotency.ErrAlreadyInProgress), errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.DebugContext(ctx, "otp sweep handled by another replica")
	case err != nil:
		slog.ErrorContext(ctx, "failed to sweep otp credentials", "error", err)
	}
}
