package usecase

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

// readWithRetry runs an idempotent read, retrying once on transient failure.
// ErrNotFound is an answer, not a failure, and is never retried.
func readWithRetry[T any](ctx context.Context, s *Usecase, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(s.opts.RetryBackoff)), func(ctx context.Context) error {
		v, err := fn(ctx)
		if errors.Is(err, goerror.ErrNotFound) {
			return err
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})

	return out, err
}
