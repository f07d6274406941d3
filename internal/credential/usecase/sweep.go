package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

type SweepOutput struct {
	Deleted int64
}

// SweepExpired deletes credentials that are expired or revoked.
func (s *Usecase) SweepExpired(ctx context.Context) (*SweepOutput, error) {
	ctx, span := s.startSpan(ctx, "SweepExpired")
	defer span.End()

	deleted, err := s.store.DeleteExpiredOrRevoked(ctx, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete expired or revoked credentials", "error", err)
		return nil, goerror.NewDependency(err)
	}

	s.swept.Add(ctx, deleted)
	if deleted > 0 {
		slog.InfoContext(ctx, "otp credentials swept", "count", deleted)
	}

	return &SweepOutput{Deleted: deleted}, nil
}
