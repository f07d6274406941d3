package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

type LatestActiveInput struct {
	SubjectID int64          `validate:"required,gt=0"`
	Purpose   entity.Purpose `validate:"required,oneof=signup-verification password-reset login-2fa email-change"`
}

// LatestActive returns the active credential for (subject, purpose), without its code.
func (s *Usecase) LatestActive(ctx context.Context, in LatestActiveInput) (*entity.Credential, error) {
	ctx, span := s.startSpan(ctx, "LatestActive")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()
	cred, err := readWithRetry(ctx, s, func(ctx context.Context) (*entity.Credential, error) {
		return s.store.FindActive(ctx, in.SubjectID, in.Purpose, now)
	})
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("No active credential", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find active credential", "subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewDependency(err)
	}

	return cred, nil
}
