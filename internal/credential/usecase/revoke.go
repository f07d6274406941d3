package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

type RevokeInput struct {
	ID int64 `validate:"required,gt=0"`
}

// Revoke marks one credential revoked. Revoking twice is not an error.
func (s *Usecase) Revoke(ctx context.Context, in RevokeInput) error {
	ctx, span := s.startSpan(ctx, "Revoke")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.store.Revoke(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Credential not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke credential", "credential_id", in.ID, "error", err)
		return goerror.NewDependency(err)
	}

	return nil
}
