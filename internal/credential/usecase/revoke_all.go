package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

type RevokeAllInput struct {
	SubjectID int64 `validate:"required,gt=0"`
	// Purpose narrows the revocation when set.
	Purpose *entity.Purpose `validate:"omitempty,oneof=signup-verification password-reset login-2fa email-change"`
}

type RevokeAllOutput struct {
	Revoked int64
}

// RevokeAll invalidates every outstanding credential of a subject.
func (s *Usecase) RevokeAll(ctx context.Context, in RevokeAllInput) (*RevokeAllOutput, error) {
	ctx, span := s.startSpan(ctx, "RevokeAll")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	count, err := s.store.RevokeActive(ctx, in.SubjectID, in.Purpose)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke active credentials", "subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewDependency(err)
	}

	slog.InfoContext(ctx, "otp credentials revoked", "subject_id", in.SubjectID, "count", count)

	return &RevokeAllOutput{Revoked: count}, nil
}
