package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const msgVerificationFailed = "Invalid or expired OTP"

type VerifyInput struct {
	SubjectID int64          `validate:"required,gt=0"`
	Code      string         `validate:"required,otpcode"`
	Purpose   entity.Purpose `validate:"required,oneof=signup-verification password-reset login-2fa email-change"`
}

type VerifyOutput struct {
	Valid        bool
	CredentialID int64
}

// Verify consumes the credential matching (subject, code, purpose).
//
// Every miss, whatever the cause, yields the same VerificationFailed error.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	codeHash, err := s.hash.Hash(in.Code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()

	cred, err := readWithRetry(ctx, s, func(ctx context.Context) (*entity.Credential, error) {
		return s.store.FindValid(ctx, in.SubjectID, string(codeHash), in.Purpose, now)
	})
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, s.verificationFailed(ctx, in, "no_match")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find valid credential", "subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewDependency(err)
	}

	consumed, err := s.store.ConsumeIfValid(ctx, cred.ID, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume credential", "credential_id", cred.ID, "error", err)
		return nil, goerror.NewDependency(err)
	}
	if !consumed {
		return nil, s.verificationFailed(ctx, in, "lost_race")
	}

	s.verified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", in.Purpose.String()),
		attribute.String("result", "success"),
	))

	return &VerifyOutput{Valid: true, CredentialID: cred.ID}, nil
}

func (s *Usecase) verificationFailed(ctx context.Context, in VerifyInput, reason string) error {
	slog.WarnContext(ctx, "otp verification failed", "subject_id", in.SubjectID, "purpose", in.Purpose, "reason", reason)
	s.verified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", in.Purpose.String()),
		attribute.String("result", "failure"),
	))

	return goerror.NewBusiness(msgVerificationFailed, goerror.CodeVerificationFailed)
}
