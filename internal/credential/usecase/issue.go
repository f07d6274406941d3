package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"github.com/shandysiswandi/estatebite/internal/pkg/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type IssueInput struct {
	SubjectID int64          `validate:"required,gt=0"`
	Purpose   entity.Purpose `validate:"required,oneof=signup-verification password-reset login-2fa email-change"`
}

type IssueOutput struct {
	Credential entity.Credential
	// Code is the plaintext code. It is not retrievable after this call.
	Code string
	// Revoked is how many previously active credentials were replaced.
	Revoked int64
}

// Issue replaces any active credential for (subject, purpose) with a fresh one
// and hands the code to the dispatcher.
//
// A dispatch failure still returns the output alongside a NotificationFailure
// error: the credential is stored and valid.
func (s *Usecase) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.limiter.Allow(ctx, strconv.FormatInt(in.SubjectID, 10), in.Purpose.String()); err != nil {
		if errors.Is(err, ratelimit.ErrLimited) {
			slog.WarnContext(ctx, "otp issue throttled", "subject_id", in.SubjectID, "purpose", in.Purpose, "reason", err)
			return nil, goerror.NewBusiness("Too many OTP requests, please try again later", goerror.CodeTooManyRequest)
		}
		// fail open: the limiter is a guard, not a dependency of issuance
		slog.ErrorContext(ctx, "failed to check otp rate limit", "subject_id", in.SubjectID, "error", err)
	}

	subject, err := readWithRetry(ctx, s, func(ctx context.Context) (*entity.Subject, error) {
		return s.store.GetSubject(ctx, in.SubjectID)
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp subject not found", "subject_id", in.SubjectID)
		return nil, goerror.NewBusiness("Subject not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get subject", "subject_id", in.SubjectID, "error", err)
		return nil, goerror.NewDependency(err)
	}

	code, err := s.generator.Generate(s.opts.CodeLength)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "length", s.opts.CodeLength, "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hash.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	cred := entity.Credential{
		ID:        s.uid.Generate(),
		SubjectID: subject.ID,
		Purpose:   in.Purpose,
		CodeHash:  string(codeHash),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
		Revoked:   false,
	}

	revoked, err := s.store.ReplaceActive(ctx, cred)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo replace active credential", "subject_id", subject.ID, "purpose", in.Purpose, "error", err)
		return nil, goerror.NewDependency(err)
	}

	s.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", in.Purpose.String())))

	out := &IssueOutput{Credential: cred, Code: code, Revoked: revoked}

	if err := s.dispatcher.SendCode(ctx, CodeNotification{
		CredentialID: cred.ID,
		SubjectID:    subject.ID,
		Email:        subject.Email,
		Purpose:      cred.Purpose,
		Code:         code,
		ExpiresAt:    cred.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to dispatch otp code", "credential_id", cred.ID, "error", err)
		return out, goerror.NewNotificationFailure(err)
	}

	return out, nil
}
