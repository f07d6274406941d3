package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/shared/mailtpl"
)

type ConsumeCredentialIssuedInput struct {
	CredentialID int64     `validate:"required,gt=0"`
	SubjectID    int64     `validate:"required,gt=0"`
	Email        string    `validate:"required,email"`
	Purpose      string    `validate:"required"`
	Code         string    `validate:"required,otpcode"`
	ExpiresAt    time.Time `validate:"required"`
}

// ConsumeCredentialIssued e-mails a freshly issued code. Redelivered messages
// for the same credential are sent at most once while a tracker is set.
//
// A returned error asks the broker to redeliver; malformed or stale messages
// are dropped with a log instead.
func (s *Usecase) ConsumeCredentialIssued(ctx context.Context, in ConsumeCredentialIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeCredentialIssued")
	defer span.End()

	if err := s.Validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "credential_id", in.CredentialID, "error", err)
		return nil
	}

	now := s.Clock.Now()
	if !in.ExpiresAt.After(now) {
		slog.WarnContext(ctx, "dropping expired code notification", "credential_id", in.CredentialID, "expired_at", in.ExpiresAt)
		return nil
	}

	send := func(ctx context.Context) error {
		return s.sendCode(ctx, in, now)
	}

	if s.Idempotency == nil {
		return send(ctx)
	}

	key := "notification:credential:" + strconv.FormatInt(in.CredentialID, 10)
	err := s.Idempotency.Exec(ctx, key, send, idempotency.WithStateTTL(s.DedupeTTL))
	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.InfoContext(ctx, "code notification already delivered", "credential_id", in.CredentialID)
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.InfoContext(ctx, "code notification in progress elsewhere", "credential_id", in.CredentialID)
		return nil
	default:
		return err
	}
}

func (s *Usecase) sendCode(ctx context.Context, in ConsumeCredentialIssuedInput, now time.Time) error {
	html, text, err := mailtpl.RenderCode(mailtpl.CodeData{
		Code:      in.Code,
		Purpose:   in.Purpose,
		ExpiresAt: in.ExpiresAt,
		Now:       now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render code email", "credential_id", in.CredentialID, "error", err)
		return err
	}

	if err := s.RepoMail.Send(ctx, mail.Message{
		To:       []string{in.Email},
		Subject:  mailtpl.CodeSubject(in.Purpose),
		HTMLBody: html,
		TextBody: text,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to send code email", "credential_id", in.CredentialID, "subject_id", in.SubjectID, "error", err)
		return err
	}

	return nil
}
