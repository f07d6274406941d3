package email

import (
	"context"

	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/shared/mailtpl"
	"go.opentelemetry.io/otel/codes"
)

// Mail delivers codes synchronously over the configured mail provider.
type Mail struct {
	client mail.Mail
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func New(client mail.Mail, clk clock.Clocker, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, clock: clk, ins: ins}
}

func (m *Mail) SendCode(ctx context.Context, msg usecase.CodeNotification) (err error) {
	ctx, span := m.ins.Tracer("credential.outbound.email").Start(ctx, "SendCode")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	html, text, err := mailtpl.RenderCode(mailtpl.CodeData{
		Code:      msg.Code,
		Purpose:   msg.Purpose.String(),
		ExpiresAt: msg.ExpiresAt,
		Now:       m.clock.Now(),
	})
	if err != nil {
		return err
	}

	return m.client.Send(ctx, mail.Message{
		To:       []string{msg.Email},
		Subject:  mailtpl.CodeSubject(msg.Purpose.String()),
		HTMLBody: html,
		TextBody: text,
	})
}
