// Package email sends notification mail through the shared mail client,
// with a span and a delivery counter around every send.
package email

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const scope = "notification.outbound.email"

type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
	sent   metric.Int64Counter
}

func New(client mail.Mail, ins instrument.Instrumentation) *Mail {
	sent, err := ins.Meter(scope).Int64Counter("notification.email.sent",
		metric.WithDescription("Notification e-mails handed to the mail server, by outcome"))
	if err != nil {
		slog.Error("failed to create email counter", "error", err)
	}
	return &Mail{client: client, ins: ins, sent: sent}
}

func (m *Mail) Send(ctx context.Context, msg mail.Message) error {
	ctx, span := m.ins.Tracer(scope).Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(attribute.Int("mail.recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc)))

	err := m.client.Send(ctx, msg)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if m.sent != nil {
		m.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	return err
}
