package inbound

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shandysiswandi/estatebite/internal/notification/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if cID := messaging.HeaderValue(headers, keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// CredentialIssuedNotification never logs the body: it carries a live code.
func (h *MQHandler) CredentialIssuedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(messaging.ExtractTrace(ctx, msg.Headers()), msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "CredentialIssuedNotification")
	defer span.End()

	slog.InfoContext(ctx, "consume: credential issued notification", "msg_id", msg.ID(), "attempt", msg.Attempts())

	var payload event.CredentialIssuedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of credential issued notification", "msg_id", msg.ID(), "error", err)
		return nil
	}

	if err := h.uc.ConsumeCredentialIssued(ctx, usecase.ConsumeCredentialIssuedInput{
		CredentialID: payload.CredentialID,
		SubjectID:    payload.SubjectID,
		Email:        payload.Email,
		Purpose:      payload.Purpose,
		Code:         payload.Code,
		ExpiresAt:    time.Unix(payload.ExpiresAt, 0),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume credential issued", "credential_id", payload.CredentialID, "error", err)
		return err
	}

	return nil
}
