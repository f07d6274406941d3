package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

// SendCode publishes the code for the notification consumer to deliver.
func (m *Messaging) SendCode(ctx context.Context, msg usecase.CodeNotification) error {
	ctx, span := m.ins.Tracer("credential.outbound.mq").Start(ctx, "SendCode")
	defer span.End()

	body, err := json.Marshal(event.CredentialIssuedMessage{
		CredentialID: msg.CredentialID,
		SubjectID:    msg.SubjectID,
		Email:        msg.Email,
		Purpose:      msg.Purpose.String(),
		Code:         msg.Code,
		ExpiresAt:    msg.ExpiresAt.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.CredentialIssuedDestination, messaging.OutgoingMessage{
		Key:     []byte(msg.Email),
		Body:    body,
		Headers: messaging.InjectTrace(ctx, []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}}),
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
