package inbound

import (
	"context"
	"slices"

	"github.com/shandysiswandi/estatebite/internal/notification/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/goroutine"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/shared/event"
)

type uc interface {
	ConsumeCredentialIssued(ctx context.Context, in usecase.ConsumeCredentialIssuedInput) error
}

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) error {
	handler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		group   string // consumer group, see messaging.WithGroup
		handler messaging.Handler
	}{
		{
			name:    event.CredentialIssuedConsumerNotification,
			topic:   event.CredentialIssuedDestination,
			group:   event.CredentialIssuedConsumerNotification,
			handler: handler.CredentialIssuedNotification,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enabled, consumer.name) {
			continue
		}

		err := routine.Go(ctx, consumer.name, func(ctx context.Context) error {
			return messenger.Consume(ctx,
				consumer.topic,
				consumer.handler,
				messaging.WithGroup(consumer.group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
		if err != nil {
			return err
		}
	}

	return nil
}
