package notification

import (
	"context"
	"errors"

	"github.com/shandysiswandi/estatebite/internal/notification/inbound"
	"github.com/shandysiswandi/estatebite/internal/notification/outbound/email"
	"github.com/shandysiswandi/estatebite/internal/notification/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/goroutine"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
)

var ErrMissingMessaging = errors.New("notification: consumers enabled without a messaging client")

type Dependency struct {
	Ctx         context.Context
	Messaging   messaging.Messaging
	Idempotency idempotency.Idempotency
	Mail        mail.Mail                  `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.NewNotification(usecase.Dependency{
		RepoMail:    email.New(dep.Mail, dep.Instrument),
		Idempotency: dep.Idempotency,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
		DedupeTTL:   dep.Config.GetHour("modules.notification.dedupe_ttl_hours"),
	})

	if dep.Ctx == nil || len(dep.Config.GetArray("modules.notification.consumer_names")) == 0 {
		return nil
	}
	if dep.Messaging == nil {
		return ErrMissingMessaging
	}

	return inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
}
