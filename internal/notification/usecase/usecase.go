// Package usecase turns credential events into messages for the subject.
package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDedupeTTL is how long a delivered notification suppresses
// redeliveries of the same event.
const DefaultDedupeTTL = 24 * time.Hour

type mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Dependency wires NewNotification. Idempotency may be nil, which disables
// redelivery suppression.
type Dependency struct {
	RepoMail    mailer
	Idempotency idempotency.Idempotency
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
	DedupeTTL   time.Duration
}

type Usecase struct {
	Dependency

	tracer trace.Tracer
}

func NewNotification(dep Dependency) *Usecase {
	if dep.DedupeTTL <= 0 {
		dep.DedupeTTL = DefaultDedupeTTL
	}
	return &Usecase{Dependency: dep, tracer: dep.Instrument.Tracer("notification.usecase")}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}
