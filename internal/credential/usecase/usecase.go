package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/hash"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/otp"
	"github.com/shandysiswandi/estatebite/internal/pkg/ratelimit"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCodeLength   = 6
	DefaultTTL          = 5 * time.Minute
	DefaultRetryBackoff = 50 * time.Millisecond
)

// ErrCodeLength is returned by New when Options.CodeLength falls outside the
// digits Verify accepts.
var ErrCodeLength = fmt.Errorf("credential: code length must be %d-%d digits",
	validator.OTPCodeMinLen, validator.OTPCodeMaxLen)

// CodeNotification is what the dispatcher needs to deliver a code.
type CodeNotification struct {
	CredentialID int64
	SubjectID    int64
	Email        string
	Purpose      entity.Purpose
	Code         string
	ExpiresAt    time.Time
}

type repoDispatcher interface {
	SendCode(ctx context.Context, msg CodeNotification) error
}

type repoStore interface {
	GetSubject(ctx context.Context, id int64) (*entity.Subject, error)
	FindActive(ctx context.Context, subjectID int64, purpose entity.Purpose, now time.Time) (*entity.Credential, error)
	FindValid(ctx context.Context, subjectID int64, codeHash string, purpose entity.Purpose, now time.Time) (*entity.Credential, error)

	ReplaceActive(ctx context.Context, cred entity.Credential) (int64, error)
	ConsumeIfValid(ctx context.Context, id int64, now time.Time) (bool, error)
	RevokeActive(ctx context.Context, subjectID int64, purpose *entity.Purpose) (int64, error)
	Revoke(ctx context.Context, id int64) error

	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}

// Options are the tunables fixed at construction.
type Options struct {
	CodeLength   int
	TTL          time.Duration
	RetryBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.CodeLength <= 0 {
		o.CodeLength = DefaultCodeLength
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	return o
}

func (o Options) check() error {
	if o.CodeLength < validator.OTPCodeMinLen || o.CodeLength > validator.OTPCodeMaxLen {
		return fmt.Errorf("%w: got %d", ErrCodeLength, o.CodeLength)
	}
	return nil
}

type Usecase struct {
	store      repoStore
	dispatcher repoDispatcher
	limiter    ratelimit.Limiter
	idemp      idempotency.Idempotency
	validator  validator.Validator
	hash       hash.Hash
	generator  otp.Generator
	uid        uid.NumberID
	clock      clock.Clocker
	ins        instrument.Instrumentation
	opts       Options

	issued   metric.Int64Counter
	verified metric.Int64Counter
	swept    metric.Int64Counter
}

type Dependency struct {
	Store       repoStore
	Dispatcher  repoDispatcher
	Limiter     ratelimit.Limiter
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Hash        hash.Hash
	Generator   otp.Generator
	UID         uid.NumberID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	Options     Options
}

// New fails with ErrCodeLength for a code length Verify would reject.
func New(dep Dependency) (*Usecase, error) {
	opts := dep.Options.withDefaults()
	if err := opts.check(); err != nil {
		return nil, err
	}

	limiter := dep.Limiter
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}

	s := &Usecase{
		store:      dep.Store,
		dispatcher: dep.Dispatcher,
		limiter:    limiter,
		idemp:      dep.Idempotency,
		validator:  dep.Validator,
		hash:       dep.Hash,
		generator:  dep.Generator,
		uid:        dep.UID,
		clock:      dep.Clock,
		ins:        dep.Instrument,
		opts:       opts,
	}

	meter := s.ins.Meter("credential.usecase")
	s.issued = newCounter(meter, "credential.otp.issued", "One-time codes issued")
	s.verified = newCounter(meter, "credential.otp.verified", "Verification attempts by result")
	s.swept = newCounter(meter, "credential.otp.swept", "Expired or revoked credentials deleted")

	return s, nil
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Warn("failed to create counter", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("credential.usecase").Start(ctx, name)
}
