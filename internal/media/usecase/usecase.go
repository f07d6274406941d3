package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/estatebite/internal/media/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/storage"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPresignTTL   = 15 * time.Minute
	DefaultRetryBackoff = 50 * time.Millisecond

	maxMetadataName = 128
)

type repoStorage interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	PresignPut(ctx context.Context, bucket, key string, opts storage.PutOptions, expiry time.Duration) (string, error)
}

// Options are the broker settings fixed at construction.
type Options struct {
	Bucket         string
	PublicBaseURL  string
	PresignTTL     time.Duration
	AllowAnonymous bool
	RetryBackoff   time.Duration
}

func (o Options) withDefaults() Options {
	if o.PresignTTL <= 0 {
		o.PresignTTL = DefaultPresignTTL
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	return o
}

type Usecase struct {
	storage   repoStorage
	policy    *Policy
	validator validator.Validator
	uid       uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation
	opts      Options

	uploads metric.Int64Counter
	bytes   metric.Int64Counter
}

type Dependency struct {
	Storage    repoStorage
	Policy     *Policy
	Validator  validator.Validator
	UID        uid.StringID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
	Options    Options
}

func New(dep Dependency) *Usecase {
	policy := dep.Policy
	if policy == nil {
		policy = NewPolicy(nil, 0)
	}

	s := &Usecase{
		storage:   dep.Storage,
		policy:    policy,
		validator: dep.Validator,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		opts:      dep.Options.withDefaults(),
	}

	meter := s.ins.Meter("media.usecase")
	s.uploads = newCounter(meter, "media.uploads", "Upload requests by flow and result")
	s.bytes = newCounter(meter, "media.uploaded_bytes", "Bytes written through the direct flow")

	return s
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
	return s.ins.Tracer("media.usecase").Start(ctx, name)
}

// admit runs the checks shared by both flows. Nothing here touches storage.
func (s *Usecase) admit(purpose entity.Purpose, contentType string, size int64, ownerID int64) error {
	if ownerID == 0 && !s.opts.AllowAnonymous {
		return goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	err := s.policy.Check(purpose, contentType, size)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMissingPurpose):
		return goerror.NewInvalidInput(nil, "purpose", "purpose is required")
	case errors.Is(err, ErrUnknownPurpose):
		return goerror.NewInvalidInput(nil, "purpose", "purpose must be one of [property-media avatar]")
	case errors.Is(err, ErrUnsupportedContentType):
		return goerror.NewValidation("Unsupported content type", goerror.CodeUnsupportedMediaType)
	case errors.Is(err, ErrSizeExceedsLimit):
		return goerror.NewValidation("File exceeds the maximum allowed size", goerror.CodePayloadTooLarge)
	default:
		return goerror.NewServer(err)
	}
}

// storageKey derives "<purpose>/[<owner>/]<id><ext>". The caller's file name
// never contributes to the key.
func (s *Usecase) storageKey(purpose entity.Purpose, ownerID int64, contentType string) string {
	parts := []string{purpose.String()}
	if ownerID > 0 {
		parts = append(parts, strconv.FormatInt(ownerID, 10))
	}
	parts = append(parts, s.uid.Generate()+s.policy.Extension(contentType))

	return strings.Join(parts, "/")
}

func (s *Usecase) publicURL(key string) string {
	if s.opts.PublicBaseURL == "" {
		return ""
	}
	u, err := url.JoinPath(s.opts.PublicBaseURL, key)
	if err != nil {
		return strings.TrimSuffix(s.opts.PublicBaseURL, "/") + "/" + key
	}
	return u
}

func (s *Usecase) metadata(purpose entity.Purpose, ownerID int64, fileName string) map[string]string {
	md := map[string]string{"purpose": purpose.String()}
	if name := sanitizeFileName(fileName); name != "" {
		md["original-name"] = name
	}
	if ownerID > 0 {
		md["owner-id"] = strconv.FormatInt(ownerID, 10)
	}
	return md
}

// sanitizeFileName keeps the base name with only [A-Za-z0-9._-]; object
// metadata travels as HTTP headers and must stay ASCII.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxMetadataName {
			break
		}
	}
	return b.String()
}

func (s *Usecase) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(s.opts.RetryBackoff)), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func ownerAttr(ownerID int64) string {
	if ownerID > 0 {
		return "user"
	}
	return "anonymous"
}
