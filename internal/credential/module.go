package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/credential/inbound"
	"github.com/shandysiswandi/estatebite/internal/credential/outbound/db"
	"github.com/shandysiswandi/estatebite/internal/credential/outbound/email"
	"github.com/shandysiswandi/estatebite/internal/credential/outbound/memory"
	"github.com/shandysiswandi/estatebite/internal/credential/outbound/mq"
	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/goroutine"
	"github.com/shandysiswandi/estatebite/internal/pkg/hash"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/pkg/otp"
	"github.com/shandysiswandi/estatebite/internal/pkg/ratelimit"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DispatcherMessaging = "messaging"
	DispatcherEmail     = "email"
)

var (
	ErrUnknownStore      = errors.New("credential: unknown store driver")
	ErrUnknownDispatcher = errors.New("credential: unknown dispatcher")
	ErrMissingDependency = errors.New("credential: missing dependency for configured driver")
)

type Dependency struct {
	Ctx         context.Context
	DBConn      *pgxpool.Pool
	CacheConn   *redis.Client
	Idempotency idempotency.Idempotency
	Messaging   messaging.Messaging
	Mail        mail.Mail
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	Hash        hash.Hash                  `validate:"required"`
	Generator   otp.Generator              `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	store, err := newStore(dep)
	if err != nil {
		return err
	}

	dispatcher, err := newDispatcher(dep)
	if err != nil {
		return err
	}

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if dep.Config.GetBool("modules.credential.rate_limit.enabled") && dep.CacheConn != nil {
		limiter = ratelimit.NewRedis(dep.CacheConn, ratelimit.Config{
			Prefix:      "otp",
			Window:      dep.Config.GetSecond("modules.credential.rate_limit.window_seconds"),
			MaxInWindow: dep.Config.GetInt64("modules.credential.rate_limit.max_in_window"),
			Cooldown:    dep.Config.GetSecond("modules.credential.rate_limit.cooldown_seconds"),
			BlockFor:    dep.Config.GetSecond("modules.credential.rate_limit.block_seconds"),
		})
	}

	uc, err := usecase.New(usecase.Dependency{
		Store:       store,
		Dispatcher:  dispatcher,
		Limiter:     limiter,
		Idempotency: dep.Idempotency,
		Validator:   dep.Validator,
		Hash:        dep.Hash,
		Generator:   dep.Generator,
		UID:         dep.UID,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		Options: usecase.Options{
			CodeLength:   dep.Config.GetInt("modules.credential.code_length"),
			TTL:          dep.Config.GetSecond("modules.credential.ttl_seconds"),
			RetryBackoff: dep.Config.GetMillisecond("modules.credential.retry_backoff_ms"),
		},
	})
	if err != nil {
		return err
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	if dep.Ctx == nil {
		return nil
	}

	sweeper := usecase.NewSweeper(uc, dep.Config.GetSecond("modules.credential.sweep_interval_seconds"))
	return dep.Goroutine.Go(dep.Ctx, "credential_sweeper", sweeper.Run)
}

type store interface {
	GetSubject(ctx context.Context, id int64) (*entity.Subject, error)
	FindActive(ctx context.Context, subjectID int64, purpose entity.Purpose, now time.Time) (*entity.Credential, error)
	FindValid(ctx context.Context, subjectID int64, codeHash string, purpose entity.Purpose, now time.Time) (*entity.Credential, error)
	ReplaceActive(ctx context.Context, cred entity.Credential) (int64, error)
	ConsumeIfValid(ctx context.Context, id int64, now time.Time) (bool, error)
	RevokeActive(ctx context.Context, subjectID int64, purpose *entity.Purpose) (int64, error)
	Revoke(ctx context.Context, id int64) error
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}

func newStore(dep Dependency) (store, error) {
	driver := strings.TrimSpace(dep.Config.GetString("modules.credential.store"))
	switch driver {
	case StorePostgres, "":
		if dep.DBConn == nil {
			return nil, fmt.Errorf("%w: %s needs a database connection", ErrMissingDependency, StorePostgres)
		}
		return db.NewDB(dep.DBConn, dep.Instrument), nil

	case StoreMemory:
		return memory.NewStore(parseSubjects(dep.Config.GetMap("modules.credential.memory.subjects"))...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, driver)
	}
}

type dispatcher interface {
	SendCode(ctx context.Context, msg usecase.CodeNotification) error
}

func newDispatcher(dep Dependency) (dispatcher, error) {
	driver := strings.TrimSpace(dep.Config.GetString("modules.credential.dispatcher"))
	switch driver {
	case DispatcherMessaging, "":
		if dep.Messaging == nil {
			return nil, fmt.Errorf("%w: %s needs a messaging client", ErrMissingDependency, DispatcherMessaging)
		}
		return mq.NewMessaging(dep.Messaging, dep.Instrument), nil

	case DispatcherEmail:
		if dep.Mail == nil {
			return nil, fmt.Errorf("%w: %s needs a mail client", ErrMissingDependency, DispatcherEmail)
		}
		return email.New(dep.Mail, dep.Clock, dep.Instrument), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDispatcher, driver)
	}
}

// parseSubjects reads "id:email" pairs; malformed ids are skipped.
func parseSubjects(raw map[string]string) []entity.Subject {
	subjects := make([]entity.Subject, 0, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil || id <= 0 {
			slog.Warn("skipping malformed seed subject", "id", k)
			continue
		}
		subjects = append(subjects, entity.Subject{ID: id, Email: strings.TrimSpace(v)})
	}
	return subjects
}
