// Package app wires configuration, infrastructure and modules into one
// process and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/goroutine"
	"github.com/shandysiswandi/estatebite/internal/pkg/hash"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/pkg/otp"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
	"github.com/shandysiswandi/estatebite/internal/pkg/storage"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// App holds every shared dependency. Optional resources stay nil when their
// section is not configured.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	otpGen    otp.Generator
	jwt       jwt.JWT

	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	mail      mail.Mail
	messaging messaging.Messaging
	storage   storage.Storage
	casbin    *casbin.Enforcer

	router     *router.Router
	httpServer *http.Server

	// closed in reverse order of registration
	closers []closer
}

// New builds the application. When a step fails, whatever was already
// opened is released before the error is returned.
func New() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"env", a.initEnv},
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"jwt", a.initJWT},
		{"database", a.initDatabase},
		{"redis", a.initCache},
		{"mail", a.initMail},
		{"storage", a.initStorage},
		{"messaging", a.initMessaging},
		{"casbin", a.initCasbin},
		{"http server", a.initHTTPServer},
		{"modules", a.initModules},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			cancel()
			a.close(context.Background())
			return nil, fmt.Errorf("app: init %s: %w", step.name, err)
		}
	}

	return a, nil
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) close(ctx context.Context) {
	for _, c := range slices.Backward(a.closers) {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}
	a.closers = nil
}
