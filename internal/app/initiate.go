package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/goroutine"
	"github.com/shandysiswandi/estatebite/internal/pkg/hash"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
	"github.com/shandysiswandi/estatebite/internal/pkg/otp"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
)

// rbacModel lets a "*" policy object or action match anything.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

func isLocal() bool { return os.Getenv("LOCAL") == "true" }

func (a *App) initEnv() error {
	if !isLocal() {
		return nil
	}
	// the shell may already export everything
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return nil
}

func (a *App) initConfig() error {
	path := os.Getenv("CONFIG_PATH")
	switch {
	case path != "":
	case isLocal():
		path = "./config/config.yaml"
	default:
		path = "/config/config.yaml"
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		return err
	}
	if tz := cfg.GetString("app.tz"); tz != "" {
		if err := os.Setenv("TZ", tz); err != nil {
			return err
		}
	}

	a.config = cfg
	a.onClose("config", func(context.Context) error { return cfg.Close() })
	return nil
}

func (a *App) initInstrument() error {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		return err
	}

	a.ins = ins
	a.onClose("instrument", ins.Shutdown)
	return nil
}

func (a *App) initLibraries() error {
	hmac, err := hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"), "credential.otp")
	if err != nil {
		return err
	}
	v, err := validator.New()
	if err != nil {
		return err
	}
	snow, err := uid.NewSnowflakeNode(a.config.GetInt64("app.node_id"))
	if err != nil {
		return err
	}

	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.uid = snow
	a.hmac = hmac
	a.validator = v
	a.otpGen = otp.NewNumeric()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	return nil
}

func (a *App) initJWT() error {
	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		return err
	}

	a.jwt = signer
	return nil
}

func (a *App) initCasbin() error {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return err
	}
	if err := seedAuthz(e, a.config.GetArray("authz.policies"), a.config.GetMap("authz.roles")); err != nil {
		return err
	}

	a.casbin = e
	return nil
}

func (a *App) initHTTPServer() error {
	a.router = router.NewRouter(router.Config{
		Config:       a.config,
		UUID:         a.uuid,
		JWT:          a.jwt,
		Instrument:   a.ins,
		Enforcer:     a.casbin,
		PublicRoutes: a.config.GetArray("app.server.public_routes"),
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   a.config.GetArray("app.server.cors"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", router.HeaderCorrelationID},
		ExposedHeaders:   []string{router.HeaderCorrelationID, "Retry-After"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              strings.TrimSpace(a.config.GetString("app.server.http.address")),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
	return nil
}
