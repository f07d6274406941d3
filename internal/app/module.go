package app

import (
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/credential"
	"github.com/shandysiswandi/estatebite/internal/media"
	"github.com/shandysiswandi/estatebite/internal/notification"
)

// initModules registers the enabled modules on the router and starts their
// background consumers.
func (a *App) initModules() error {
	modules := []struct {
		name string
		init func() error
	}{
		{"credential", func() error {
			return credential.New(credential.Dependency{
				Ctx:         a.ctx,
				DBConn:      a.dbConn,
				CacheConn:   a.cacheConn,
				Idempotency: a.idemp,
				Messaging:   a.messaging,
				Mail:        a.mail,
				Goroutine:   a.goroutine,
				Router:      a.router,
				Config:      a.config,
				Instrument:  a.ins,
				UID:         a.uid,
				Clock:       a.clock,
				Validator:   a.validator,
				Hash:        a.hmac,
				Generator:   a.otpGen,
			})
		}},
		{"media", func() error {
			return media.New(media.Dependency{
				Storage:    a.storage,
				Router:     a.router,
				Config:     a.config,
				Instrument: a.ins,
				UUID:       a.uuid,
				Clock:      a.clock,
				Validator:  a.validator,
			})
		}},
		{"notification", func() error {
			return notification.New(notification.Dependency{
				Ctx:         a.ctx,
				Messaging:   a.messaging,
				Idempotency: a.idemp,
				Mail:        a.mail,
				Config:      a.config,
				Instrument:  a.ins,
				UUID:        a.uuid,
				Clock:       a.clock,
				Goroutine:   a.goroutine,
				Validator:   a.validator,
			})
		}},
	}

	for _, m := range modules {
		if !a.config.GetBool("modules." + m.name + ".enabled") {
			slog.Info("module disabled", "module", m.name)
			continue
		}
		if err := m.init(); err != nil {
			return fmt.Errorf("module %s: %w", m.name, err)
		}
	}
	return nil
}
