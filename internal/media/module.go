package media

import (
	"strings"

	"github.com/shandysiswandi/estatebite/internal/media/inbound"
	"github.com/shandysiswandi/estatebite/internal/media/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/clock"
	"github.com/shandysiswandi/estatebite/internal/pkg/config"
	"github.com/shandysiswandi/estatebite/internal/pkg/instrument"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
	"github.com/shandysiswandi/estatebite/internal/pkg/storage"
	"github.com/shandysiswandi/estatebite/internal/pkg/uid"
	"github.com/shandysiswandi/estatebite/internal/pkg/validator"
)

type Dependency struct {
	Storage    storage.Storage            `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	policy := usecase.NewPolicy(
		dep.Config.GetArray("modules.media.allowed_content_types"),
		dep.Config.GetInt64("modules.media.max_upload_bytes"),
	)

	uc := usecase.New(usecase.Dependency{
		Storage:    dep.Storage,
		Policy:     policy,
		Validator:  dep.Validator,
		UID:        dep.UUID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
		Options: usecase.Options{
			Bucket:         strings.TrimSpace(dep.Config.GetString("modules.media.bucket")),
			PublicBaseURL:  strings.TrimSpace(dep.Config.GetString("modules.media.public_base_url")),
			PresignTTL:     dep.Config.GetMinute("modules.media.presign_ttl_minutes"),
			AllowAnonymous: dep.Config.GetBool("modules.media.allow_anonymous"),
			RetryBackoff:   dep.Config.GetMillisecond("modules.media.retry_backoff_ms"),
		},
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, policy.MaxBytes())

	return nil
}
