package inbound

import (
	"context"

	"github.com/shandysiswandi/estatebite/internal/credential/entity"
	"github.com/shandysiswandi/estatebite/internal/credential/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*usecase.IssueOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
	Revoke(ctx context.Context, in usecase.RevokeInput) error
	RevokeAll(ctx context.Context, in usecase.RevokeAllInput) (*usecase.RevokeAllOutput, error)
	SweepExpired(ctx context.Context) (*usecase.SweepOutput, error)
	LatestActive(ctx context.Context, in usecase.LatestActiveInput) (*entity.Credential, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/credentials/otp", end.Issue)
	r.POST("/api/v1/credentials/otp/verify", end.Verify)

	// operator endpoints
	r.GET("/api/v1/credentials/otp/latest", end.LatestActive, r.Authorize("credential", "read"))
	r.DELETE("/api/v1/credentials/otp/:id", end.Revoke, r.Authorize("credential", "revoke"))
	r.POST("/api/v1/credentials/otp/revoke-all", end.RevokeAll, r.Authorize("credential", "revoke"))
	r.POST("/api/v1/credentials/otp/sweep", end.Sweep, r.Authorize("credential", "sweep"))
}
