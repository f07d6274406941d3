package inbound

import (
	"context"

	"github.com/shandysiswandi/estatebite/internal/media/entity"
	"github.com/shandysiswandi/estatebite/internal/media/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
)

type uc interface {
	CreatePresignedUpload(ctx context.Context, in usecase.PresignInput) (*entity.PresignedUpload, error)
	UploadBuffered(ctx context.Context, in usecase.UploadInput) (*entity.Descriptor, error)
}

// RegisterHTTPEndpoint mounts the upload routes. maxBodyBytes caps the
// multipart body of the direct flow.
func RegisterHTTPEndpoint(r *router.Router, uc uc, maxBodyBytes int64) {
	end := &HTTPEndpoint{uc: uc, maxBodyBytes: maxBodyBytes}

	r.POST("/api/v1/media/uploads/presign", end.Presign)
	r.POST("/api/v1/media/uploads", end.Upload)
}
