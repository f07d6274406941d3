package inbound

import (
	"bytes"

	"github.com/shandysiswandi/estatebite/internal/media/entity"
	"github.com/shandysiswandi/estatebite/internal/media/usecase"
	"github.com/shandysiswandi/estatebite/internal/pkg/jwt"
	"github.com/shandysiswandi/estatebite/internal/pkg/router"
)

// multipartOverhead leaves room for boundaries and the purpose field.
const multipartOverhead = 1 << 20

type HTTPEndpoint struct {
	uc           uc
	maxBodyBytes int64
}

func ownerID(r *router.Request) int64 {
	return jwt.ActorID(r.Context())
}

// Presign creates a signed URL for a direct-to-storage upload.
// @Summary Create presigned upload
// @Description Validates the declared file and returns a short-lived URL the client PUTs the bytes to.
// @Tags Media
// @Accept json
// @Produce json
// @Param request body PresignRequest true "Presign payload"
// @Success 200 {object} router.successResponse{data=PresignResponse} "Upload URL created"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 413 {object} router.errorResponse "File too large"
// @Failure 415 {object} router.errorResponse "Unsupported content type"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Service temporarily unavailable"
// @Router /api/v1/media/uploads/presign [post]
func (h *HTTPEndpoint) Presign(r *router.Request) (any, error) {
	var req PresignRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	size := int64(-1)
	if req.SizeBytes != nil {
		size = *req.SizeBytes
	}

	resp, err := h.uc.CreatePresignedUpload(r.Context(), usecase.PresignInput{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Purpose:     entity.ParsePurpose(req.Purpose),
		SizeBytes:   size,
		OwnerID:     ownerID(r),
	})
	if err != nil {
		return nil, err
	}

	return PresignResponse{
		UploadURL:  resp.UploadURL,
		StorageKey: resp.StorageKey,
		Bucket:     resp.Bucket,
		PublicURL:  resp.PublicURL,
		ExpiresAt:  resp.ExpiresAt,
	}, nil
}

// Upload stores a multipart file through the service.
// @Summary Upload file
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Param purpose formData string true "property-media or avatar"
// @Success 201 {object} router.successResponse{data=UploadResponse} "File uploaded"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 413 {object} router.errorResponse "File too large"
// @Failure 415 {object} router.errorResponse "Unsupported content type"
// @Failure 503 {object} router.errorResponse "Service temporarily unavailable"
// @Router /api/v1/media/uploads [post]
func (h *HTTPEndpoint) Upload(r *router.Request) (any, error) {
	file, err := r.ReadFormFile("file", h.maxBodyBytes+multipartOverhead)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.UploadBuffered(r.Context(), usecase.UploadInput{
		Body:        bytes.NewReader(file.Content),
		SizeBytes:   int64(len(file.Content)),
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Purpose:     entity.ParsePurpose(r.FormValue("purpose")),
		OwnerID:     ownerID(r),
	})
	if err != nil {
		return nil, err
	}

	return UploadResponse{
		StorageKey:  resp.StorageKey,
		PublicURL:   resp.PublicURL,
		Bucket:      resp.Bucket,
		SizeBytes:   resp.SizeBytes,
		FileName:    resp.FileName,
		ContentType: resp.ContentType,
	}, nil
}
