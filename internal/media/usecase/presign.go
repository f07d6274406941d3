package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/media/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"github.com/shandysiswandi/estatebite/internal/pkg/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type PresignInput struct {
	FileName    string `validate:"required,max=255"`
	ContentType string `validate:"max=255"`
	Purpose     entity.Purpose
	// SizeBytes is the declared size, -1 when the client does not know it.
	SizeBytes int64 `validate:"gte=-1"`
	OwnerID   int64 `validate:"gte=0"`
}

// CreatePresignedUpload validates the declared upload and returns a signed
// PUT URL for a freshly derived key. No bytes pass through the service.
func (s *Usecase) CreatePresignedUpload(ctx context.Context, in PresignInput) (*entity.PresignedUpload, error) {
	ctx, span := s.startSpan(ctx, "CreatePresignedUpload")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.admit(in.Purpose, in.ContentType, in.SizeBytes, in.OwnerID); err != nil {
		s.count(ctx, "presign", in.OwnerID, "rejected")
		return nil, err
	}

	contentType := NormalizeContentType(in.ContentType)
	key := s.storageKey(in.Purpose, in.OwnerID, contentType)
	opts := storage.PutOptions{
		Size:        in.SizeBytes,
		ContentType: contentType,
		Metadata:    s.metadata(in.Purpose, in.OwnerID, in.FileName),
	}

	var uploadURL string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		u, err := s.storage.PresignPut(ctx, s.opts.Bucket, key, opts, s.opts.PresignTTL)
		if err != nil {
			return err
		}
		uploadURL = u
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to storage presign put", "key", key, "error", err)
		s.count(ctx, "presign", in.OwnerID, "failed")
		return nil, goerror.NewDependency(err)
	}

	s.count(ctx, "presign", in.OwnerID, "success")

	return &entity.PresignedUpload{
		UploadURL:  uploadURL,
		StorageKey: key,
		Bucket:     s.opts.Bucket,
		PublicURL:  s.publicURL(key),
		ExpiresAt:  s.clock.Now().Add(s.opts.PresignTTL),
	}, nil
}

func (s *Usecase) count(ctx context.Context, flow string, ownerID int64, result string) {
	s.uploads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("owner", ownerAttr(ownerID)),
		attribute.String("result", result),
	))
}
