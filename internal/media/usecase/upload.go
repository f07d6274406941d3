package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/shandysiswandi/estatebite/internal/media/entity"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
	"github.com/shandysiswandi/estatebite/internal/pkg/storage"
)

var errStreamTooLarge = errors.New("media: stream exceeds limit")

type UploadInput struct {
	Body        io.Reader `validate:"required"`
	SizeBytes   int64     `validate:"gte=0"`
	FileName    string    `validate:"required,max=255"`
	ContentType string    `validate:"max=255"`
	Purpose     entity.Purpose
	OwnerID     int64 `validate:"gte=0"`
}

// UploadBuffered writes the body to storage and returns the descriptor once
// the backend has confirmed the write.
func (s *Usecase) UploadBuffered(ctx context.Context, in UploadInput) (*entity.Descriptor, error) {
	ctx, span := s.startSpan(ctx, "UploadBuffered")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.admit(in.Purpose, in.ContentType, in.SizeBytes, in.OwnerID); err != nil {
		s.count(ctx, "direct", in.OwnerID, "rejected")
		return nil, err
	}

	contentType := NormalizeContentType(in.ContentType)
	key := s.storageKey(in.Purpose, in.OwnerID, contentType)
	body := &guardedReader{r: in.Body, remaining: s.policy.MaxBytes()}

	info, err := s.storage.PutObject(ctx, s.opts.Bucket, key, body, storage.PutOptions{
		Size:        in.SizeBytes,
		ContentType: contentType,
		Metadata:    s.metadata(in.Purpose, in.OwnerID, in.FileName),
	})
	if body.exceeded {
		s.discard(ctx, key)
		s.count(ctx, "direct", in.OwnerID, "rejected")
		return nil, goerror.NewValidation("File exceeds the maximum allowed size", goerror.CodePayloadTooLarge)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to storage put object", "key", key, "error", err)
		s.count(ctx, "direct", in.OwnerID, "failed")
		return nil, goerror.NewDependency(err)
	}

	s.count(ctx, "direct", in.OwnerID, "success")
	s.bytes.Add(ctx, body.read)

	size := body.read
	if info.Size > 0 && info.Size != size {
		slog.WarnContext(ctx, "storage reported a different object size", "key", key, "read", size, "stored", info.Size)
	}

	return &entity.Descriptor{
		StorageKey:  key,
		PublicURL:   s.publicURL(key),
		Bucket:      s.opts.Bucket,
		SizeBytes:   size,
		FileName:    sanitizeFileName(in.FileName),
		ContentType: contentType,
	}, nil
}

// discard removes a partially written object; failures only get logged.
func (s *Usecase) discard(ctx context.Context, key string) {
	if err := s.storage.DeleteObject(context.WithoutCancel(ctx), s.opts.Bucket, key); err != nil {
		slog.ErrorContext(ctx, "failed to storage delete object", "key", key, "error", err)
	}
}

// guardedReader counts bytes and fails once more than remaining are read.
type guardedReader struct {
	r         io.Reader
	remaining int64
	read      int64
	exceeded  bool
}

func (g *guardedReader) Read(p []byte) (int, error) {
	if g.exceeded {
		return 0, errStreamTooLarge
	}
	if int64(len(p)) > g.remaining+1 {
		p = p[:g.remaining+1]
	}

	n, err := g.r.Read(p)
	g.read += int64(n)
	if int64(n) > g.remaining {
		g.exceeded = true
		return 0, errStreamTooLarge
	}
	g.remaining -= int64(n)

	return n, err
}
