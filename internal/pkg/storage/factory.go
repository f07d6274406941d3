package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverS3     = "s3"
	DriverGCS    = "gcs"
	DriverMinIO  = "minio"
	DriverMemory = "memory"
)

// ErrUnknownDriver is returned by New for a driver it does not know.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Config selects a backend by Driver. Only the section for that driver is read.
type Config struct {
	Driver string
	S3     S3Options
	GCS    GCSOptions
	MinIO  MinIOOptions
	Memory MemoryOptions
}

// New builds the backend named by cfg.Driver. Matching ignores case and
// surrounding space.
func New(ctx context.Context, cfg Config) (Storage, error) {
	var (
		stg Storage
		err error
	)
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case DriverS3:
		stg, err = NewS3(ctx, cfg.S3)
	case DriverGCS:
		stg, err = NewGCS(ctx, cfg.GCS)
	case DriverMinIO:
		stg, err = NewMinIO(ctx, cfg.MinIO)
	case DriverMemory:
		stg = NewMemory(cfg.Memory)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return stg, nil
}
