package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrMissingSigner is returned by PresignPut when the backend holds no key
// able to sign URLs.
var ErrMissingSigner = errors.New("storage: no credentials to sign urls")

// Storage is what the upload broker needs from an object store.
type Storage interface {
	io.Closer

	// PutObject returns after the backend has durably accepted r.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	// DeleteObject is a no-op for keys that do not exist.
	DeleteObject(ctx context.Context, bucket, key string) error
	// PresignPut returns a URL that accepts a single PUT of the object body
	// until expiry. Backends bind opts.ContentType into the signature.
	PresignPut(ctx context.Context, bucket, key string, opts PutOptions, expiry time.Duration) (string, error)
}

// PutOptions describe the object being written. Size is -1 when unknown.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what a backend reports about a stored object.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
}
