package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures NewGCS.
type GCSOptions struct {
	// ClientOptions usually carry credentials resolved through
	// golang.org/x/oauth2/google.
	ClientOptions []option.ClientOption
	// GoogleAccessID and PrivateKey sign URLs locally when both are set.
	// Otherwise signing uses the client's own credentials.
	GoogleAccessID string
	PrivateKey     []byte
}

// GCS stores objects on Google Cloud Storage.
type GCS struct {
	client   *gcs.Client
	accessID string
	key      []byte
}

func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	client, err := gcs.NewClient(ctx, opts.ClientOptions...)
	if err != nil {
		return nil, err
	}

	g := &GCS{client: client}
	if opts.GoogleAccessID != "" && len(opts.PrivateKey) > 0 {
		g.accessID, g.key = opts.GoogleAccessID, opts.PrivateKey
	}
	return g, nil
}

// PutObject streams r to a new object. The object exists only once the
// writer closes without error; a failed copy abandons it.
func (g *GCS) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata

	if _, err := io.Copy(w, r); err != nil {
		// canceling before Close discards the partial upload
		cancel()
		return ObjectInfo{}, errors.Join(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, err
	}

	info := ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        opts.Size,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}
	if attrs := w.Attrs(); attrs != nil {
		info.Size, info.ETag = attrs.Size, attrs.Etag
	}
	return info, nil
}

func (g *GCS) DeleteObject(ctx context.Context, bucket, key string) error {
	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) PresignPut(_ context.Context, bucket, key string, opts PutOptions, expiry time.Duration) (string, error) {
	signOpts := &gcs.SignedURLOptions{
		Method:      http.MethodPut,
		Expires:     time.Now().Add(expiry),
		ContentType: opts.ContentType,
		Scheme:      gcs.SigningSchemeV4,
	}
	if g.accessID != "" {
		signOpts.GoogleAccessID, signOpts.PrivateKey = g.accessID, g.key
	}

	u, err := g.client.Bucket(bucket).SignedURL(key, signOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingSigner, err)
	}
	return u, nil
}

func (g *GCS) Close() error { return g.client.Close() }
