package usecase

import (
	"errors"
	"mime"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/estatebite/internal/media/entity"
)

// DefaultMaxBytes is the upload ceiling when none is configured.
const DefaultMaxBytes int64 = 50 << 20

var (
	ErrMissingPurpose         = errors.New("media: missing purpose")
	ErrUnknownPurpose         = errors.New("media: unknown purpose")
	ErrUnsupportedContentType = errors.New("media: unsupported content type")
	ErrSizeExceedsLimit       = errors.New("media: size exceeds limit")
)

// DefaultContentTypes is the allow-list used when none is configured.
var DefaultContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/pdf",
	"video/mp4",
	"video/quicktime",
}

var knownExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
}

// Policy decides whether a declared upload may proceed. It performs no I/O.
type Policy struct {
	allowed  map[string]string
	maxBytes int64
}

// NewPolicy builds a policy from an allow-list and a byte ceiling. Empty or
// non-positive values fall back to the defaults.
func NewPolicy(contentTypes []string, maxBytes int64) *Policy {
	types := lo.Uniq(lo.FilterMap(contentTypes, func(ct string, _ int) (string, bool) {
		n := NormalizeContentType(ct)
		return n, n != ""
	}))
	if len(types) == 0 {
		types = DefaultContentTypes
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Policy{
		allowed:  lo.SliceToMap(types, func(ct string) (string, string) { return ct, extensionFor(ct) }),
		maxBytes: maxBytes,
	}
}

// Check returns nil when the upload is acceptable. A negative size means the
// size is not known yet and skips the ceiling check.
func (p *Policy) Check(purpose entity.Purpose, contentType string, size int64) error {
	if strings.TrimSpace(purpose.String()) == "" {
		return ErrMissingPurpose
	}
	if !purpose.IsKnown() {
		return ErrUnknownPurpose
	}
	if _, ok := p.allowed[NormalizeContentType(contentType)]; !ok {
		return ErrUnsupportedContentType
	}
	if size >= 0 && size > p.maxBytes {
		return ErrSizeExceedsLimit
	}
	return nil
}

func (p *Policy) MaxBytes() int64 { return p.maxBytes }

// Extension returns the object key suffix for an allowed content type.
func (p *Policy) Extension(contentType string) string {
	return p.allowed[NormalizeContentType(contentType)]
}

// NormalizeContentType lowercases and strips parameters, so
// "Image/PNG; charset=binary" becomes "image/png".
func NormalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

func extensionFor(ct string) string {
	if ext, ok := knownExtensions[ct]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
