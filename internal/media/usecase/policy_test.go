package usecase

import (
	"errors"
	"testing"

	"github.com/shandysiswandi/estatebite/internal/media/entity"
)

func TestPolicy_Check(t *testing.T) {
	p := NewPolicy(nil, 0)

	tests := []struct {
		name        string
		purpose     entity.Purpose
		contentType string
		size        int64
		want        error
	}{
		{name: "accepted", purpose: entity.PurposePropertyMedia, contentType: "image/png", size: 1024},
		{name: "accepted at ceiling", purpose: entity.PurposeAvatar, contentType: "image/jpeg", size: DefaultMaxBytes},
		{name: "unknown size skips ceiling", purpose: entity.PurposePropertyMedia, contentType: "video/mp4", size: -1},
		{name: "content type params ignored", purpose: entity.PurposeAvatar, contentType: " Image/WEBP; q=1 ", size: 10},
		{name: "missing purpose", purpose: "", contentType: "image/png", size: 10, want: ErrMissingPurpose},
		{name: "unknown purpose", purpose: "banner", contentType: "image/png", size: 10, want: ErrUnknownPurpose},
		{name: "unsupported type", purpose: entity.PurposeAvatar, contentType: "image/gif", size: 10, want: ErrUnsupportedContentType},
		{name: "empty type", purpose: entity.PurposeAvatar, contentType: "", size: 10, want: ErrUnsupportedContentType},
		{name: "too large", purpose: entity.PurposePropertyMedia, contentType: "application/pdf", size: DefaultMaxBytes + 1, want: ErrSizeExceedsLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Check(tt.purpose, tt.contentType, tt.size); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPolicy_Configured(t *testing.T) {
	p := NewPolicy([]string{"IMAGE/PNG", "image/png", " ", "application/json"}, 100)

	if err := p.Check(entity.PurposeAvatar, "image/jpeg", 1); !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("jpeg must not be allowed by a custom list, got %v", err)
	}
	if err := p.Check(entity.PurposeAvatar, "image/png", 101); !errors.Is(err, ErrSizeExceedsLimit) {
		t.Fatalf("expected custom ceiling, got %v", err)
	}
	if p.MaxBytes() != 100 {
		t.Fatalf("expected 100, got %d", p.MaxBytes())
	}
	if got := p.Extension("image/png"); got != ".png" {
		t.Fatalf("expected .png, got %q", got)
	}
	if got := p.Extension("application/json"); got != ".json" {
		t.Fatalf("expected .json, got %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"photo.png":              "photo.png",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\villa.jpeg`: "villa.jpeg",
		"rumah baru (1).webp":    "rumah_baru__1_.webp",
		"":                       "",
		"/":                      "",
	}
	for in, want := range tests {
		if got := sanitizeFileName(in); got != want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
