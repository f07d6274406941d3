package entity

import (
	"strings"
	"time"
)

// Purpose names the namespace an upload lands in.
type Purpose string

const (
	PurposePropertyMedia Purpose = "property-media"
	PurposeAvatar        Purpose = "avatar"
)

func (p Purpose) String() string { return string(p) }

func (p Purpose) IsKnown() bool {
	switch p {
	case PurposePropertyMedia, PurposeAvatar:
		return true
	default:
		return false
	}
}

func ParsePurpose(raw string) Purpose {
	return Purpose(strings.ToLower(strings.TrimSpace(raw)))
}

// Descriptor is the immutable result of a completed upload.
type Descriptor struct {
	StorageKey  string
	PublicURL   string
	Bucket      string
	SizeBytes   int64
	FileName    string
	ContentType string
}

// PresignedUpload is a time-boxed grant to PUT one object.
type PresignedUpload struct {
	UploadURL  string
	StorageKey string
	Bucket     string
	PublicURL  string
	ExpiresAt  time.Time
}
