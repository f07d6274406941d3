package inbound

import (
	"net/http"
	"time"
)

type PresignRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Purpose     string `json:"purpose"`
	SizeBytes   *int64 `json:"size_bytes,omitempty"`
}

type PresignResponse struct {
	UploadURL  string    `json:"upload_url"`
	StorageKey string    `json:"storage_key"`
	Bucket     string    `json:"bucket"`
	PublicURL  string    `json:"public_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (PresignResponse) Message() string {
	return "Upload URL created"
}

type UploadResponse struct {
	StorageKey  string `json:"storage_key"`
	PublicURL   string `json:"public_url"`
	Bucket      string `json:"bucket"`
	SizeBytes   int64  `json:"size_bytes"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (UploadResponse) StatusCode() int {
	return http.StatusCreated
}

func (UploadResponse) Message() string {
	return "File uploaded"
}
