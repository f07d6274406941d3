package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemory_PutAndDelete(t *testing.T) {
	// Arrange
	m := NewMemory(MemoryOptions{})
	ctx := context.Background()

	// Act
	info, err := m.PutObject(ctx, "media", "avatar/a.png", strings.NewReader("png-bytes"), PutOptions{
		Size:        -1,
		ContentType: "image/png",
		Metadata:    map[string]string{"original-name": "me.png"},
	})

	// Assert
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 9 || info.ETag == "" || info.ContentType != "image/png" {
		t.Fatalf("unexpected info %+v", info)
	}
	data, _, ok := m.Object("media", "avatar/a.png")
	if !ok || string(data) != "png-bytes" {
		t.Fatalf("object not stored: %q %v", data, ok)
	}

	if err := m.DeleteObject(ctx, "media", "avatar/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteObject(ctx, "media", "avatar/a.png"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty store, got %d", m.Len())
	}
}

func TestMemory_PutCancelled(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.PutObject(ctx, "media", "k", strings.NewReader("x"), PutOptions{})

	if !errors.Is(err, context.Canceled) || m.Len() != 0 {
		t.Fatalf("expected cancelled put to store nothing, got %v", err)
	}
}

func TestMemory_PresignPut(t *testing.T) {
	m := NewMemory(MemoryOptions{BaseURL: "http://localhost:9000/"})

	got, err := m.PresignPut(context.Background(), "media", "property-media/x.jpg", PutOptions{}, 15*time.Minute)

	if err != nil || got != "http://localhost:9000/media/property-media/x.jpg?expires=900" {
		t.Fatalf("unexpected url %q %v", got, err)
	}
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), Config{Driver: " Memory "})
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", s)
	}

	if _, err := New(context.Background(), Config{Driver: "ftp"}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}
