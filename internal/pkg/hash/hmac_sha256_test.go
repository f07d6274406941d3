package hash

import (
	"errors"
	"testing"
)

func TestHMACSHA256_HashAndVerify(t *testing.T) {
	// Arrange
	h, err := NewHMACSHA256("super-secret", "credential.otp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Act
	digest, err := h.Hash("123456")

	// Assert
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(digest) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digest))
	}
	if !h.Verify(string(digest), "123456") {
		t.Fatalf("expected verify to succeed")
	}
	if h.Verify(string(digest), "123457") {
		t.Fatalf("expected verify to fail for a different code")
	}
}

func TestHMACSHA256_Deterministic(t *testing.T) {
	h, err := NewHMACSHA256("super-secret", "credential.otp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a, _ := h.Hash("000111")
	b, _ := h.Hash("000111")
	if string(a) != string(b) {
		t.Fatalf("expected identical digests, got %s and %s", a, b)
	}
}

func TestHMACSHA256_LabelSeparatesKeys(t *testing.T) {
	h1, err := NewHMACSHA256("super-secret", "credential.otp")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h2, err := NewHMACSHA256("super-secret", "other")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a, _ := h1.Hash("123456")
	b, _ := h2.Hash("123456")
	if string(a) == string(b) {
		t.Fatalf("expected different digests for different labels")
	}
}

func TestHMACSHA256_EmptySecret(t *testing.T) {
	_, err := NewHMACSHA256("", "credential.otp")
	if !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}
