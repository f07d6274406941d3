package mailtpl

import (
	"strings"
	"testing"
	"time"
)

func TestRenderCode(t *testing.T) {
	// Arrange
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	data := CodeData{Code: "042917", Purpose: "password-reset", Now: now, ExpiresAt: now.Add(5 * time.Minute)}

	// Act
	html, text, err := RenderCode(data)

	// Assert
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "042917") || !strings.Contains(text, "042917") {
		t.Fatalf("expected code in both bodies, got html=%q text=%q", html, text)
	}
	if !strings.Contains(text, "5 minute(s)") {
		t.Fatalf("expected expiry minutes in text, got %q", text)
	}
}

func TestCodeData_MinutesFloor(t *testing.T) {
	now := time.Now()
	d := CodeData{Now: now, ExpiresAt: now.Add(10 * time.Second)}
	if got := d.Minutes(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestCodeSubject(t *testing.T) {
	if got := CodeSubject("password-reset"); got != "Reset your EstateBite password" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := CodeSubject("unknown"); got != "Your EstateBite verification code" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
