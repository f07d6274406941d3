package otp

import (
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNumericGenerate(t *testing.T) {
	gen := NewNumeric()

	for _, length := range []int{1, 4, 6, 8, 32} {
		// Act
		code, err := gen.Generate(length)

		// Assert
		if err != nil {
			t.Fatalf("generate(%d): unexpected error: %v", length, err)
		}
		if len(code) != length {
			t.Fatalf("generate(%d): got length %d", length, len(code))
		}
		if strings.Trim(code, "0123456789") != "" {
			t.Fatalf("generate(%d): non-digit in %q", length, code)
		}
	}
}

func TestNumericGenerateRejectsNonPositiveLength(t *testing.T) {
	gen := NewNumeric()

	for _, length := range []int{0, -1} {
		code, err := gen.Generate(length)
		if !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("generate(%d): expected ErrInvalidLength, got %v", length, err)
		}
		if code != "" {
			t.Fatalf("generate(%d): expected empty code, got %q", length, code)
		}
	}
}

func TestNumericGenerateSourceFailure(t *testing.T) {
	gen := &Numeric{source: failingReader{}}

	if _, err := gen.Generate(6); err == nil {
		t.Fatal("expected error from failing random source")
	}
}

func TestNumericGenerateCoversAllDigits(t *testing.T) {
	// Arrange
	gen := NewNumeric()
	seen := make(map[rune]int)

	// Act
	for range 200 {
		code, err := gen.Generate(10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, r := range code {
			seen[r]++
		}
	}

	// Assert
	for d := '0'; d <= '9'; d++ {
		if seen[d] < 100 {
			t.Fatalf("digit %c appeared %d times out of 2000, distribution looks skewed", d, seen[d])
		}
	}
}

func TestNumericGenerateNotRepeating(t *testing.T) {
	gen := NewNumeric()
	seen := make(map[string]struct{})

	for range 50 {
		code, err := gen.Generate(16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate 16-digit code %q", code)
		}
		seen[code] = struct{}{}
	}
}
