package clock

import (
	"testing"
	"time"
)

func TestFrozen(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewFrozen(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}

	c.Advance(5 * time.Minute)

	if want := start.Add(5 * time.Minute); !c.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, c.Now())
	}
}

func TestNew(t *testing.T) {
	before := time.Now()
	got := New().Now()

	if got.Before(before) {
		t.Fatalf("wall clock went backwards: %v < %v", got, before)
	}
}
