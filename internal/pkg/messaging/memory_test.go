package messaging

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func groupCount(m *Memory, topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics[topic])
}

func TestMemory_FanOutPerGroup(t *testing.T) {
	// Arrange
	m := NewMemory(MemoryConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var audit, mailer atomic.Int32
	done := make(chan error, 3)
	go func() {
		done <- m.Consume(ctx, "credential.issued", func(context.Context, Message) error {
			audit.Add(1)
			return nil
		}, WithGroup("audit"), WithAutoAck(true))
	}()
	for range 2 {
		go func() {
			done <- m.Consume(ctx, "credential.issued", func(context.Context, Message) error {
				mailer.Add(1)
				return nil
			}, WithGroup("mailer"), WithAutoAck(true))
		}()
	}
	waitFor(t, func() bool { return groupCount(m, "credential.issued") == 2 })

	// Act
	for range 10 {
		if _, err := m.Publish(ctx, "credential.issued", OutgoingMessage{Body: []byte("{}")}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	// Assert
	waitFor(t, func() bool { return audit.Load() == 10 && mailer.Load() == 10 })
	cancel()
	for range 3 {
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Fatalf("consume returned %v", err)
		}
	}
}

func TestMemory_NackRedeliversUntilMaxAttempts(t *testing.T) {
	// Arrange
	m := NewMemory(MemoryConfig{MaxAttempts: 3})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	var lastAttempt atomic.Int32
	go func() {
		_ = m.Consume(ctx, "t", func(_ context.Context, msg Message) error {
			calls.Add(1)
			if a, ok := msg.(interface{ Attempts() int }); ok {
				lastAttempt.Store(int32(a.Attempts()))
			}
			return errors.New("smtp down")
		}, WithAutoAck(true))
	}()
	waitFor(t, func() bool { return groupCount(m, "t") == 1 })

	// Act
	if _, err := m.Publish(ctx, "t", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Assert
	waitFor(t, func() bool { return calls.Load() == 3 })
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 deliveries, got %d", got)
	}
	if got := lastAttempt.Load(); got != 3 {
		t.Fatalf("expected last attempt 3, got %d", got)
	}
}

func TestMemory_ErrorWithoutAutoAckIsNotRedelivered(t *testing.T) {
	// Arrange
	m := NewMemory(MemoryConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = m.Consume(ctx, "t", func(context.Context, Message) error {
			calls.Add(1)
			return errors.New("boom")
		})
	}()
	waitFor(t, func() bool { return groupCount(m, "t") == 1 })

	// Act
	if _, err := m.Publish(ctx, "t", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Assert
	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single delivery, got %d", got)
	}
}

func TestMemory_PublishEdges(t *testing.T) {
	ctx := context.Background()

	t.Run("no consumers drops", func(t *testing.T) {
		m := NewMemory(MemoryConfig{})
		res, err := m.Publish(ctx, "t", OutgoingMessage{Body: []byte("x")})
		if err != nil || res.MessageID == "" || res.Topic != "t" {
			t.Fatalf("unexpected result %+v err=%v", res, err)
		}
	})

	t.Run("empty topic", func(t *testing.T) {
		m := NewMemory(MemoryConfig{})
		if _, err := m.Publish(ctx, "", OutgoingMessage{}); !errors.Is(err, ErrDestinationRequired) {
			t.Fatalf("expected ErrDestinationRequired, got %v", err)
		}
	})

	t.Run("delay unsupported", func(t *testing.T) {
		m := NewMemory(MemoryConfig{})
		if _, err := m.Publish(ctx, "t", OutgoingMessage{Delay: time.Second}); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		m := NewMemory(MemoryConfig{})
		if err := m.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if _, err := m.Publish(ctx, "t", OutgoingMessage{}); !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("expected io.ErrClosedPipe, got %v", err)
		}
		if err := m.Consume(ctx, "t", func(context.Context, Message) error { return nil }); !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("expected io.ErrClosedPipe on consume, got %v", err)
		}
	})
}

func TestNew_Memory(t *testing.T) {
	// Act
	client, err := New(context.Background(), Config{Driver: " Memory "})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", client)
	}

	if _, err := New(context.Background(), Config{Driver: "rabbitmq"}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}
