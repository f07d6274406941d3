package messaging

import (
	"context"
	"io"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const memoryDefaultGroup = "default"

// MemoryConfig configures the in-process driver.
type MemoryConfig struct {
	// Buffer is the queue capacity per consumer group. Defaults to 256.
	Buffer int
	// MaxAttempts caps deliveries of a nacked message. Defaults to 5.
	MaxAttempts int
}

// Memory is an in-process broker for local runs and tests. Every consumer
// group on a topic receives each message once and members of a group share
// the load. A topic without groups drops what is published to it.
type Memory struct {
	buffer      int
	maxAttempts int
	seq         atomic.Uint64

	mu     sync.Mutex
	topics map[string]map[string]chan *memoryRecord
	closed bool
}

type memoryRecord struct {
	id        string
	topic     string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time
	attempts  int
}

// NewMemory constructs an in-process messaging client.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	return &Memory{
		buffer:      cfg.Buffer,
		maxAttempts: cfg.MaxAttempts,
		topics:      map[string]map[string]chan *memoryRecord{},
	}
}

// Close stops accepting publishes and new consumers. Running consumers exit
// with their context.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return PublishResult{}, io.ErrClosedPipe
	}
	queues := make([]chan *memoryRecord, 0, len(m.topics[destination]))
	for _, q := range m.topics[destination] {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	id := strconv.FormatUint(m.seq.Add(1), 10)
	now := time.Now()
	for _, q := range queues {
		rec := &memoryRecord{
			id:        id,
			topic:     destination,
			body:      slices.Clone(msg.Body),
			key:       slices.Clone(msg.Key),
			headers:   slices.Clone(msg.Headers),
			timestamp: now,
		}
		select {
		case q <- rec:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{MessageID: id, Topic: destination, Timestamp: now}, nil
}

// Consume joins the group given by WithGroup, or "default", and blocks until
// ctx is done.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(ctx, source, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)

	group := co.group
	if group == "" {
		group = memoryDefaultGroup
	}
	queue, err := m.join(source, group)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range co.workers() {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case rec := <-queue:
					m.deliver(ctx, queue, rec, handler, co.autoAck)
				}
			}
		})
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (m *Memory) join(topic, group string) (chan *memoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, io.ErrClosedPipe
	}
	groups, ok := m.topics[topic]
	if !ok {
		groups = map[string]chan *memoryRecord{}
		m.topics[topic] = groups
	}
	q, ok := groups[group]
	if !ok {
		q = make(chan *memoryRecord, m.buffer)
		groups[group] = q
	}
	return q, nil
}

func (m *Memory) deliver(ctx context.Context, queue chan *memoryRecord, rec *memoryRecord, handler Handler, autoAck bool) {
	rec.attempts++

	var requeue atomic.Bool
	d := &delivery{
		body:      rec.body,
		key:       rec.key,
		headers:   rec.headers,
		id:        rec.id,
		topic:     rec.topic,
		timestamp: rec.timestamp,
		attempts:  rec.attempts,
		nack: func(context.Context) error {
			requeue.Store(true)
			return nil
		},
	}

	//nolint:errcheck // memory ack and nack cannot fail
	_, _ = dispatch(ctx, DriverMemory, handler, d, autoAck)
	if !requeue.Load() || rec.attempts >= m.maxAttempts {
		return
	}

	// off the worker so a full queue cannot stall it
	go func() {
		select {
		case queue <- rec:
		case <-ctx.Done():
		}
	}()
}
