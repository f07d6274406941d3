package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

const kafkaMaxFetchBytes = 10e6

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers []string
	// Dialer is used by readers. Its client id, timeout, TLS and SASL settings
	// are copied to the writer transport.
	Dialer *kafka.Dialer
}

// Kafka is a messaging implementation backed by kafka-go. One writer serves
// every topic; each Consume call owns a group reader.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer
	writer  *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
	closed  bool
}

// NewKafka constructs a Kafka client. Connections are opened lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	if d := cfg.Dialer; d != nil {
		writer.Transport = &kafka.Transport{
			ClientID:    d.ClientID,
			DialTimeout: d.Timeout,
			TLS:         d.TLS,
			SASL:        d.SASLMechanism,
		}
	}

	return &Kafka{
		brokers: slices.Clone(cfg.Brokers),
		dialer:  cfg.Dialer,
		writer:  writer,
	}, nil
}

// Close stops every reader and flushes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	var err error
	for _, r := range readers {
		err = errors.Join(err, r.Close())
	}
	return errors.Join(err, k.writer.Close())
}

// Publish writes one message. Messages with the same key land on the same
// partition.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}
	if k.isClosed() {
		return PublishResult{}, io.ErrClosedPipe
	}

	kmsg := kafka.Message{
		Topic: destination,
		Key:   msg.Key,
		Value: msg.Body,
		Time:  time.Now(),
	}
	for _, h := range msg.Headers {
		if h.Key != "" {
			kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: h.Key, Value: h.Value})
		}
	}

	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return PublishResult{Topic: destination, Timestamp: kmsg.Time}, nil
}

// Consume reads the topic as the consumer group given by WithGroup. Offsets
// are committed on ack; a nacked message stays uncommitted and is read again
// after a rebalance or restart. A failed commit stops consumption.
func (k *Kafka) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(ctx, source, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	reader, err := k.openReader(source, co.group)
	if err != nil {
		return err
	}
	defer k.closeReader(reader)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	fetched := make(chan kafka.Message)
	var wg sync.WaitGroup
	for range co.workers() {
		wg.Go(func() {
			for m := range fetched {
				if _, err := dispatch(ctx, DriverKafka, handler, newKafkaDelivery(reader, m), co.autoAck); err != nil {
					cancel(fmt.Errorf("messaging: kafka commit: %w", err))
					return
				}
			}
		})
	}

	err = fetchKafka(ctx, reader, fetched)
	wg.Wait()
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return fmt.Errorf("messaging: kafka fetch: %w", err)
}

func fetchKafka(ctx context.Context, reader *kafka.Reader, out chan<- kafka.Message) error {
	defer close(out)

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (k *Kafka) isClosed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

func (k *Kafka) openReader(topic, group string) (*kafka.Reader, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, io.ErrClosedPipe
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  group,
		Topic:    topic,
		MaxBytes: kafkaMaxFetchBytes,
		Dialer:   k.dialer,
	})
	k.readers = append(k.readers, reader)
	return reader, nil
}

func (k *Kafka) closeReader(reader *kafka.Reader) {
	k.mu.Lock()
	i := slices.Index(k.readers, reader)
	if i >= 0 {
		k.readers = slices.Delete(k.readers, i, i+1)
	}
	k.mu.Unlock()

	// Close already ran it when the reader is gone from the list.
	if i >= 0 {
		_ = reader.Close() //nolint:errcheck // best effort on shutdown
	}
}

func newKafkaDelivery(reader *kafka.Reader, m kafka.Message) *delivery {
	d := &delivery{
		body:      m.Value,
		key:       m.Key,
		id:        fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		topic:     m.Topic,
		timestamp: m.Time,
		ack: func(ctx context.Context) error {
			return reader.CommitMessages(ctx, m)
		},
	}
	for _, h := range m.Headers {
		d.headers = append(d.headers, Header{Key: h.Key, Value: h.Value})
	}
	return d
}
