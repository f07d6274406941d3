package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned when the selected broker cannot honor a
	// publish setting, such as delayed delivery.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned by Publish for an empty destination.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrSourceRequired is returned by Consume for an empty source.
	ErrSourceRequired = errors.New("messaging: source is required")
	// ErrHandlerRequired is returned by Consume for a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned when the broker needs a consumer group and
	// WithGroup was not given.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
)

// Messaging publishes and consumes messages on one broker.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer receives messages from a source and blocks until ctx is done or
// the broker fails.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one received message. With WithAutoAck a nil error acks
// the message and a non-nil error asks the broker to redeliver it.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to be published.
type OutgoingMessage struct {
	Body []byte
	// Key is the partition key on Kafka and the ordering key on Pub/Sub.
	Key []byte
	// Headers travel as Kafka headers, NATS headers or Pub/Sub attributes.
	// NSQ has no headers and drops them.
	Headers []Header
	// Delay defers delivery. Only NSQ supports it.
	Delay time.Duration
}

// Header is a message header. Keys may repeat.
type Header struct {
	Key   string
	Value []byte
}

// HeaderValue returns the first non-empty value for key.
func HeaderValue(headers []Header, key string) string {
	for _, h := range headers {
		if h.Key == key && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}

// PublishResult reports what the broker returned, when it returns anything.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	ID() string
	Topic() string
	Timestamp() time.Time
	// Attempts is the delivery count, starting at 1, when the broker tracks it.
	Attempts() int

	// Ack marks the message processed. Only the first of Ack or Nack counts.
	Ack(ctx context.Context) error
	// Nack asks the broker to redeliver the message.
	Nack(ctx context.Context) error
}

func checkPublish(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}

func checkConsume(ctx context.Context, source string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrSourceRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
