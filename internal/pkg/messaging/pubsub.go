package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// ErrPubSubProjectIDRequired is returned when neither a client nor a project
// id is configured.
var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

// PubSubConfig configures the Google Pub/Sub driver.
type PubSubConfig struct {
	ProjectID string
	// Client is used as is when set. It is still closed by Close.
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
	// Ordering enables ordered delivery per OutgoingMessage.Key.
	Ordering bool
}

// PubSub is a messaging implementation backed by Google Pub/Sub. Headers
// travel as message attributes.
type PubSub struct {
	client   *pubsub.Client
	ordering bool

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewPubSub constructs a Pub/Sub client.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	client := cfg.Client
	if client == nil {
		if cfg.ProjectID == "" {
			return nil, ErrPubSubProjectIDRequired
		}

		var err error
		if client, err = pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...); err != nil {
			return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
		}
	}

	return &PubSub{
		client:     client,
		ordering:   cfg.Ordering,
		publishers: map[string]*pubsub.Publisher{},
	}, nil
}

// Close flushes pending publishes and closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	publishers := slices.Collect(maps.Values(p.publishers))
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range publishers {
		pub.Stop()
	}
	return p.client.Close()
}

// Publish sends one message and waits for the server id.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	pub, err := p.publisher(destination)
	if err != nil {
		return PublishResult{}, err
	}

	pmsg := &pubsub.Message{Data: msg.Body}
	if len(msg.Headers) > 0 {
		pmsg.Attributes = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			if _, seen := pmsg.Attributes[h.Key]; h.Key != "" && !seen {
				pmsg.Attributes[h.Key] = string(h.Value)
			}
		}
	}
	if p.ordering {
		pmsg.OrderingKey = string(msg.Key)
	}

	id, err := pub.Publish(ctx, pmsg).Get(ctx)
	if err != nil {
		if p.ordering && pmsg.OrderingKey != "" {
			pub.ResumePublish(pmsg.OrderingKey)
		}
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish: %w", err)
	}
	return PublishResult{MessageID: id, Topic: destination}, nil
}

// Consume receives from the subscription given by WithGroup. Without a group
// the source itself is taken as the subscription name. Nacked messages are
// redelivered by the subscription's retry policy.
func (p *PubSub) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(ctx, source, handler); err != nil {
		return err
	}
	if p.isClosed() {
		return io.ErrClosedPipe
	}
	co := newConsumeOptions(opts...)

	subscription := source
	if co.group != "" {
		subscription = co.group
	}

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = co.workers()
	if co.maxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		//nolint:errcheck // pubsub ack and nack report nothing synchronously
		_, _ = dispatch(ctx, DriverGooglePubSub, handler, newPubSubDelivery(source, m), co.autoAck)
	})
}

func (p *PubSub) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, io.ErrClosedPipe
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}

	pub := p.client.Publisher(topic)
	pub.EnableMessageOrdering = p.ordering
	p.publishers[topic] = pub
	return pub, nil
}

func newPubSubDelivery(topic string, m *pubsub.Message) *delivery {
	d := &delivery{
		body:      m.Data,
		key:       []byte(m.OrderingKey),
		id:        m.ID,
		topic:     topic,
		timestamp: m.PublishTime,
		attempts:  1,
		ack: func(context.Context) error {
			m.Ack()
			return nil
		},
		nack: func(context.Context) error {
			m.Nack()
			return nil
		},
	}
	if m.DeliveryAttempt != nil {
		d.attempts = *m.DeliveryAttempt
	}
	for _, k := range slices.Sorted(maps.Keys(m.Attributes)) {
		d.headers = append(d.headers, Header{Key: k, Value: []byte(m.Attributes[k])})
	}
	return d
}
