package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a messaging implementation backed by core NATS. Messages that
// arrive through a JetStream consumer also carry sequence and delivery count.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}
	return &NATS{conn: conn}, nil
}

// Close drains every subscription and the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	var err error
	for _, sub := range subs {
		err = errors.Join(err, ignoreNATSClosed(sub.Drain()))
	}
	err = errors.Join(err, ignoreNATSClosed(n.conn.Drain()))
	n.conn.Close()
	return err
}

func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for _, h := range msg.Headers {
		if h.Key != "" {
			nmsg.Header.Add(h.Key, string(h.Value))
		}
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.Flush(); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Consume joins the queue group given by WithGroup, or subscribes on its own
// when no group is set.
func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(ctx, source, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbox := make(chan *nats.Msg, co.workers())
	sub, err := n.conn.QueueSubscribe(source, co.group, func(m *nats.Msg) {
		select {
		case inbox <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}
	if err := n.track(sub); err != nil {
		return errors.Join(err, sub.Unsubscribe())
	}

	var wg sync.WaitGroup
	for range co.workers() {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-inbox:
					//nolint:errcheck // core NATS has no redelivery to report to
					_, _ = dispatch(ctx, DriverNATS, handler, newNATSDelivery(m), co.autoAck)
				}
			}
		})
	}

	if err = n.conn.Flush(); err != nil {
		err = fmt.Errorf("messaging: nats flush: %w", err)
	} else {
		<-ctx.Done()
		err = ctx.Err()
	}

	cancel()
	wg.Wait()
	return errors.Join(err, ignoreNATSClosed(sub.Drain()))
}

func (n *NATS) track(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.subs = append(n.subs, sub)
	return nil
}

func newNATSDelivery(m *nats.Msg) *delivery {
	d := &delivery{
		body:      m.Data,
		topic:     m.Subject,
		timestamp: time.Now(),
		attempts:  1,
		ack:       func(context.Context) error { return ignoreNATSNoReply(m.Ack()) },
		nack:      func(context.Context) error { return ignoreNATSNoReply(m.Nak()) },
	}
	for k, values := range m.Header {
		for _, v := range values {
			d.headers = append(d.headers, Header{Key: k, Value: []byte(v)})
		}
	}
	if md, err := m.Metadata(); err == nil {
		d.id = strconv.FormatUint(md.Sequence.Stream, 10)
		d.timestamp = md.Timestamp
		d.attempts = int(md.NumDelivered)
	}
	return d
}

// ignoreNATSNoReply treats ack on a core NATS message as a no-op.
func ignoreNATSNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}

func ignoreNATSClosed(err error) error {
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return nil
	}
	return err
}
