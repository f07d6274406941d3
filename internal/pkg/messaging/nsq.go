package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var (
	// ErrNSQProducerAddrRequired is returned by Publish when no nsqd address
	// was configured for publishing.
	ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")
	// ErrNSQConsumerAddrsRequired is returned by Consume when neither nsqd nor
	// lookupd addresses are configured.
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq consumer nsqd/lookupd addresses are required")
)

// NSQConfig configures the NSQ driver.
type NSQConfig struct {
	ProducerAddr string

	// ConsumerLookupdAddrs wins over ConsumerNSQDAddrs when both are set.
	ConsumerNSQDAddrs    []string
	ConsumerLookupdAddrs []string

	ProducerConfig *nsq.Config
	ConsumerConfig *nsq.Config
}

// NSQ is a messaging implementation backed by go-nsq. It is the only driver
// that honors OutgoingMessage.Delay.
type NSQ struct {
	cfg      NSQConfig
	producer *nsq.Producer

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

// NewNSQ constructs an NSQ client. The producer is created only when
// ProducerAddr is set.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerConfig == nil {
		cfg.ProducerConfig = nsq.NewConfig()
	}
	if cfg.ConsumerConfig == nil {
		cfg.ConsumerConfig = nsq.NewConfig()
	}

	n := &NSQ{cfg: cfg}
	if cfg.ProducerAddr == "" {
		return n, nil
	}

	producer, err := nsq.NewProducer(cfg.ProducerAddr, cfg.ProducerConfig)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelError)
	n.producer = producer
	return n, nil
}

// Close stops every consumer, waiting for in-flight handlers, then the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.consumers = nil
	n.mu.Unlock()

	for _, c := range consumers {
		stopNSQ(c)
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if n.producer == nil {
		return PublishResult{}, ErrNSQProducerAddrRequired
	}

	var err error
	if msg.Delay > 0 {
		err = n.producer.DeferredPublish(destination, msg.Delay, msg.Body)
	} else {
		err = n.producer.Publish(destination, msg.Body)
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Consume reads the topic on the channel given by WithGroup. Nacked messages
// are requeued with the configured backoff and dropped by nsqd after
// MaxAttempts.
func (n *NSQ) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(ctx, source, handler); err != nil {
		return err
	}
	if len(n.cfg.ConsumerNSQDAddrs) == 0 && len(n.cfg.ConsumerLookupdAddrs) == 0 {
		return ErrNSQConsumerAddrsRequired
	}
	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	ccfg := *n.cfg.ConsumerConfig
	ccfg.MaxInFlight = max(co.maxInFlight, ccfg.MaxInFlight, co.workers())

	consumer, err := nsq.NewConsumer(source, co.group, &ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		_, err := dispatch(ctx, DriverNSQ, handler, newNSQDelivery(source, m), co.autoAck)
		return err
	}), co.workers())

	if err := n.track(consumer); err != nil {
		stopNSQ(consumer)
		return err
	}
	if err := n.connect(consumer); err != nil {
		n.untrack(consumer)
		stopNSQ(consumer)
		return err
	}

	select {
	case <-ctx.Done():
		n.untrack(consumer)
		stopNSQ(consumer)
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func (n *NSQ) connect(consumer *nsq.Consumer) error {
	if addrs := n.cfg.ConsumerLookupdAddrs; len(addrs) > 0 {
		if err := consumer.ConnectToNSQLookupds(addrs); err != nil {
			return fmt.Errorf("messaging: nsq connect lookupd: %w", err)
		}
		return nil
	}
	if err := consumer.ConnectToNSQDs(n.cfg.ConsumerNSQDAddrs); err != nil {
		return fmt.Errorf("messaging: nsq connect nsqd: %w", err)
	}
	return nil
}

func (n *NSQ) track(consumer *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.consumers = append(n.consumers, consumer)
	return nil
}

func (n *NSQ) untrack(consumer *nsq.Consumer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if i := slices.Index(n.consumers, consumer); i >= 0 {
		n.consumers = slices.Delete(n.consumers, i, i+1)
	}
}

func stopNSQ(consumer *nsq.Consumer) {
	consumer.Stop()
	<-consumer.StopChan
}

func newNSQDelivery(topic string, m *nsq.Message) *delivery {
	return &delivery{
		body:      m.Body,
		id:        string(m.ID[:]),
		topic:     topic,
		timestamp: time.Unix(0, m.Timestamp),
		attempts:  int(m.Attempts),
		ack: func(context.Context) error {
			m.Finish()
			return nil
		},
		nack: func(context.Context) error {
			m.Requeue(-1)
			return nil
		},
	}
}
