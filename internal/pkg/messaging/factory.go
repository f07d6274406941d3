package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
	// DriverMemory keeps messages in process; local runs and tests only.
	DriverMemory = "memory"
)

// ErrUnknownDriver is returned by New for a driver it does not know.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// Config selects a broker by Driver. Only the section for that driver is read.
type Config struct {
	Driver string
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
	Memory MemoryConfig
}

// New connects to the broker named by cfg.Driver.
func New(ctx context.Context, cfg Config) (Messaging, error) {
	var (
		m   Messaging
		err error
	)
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case DriverNSQ:
		m, err = NewNSQ(cfg.NSQ)
	case DriverKafka:
		m, err = NewKafka(cfg.Kafka)
	case DriverNATS:
		m, err = NewNATS(cfg.NATS)
	case DriverGooglePubSub:
		m, err = NewPubSub(ctx, cfg.PubSub)
	case DriverMemory:
		m = NewMemory(cfg.Memory)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
