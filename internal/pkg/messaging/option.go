package messaging

// ConsumeOption tunes a single Consume call.
type ConsumeOption func(*consumeOptions)

type consumeOptions struct {
	group       string
	concurrency int
	maxInFlight int
	autoAck     bool
}

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, apply := range opts {
		if apply != nil {
			apply(&co)
		}
	}
	return co
}

// workers is never below one.
func (co consumeOptions) workers() int { return max(co.concurrency, 1) }

// WithGroup sets the consumer group: the Kafka group id, the NSQ channel,
// the NATS queue group or the Pub/Sub subscription. Each group gets every
// message and its members split them.
func WithGroup(group string) ConsumeOption {
	return func(co *consumeOptions) { co.group = group }
}

func WithConcurrency(n int) ConsumeOption {
	return func(co *consumeOptions) { co.concurrency = n }
}

// WithMaxInFlight limits unsettled messages where the broker has such a knob
// (NSQ, Pub/Sub). Other drivers ignore it.
func WithMaxInFlight(n int) ConsumeOption {
	return func(co *consumeOptions) { co.maxInFlight = n }
}

// WithAutoAck settles each message from the handler result: ack on nil,
// nack otherwise.
func WithAutoAck(on bool) ConsumeOption {
	return func(co *consumeOptions) { co.autoAck = on }
}
