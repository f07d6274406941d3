package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/shandysiswandi/estatebite/internal/pkg/stacktrace"
)

// delivery is the Message every driver hands to handlers. Drivers fill the
// fields and plug their broker calls into ack and nack.
type delivery struct {
	body      []byte
	key       []byte
	headers   []Header
	id        string
	topic     string
	timestamp time.Time
	attempts  int

	ack  func(context.Context) error
	nack func(context.Context) error

	settled atomic.Bool
}

func (d *delivery) Body() []byte         { return d.body }
func (d *delivery) Key() []byte          { return d.key }
func (d *delivery) Headers() []Header    { return d.headers }
func (d *delivery) ID() string           { return d.id }
func (d *delivery) Topic() string        { return d.topic }
func (d *delivery) Timestamp() time.Time { return d.timestamp }
func (d *delivery) Attempts() int        { return d.attempts }

func (d *delivery) Ack(ctx context.Context) error {
	return d.settle(ctx, d.ack)
}

func (d *delivery) Nack(ctx context.Context) error {
	return d.settle(ctx, d.nack)
}

func (d *delivery) settle(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.settled.Swap(true) || fn == nil {
		return nil
	}
	return fn(ctx)
}

// dispatch runs handler on d and, with autoAck, settles whatever the handler
// left open. handlerErr includes recovered panics; settleErr is the broker
// error from the automatic ack or nack.
func dispatch(ctx context.Context, driver string, handler Handler, d *delivery, autoAck bool) (handlerErr, settleErr error) {
	handlerErr = runHandler(ctx, driver, handler, d)
	if !autoAck || d.settled.Load() {
		return handlerErr, nil
	}

	if handlerErr != nil {
		return handlerErr, d.Nack(ctx)
	}
	return nil, d.Ack(ctx)
}

func runHandler(ctx context.Context, driver string, handler Handler, d *delivery) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		var trace any = string(stack)
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			trace = paths
		}
		slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "topic", d.topic, "panic", rvr, "stack", trace)
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return handler(ctx, d)
}
