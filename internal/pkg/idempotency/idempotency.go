// Package idempotency lets replicas sharing a Redis instance agree that a
// keyed unit of work runs at most once per window.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	ErrAlreadyCompleted  = errors.New("idempotency: operation already completed")
	ErrUnknownState      = errors.New("idempotency: unknown key state")
)

const (
	runningPrefix = "running:"
	doneValue     = "done"

	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

// Idempotency guards a keyed unit of work.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// Option tunes a single Exec call.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long a claim survives a holder that died
// mid-run.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long a completed run suppresses further runs.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

// The claim value carries an owner token so a holder whose lock expired
// cannot complete or release a claim that another replica took over.
var (
	finishScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return false`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Redis implements Idempotency on a single Redis key per unit of work.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// New returns a guard whose keys are namespaced by prefix.
func New(client redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = "idempotency:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Exec runs fn when no other run holds key or completed it within the state
// TTL. A failed run releases the claim instead of recording the failure.
func (r *Redis) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	fk := r.prefix + key
	owner, err := r.claim(ctx, fk, o.lockDuration)
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		// the caller may have been canceled; the release must still happen
		relCtx := context.WithoutCancel(ctx)
		if relErr := releaseScript.Run(relCtx, r.client, []string{fk}, owner).Err(); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}

	err = finishScript.Run(ctx, r.client, []string{fk}, owner, doneValue, o.stateTTL.Milliseconds()).Err()
	if errors.Is(err, redis.Nil) {
		// lock expired under us; the work ran, the marker belongs to someone else
		return nil
	}
	return err
}

// claim takes fk and returns the owner value stored in it.
func (r *Redis) claim(ctx context.Context, fk string, lock time.Duration) (string, error) {
	owner := runningPrefix + uuid.NewString()

	for range 2 {
		ok, err := r.client.SetNX(ctx, fk, owner, lock).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return owner, nil
		}

		current, err := r.client.Get(ctx, fk).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// expired between SETNX and GET
			continue
		case err != nil:
			return "", err
		case current == doneValue:
			return "", ErrAlreadyCompleted
		case strings.HasPrefix(current, runningPrefix):
			return "", ErrAlreadyInProgress
		default:
			return "", ErrUnknownState
		}
	}
	return "", ErrAlreadyInProgress
}
