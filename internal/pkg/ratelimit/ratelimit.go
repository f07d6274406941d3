// Package ratelimit throttles repeated requests per key and scope using Redis.
//
// Three rules apply in order: an active block rejects, an active cooldown
// rejects, and exceeding the per-window count installs a block.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited is wrapped by every rejection so callers can match with errors.Is.
var ErrLimited = errors.New("ratelimit: request limited")

// LimitedError reports a rejected request and how long to wait.
type LimitedError struct {
	RetryAfter time.Duration
	Reason     string
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("%s; retry after %d seconds", e.Reason, int(e.RetryAfter.Seconds()))
}

func (e *LimitedError) Unwrap() error {
	return ErrLimited
}

// Limiter decides whether a request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key, scope string) error
}

// Config tunes a RedisLimiter.
type Config struct {
	// Prefix namespaces keys, e.g. "otp".
	Prefix string
	// Window is the counting period.
	Window time.Duration
	// MaxInWindow is the number of requests allowed per window.
	MaxInWindow int64
	// Cooldown is the minimum gap between two allowed requests.
	Cooldown time.Duration
	// BlockFor is how long a key stays blocked after exceeding the window.
	BlockFor time.Duration
}

// RedisLimiter implements Limiter over a shared Redis instance.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
}

// NewRedis returns a limiter. Zero durations disable the matching rule.
func NewRedis(client *redis.Client, cfg Config) *RedisLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = cfg.Window * 3
	}
	return &RedisLimiter{client: client, cfg: cfg}
}

func (l *RedisLimiter) Allow(ctx context.Context, key, scope string) error {
	blockKey := fmt.Sprintf("%s:block:%s:%s", l.cfg.Prefix, key, scope)
	lastKey := fmt.Sprintf("%s:last:%s:%s", l.cfg.Prefix, key, scope)
	countKey := fmt.Sprintf("%s:count:%s:%s", l.cfg.Prefix, key, scope)

	if ttl, err := l.client.PTTL(ctx, blockKey).Result(); err != nil {
		return err
	} else if ttl > 0 {
		return &LimitedError{RetryAfter: ttl, Reason: "too many requests"}
	}

	// claiming the cooldown key is the check
	if l.cfg.Cooldown > 0 {
		claimed, err := l.client.SetNX(ctx, lastKey, "1", l.cfg.Cooldown).Result()
		if err != nil {
			return err
		}
		if !claimed {
			ttl, err := l.client.PTTL(ctx, lastKey).Result()
			if err != nil {
				return err
			}
			return &LimitedError{RetryAfter: max(ttl, 0), Reason: "request sent too soon"}
		}
	}

	if l.cfg.Window > 0 && l.cfg.MaxInWindow > 0 {
		var incr *redis.IntCmd
		_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, countKey)
			pipe.ExpireNX(ctx, countKey, l.cfg.Window)
			return nil
		})
		if err != nil {
			return err
		}

		if incr.Val() > l.cfg.MaxInWindow {
			if err := l.client.Set(ctx, blockKey, "1", l.cfg.BlockFor).Err(); err != nil {
				return err
			}
			return &LimitedError{RetryAfter: l.cfg.BlockFor, Reason: "too many requests"}
		}
	}

	return nil
}

// Noop allows every request.
type Noop struct{}

func (Noop) Allow(context.Context, string, string) error { return nil }
