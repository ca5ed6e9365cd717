// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package redis implements auth.LoginThrottle on Redis so lockouts are
// shared by every server instance.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/blogauth/blogauth/internal/auth"
)

// DefaultKeyPrefix namespaces throttle keys.
const DefaultKeyPrefix = "blogauth:throttle:"

// Throttle is a Redis-backed auth.LoginThrottle.
//
// Failures are counted in a key that expires after the policy window. When
// the count reaches the threshold a separate lock key is written with the
// lockout as its TTL and the counter is cleared.
type Throttle struct {
	rdb    goredis.Cmdable
	policy auth.ThrottlePolicy
	prefix string
}

// NewThrottle creates a Throttle. Zero policy fields take the auth defaults.
func NewThrottle(rdb goredis.Cmdable, policy auth.ThrottlePolicy) *Throttle {
	d := auth.DefaultThrottlePolicy()
	if policy.Threshold <= 0 {
		policy.Threshold = d.Threshold
	}
	if policy.Lockout <= 0 {
		policy.Lockout = d.Lockout
	}
	if policy.Window <= 0 {
		policy.Window = d.Window
	}
	return &Throttle{rdb: rdb, policy: policy, prefix: DefaultKeyPrefix}
}

func (t *Throttle) failKey(key string) string { return t.prefix + "fail:" + key }
func (t *Throttle) lockKey(key string) string { return t.prefix + "lock:" + key }

// Locked implements auth.LoginThrottle.
func (t *Throttle) Locked(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := t.rdb.PTTL(ctx, t.lockKey(key)).Result()
	if err != nil {
		return 0, oops.With("operation", "read lockout").Wrap(err)
	}
	// PTTL reports -2 for a missing key and -1 for one without expiry.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// Fail implements auth.LoginThrottle.
func (t *Throttle) Fail(ctx context.Context, key string) (time.Duration, error) {
	failKey := t.failKey(key)

	var incr *goredis.IntCmd
	_, err := t.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, failKey)
		pipe.ExpireNX(ctx, failKey, t.policy.Window)
		return nil
	})
	if err != nil {
		return 0, oops.With("operation", "record failure").Wrap(err)
	}

	if incr.Val() < int64(t.policy.Threshold) {
		return 0, nil
	}

	_, err = t.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, t.lockKey(key), 1, t.policy.Lockout)
		pipe.Del(ctx, failKey)
		return nil
	})
	if err != nil {
		return 0, oops.With("operation", "apply lockout").Wrap(err)
	}
	return t.policy.Lockout, nil
}

// Reset implements auth.LoginThrottle.
func (t *Throttle) Reset(ctx context.Context, key string) error {
	if err := t.rdb.Del(ctx, t.failKey(key), t.lockKey(key)).Err(); err != nil {
		return oops.With("operation", "reset failures").Wrap(err)
	}
	return nil
}

// Connect parses a redis:// URL, creates a client and checks it answers.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "parse redis url").Wrap(err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opt.Addr).Wrap(err)
	}
	return client, nil
}

var _ auth.LoginThrottle = (*Throttle)(nil)
