// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import (
	"context"
	"sync"
	"time"
)

// Login throttling defaults.
const (
	// LockoutDuration is the time an email is locked out after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7

	// FailureWindow is how long a failure counts toward the threshold.
	FailureWindow = 15 * time.Minute

	// minSweepSize is the entry count at which MemoryThrottle first sweeps
	// expired entries.
	minSweepSize = 1024
)

// ThrottlePolicy configures login lockout.
type ThrottlePolicy struct {
	// Threshold is the number of failures within Window that locks the key.
	Threshold int

	// Lockout is how long a locked key stays locked.
	Lockout time.Duration

	// Window is how long a recorded failure is remembered.
	Window time.Duration
}

// DefaultThrottlePolicy returns the default lockout policy.
func DefaultThrottlePolicy() ThrottlePolicy {
	return ThrottlePolicy{
		Threshold: LockoutThreshold,
		Lockout:   LockoutDuration,
		Window:    FailureWindow,
	}
}

// withDefaults fills zero fields from DefaultThrottlePolicy.
func (p ThrottlePolicy) withDefaults() ThrottlePolicy {
	d := DefaultThrottlePolicy()
	if p.Threshold <= 0 {
		p.Threshold = d.Threshold
	}
	if p.Lockout <= 0 {
		p.Lockout = d.Lockout
	}
	if p.Window <= 0 {
		p.Window = d.Window
	}
	return p
}

// LoginThrottle tracks failed login attempts per key (the normalized email).
type LoginThrottle interface {
	// Locked returns the remaining lockout for key, or zero if it is not locked.
	Locked(ctx context.Context, key string) (time.Duration, error)

	// Fail records a failed attempt and returns the lockout it triggered, if any.
	Fail(ctx context.Context, key string) (time.Duration, error)

	// Reset clears recorded failures for key.
	Reset(ctx context.Context, key string) error
}

type throttleEntry struct {
	failures    int
	firstFail   time.Time
	lockedUntil time.Time
}

// MemoryThrottle is an in-process LoginThrottle. It is safe for concurrent use.
// Expired entries are swept from Fail whenever the map doubles past its size
// after the previous sweep, so memory stays proportional to live keys.
type MemoryThrottle struct {
	mu       sync.Mutex
	entries  map[string]*throttleEntry
	policy   ThrottlePolicy
	now      func() time.Time
	sweepAt  int
	sweepMin int
}

// NewMemoryThrottle creates a MemoryThrottle. Zero policy fields take defaults.
func NewMemoryThrottle(policy ThrottlePolicy) *MemoryThrottle {
	return &MemoryThrottle{
		entries:  make(map[string]*throttleEntry),
		policy:   policy.withDefaults(),
		now:      time.Now,
		sweepAt:  minSweepSize,
		sweepMin: minSweepSize,
	}
}

// Locked implements LoginThrottle.
func (m *MemoryThrottle) Locked(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(key)
	if e == nil {
		return 0, nil
	}
	if remaining := e.lockedUntil.Sub(m.now()); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// Fail implements LoginThrottle.
func (m *MemoryThrottle) Fail(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := m.entryLocked(key)
	if e == nil {
		if len(m.entries) >= m.sweepAt {
			m.sweepLocked(now)
		}
		e = &throttleEntry{firstFail: now}
		m.entries[key] = e
	}
	e.failures++
	if e.failures >= m.policy.Threshold {
		e.lockedUntil = now.Add(m.policy.Lockout)
		e.failures = 0
		e.firstFail = now
		return m.policy.Lockout, nil
	}
	return 0, nil
}

// Reset implements LoginThrottle.
func (m *MemoryThrottle) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of tracked keys.
func (m *MemoryThrottle) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// sweepLocked drops every expired entry and sets the next sweep size.
// Caller holds m.mu.
func (m *MemoryThrottle) sweepLocked(now time.Time) {
	for key, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, key)
		}
	}
	m.sweepAt = max(m.sweepMin, 2*len(m.entries))
}

func (m *MemoryThrottle) expired(e *throttleEntry, now time.Time) bool {
	return now.Sub(e.firstFail) >= m.policy.Window && !now.Before(e.lockedUntil)
}

// entryLocked returns the live entry for key, dropping it once both its
// failure window and its lockout have passed. Caller holds m.mu.
func (m *MemoryThrottle) entryLocked(key string) *throttleEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if m.expired(e, m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}
