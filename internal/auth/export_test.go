// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import "time"

// SetClock overrides the throttle time source.
func (m *MemoryThrottle) SetClock(now func() time.Time) {
	m.now = now
}

// DummyHash exposes the timing-equalizer hash.
func (s *Service) DummyHash() string {
	return s.dummyHash
}

// SetSweepSize overrides the minimum entry count that triggers a sweep.
func (m *MemoryThrottle) SetSweepSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepAt = n
	m.sweepMin = n
}
