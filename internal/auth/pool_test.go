// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blogauth/blogauth/internal/auth"
)

// blockingHasher tracks concurrency and blocks until released.
type blockingHasher struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newBlockingHasher() *blockingHasher {
	return &blockingHasher{release: make(chan struct{})}
}

func (h *blockingHasher) enter() {
	n := h.inFlight.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-h.release
	h.inFlight.Add(-1)
}

func (h *blockingHasher) Hash(password string) (string, error) {
	h.enter()
	return "hashed:" + password, nil
}

func (h *blockingHasher) Verify(password, hash string) (bool, error) {
	h.enter()
	return hash == "hashed:"+password, nil
}

func (h *blockingHasher) NeedsUpgrade(string) bool { return false }

func TestNewHashPool(t *testing.T) {
	t.Run("nil hasher", func(t *testing.T) {
		_, err := auth.NewHashPool(nil, 1)
		require.Error(t, err)
	})

	t.Run("non-positive size uses GOMAXPROCS", func(t *testing.T) {
		pool, err := auth.NewHashPool(newTestBcrypt(t), 0)
		require.NoError(t, err)
		assert.Equal(t, runtime.GOMAXPROCS(0), pool.Size())
	})
}

func TestHashPool_HashAndVerify(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool, err := auth.NewHashPool(newTestBcrypt(t), 2)
	require.NoError(t, err)

	ctx := context.Background()
	hash, err := pool.Hash(ctx, "secret1")
	require.NoError(t, err)

	ok, err := pool.Verify(ctx, "secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pool.Verify(ctx, "secret2", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	pool, err := auth.NewHashPool(hasher, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Hash(context.Background(), "pw")
		}()
	}

	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 2 }, time.Second, time.Millisecond)
	close(hasher.release)
	wg.Wait()

	assert.Equal(t, int32(2), hasher.peak.Load())
}

func TestHashPool_ContextCancelledWhileWaiting(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	pool, err := auth.NewHashPool(hasher, 1)
	require.NoError(t, err)

	holding := make(chan struct{})
	go func() {
		defer close(holding)
		_, _ = pool.Hash(context.Background(), "first")
	}()
	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Hash(ctx, "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(hasher.release)
	<-holding
}

func TestHashPool_ContextCancelledWhileComputing(t *testing.T) {
	defer goleak.VerifyNone(t)

	hasher := newBlockingHasher()
	pool, err := auth.NewHashPool(hasher, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Verify(ctx, "pw", "hashed:pw")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return hasher.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	err = <-errCh
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	// The slot frees once the abandoned work finishes.
	close(hasher.release)
	_, err = pool.Hash(context.Background(), "again")
	require.NoError(t, err)
}
