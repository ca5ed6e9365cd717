// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// HashPool bounds concurrent password hashing so CPU-heavy work cannot
// starve the rest of the process. It is safe for concurrent use.
type HashPool struct {
	hasher PasswordHasher
	sem    *semaphore.Weighted
	size   int
}

// NewHashPool wraps hasher with a pool of the given size.
// A size of zero or less uses GOMAXPROCS.
func NewHashPool(hasher PasswordHasher, size int) (*HashPool, error) {
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &HashPool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
	}, nil
}

// Size returns the maximum number of concurrent hash operations.
func (p *HashPool) Size() int {
	return p.size
}

// Hasher returns the underlying hasher.
func (p *HashPool) Hasher() PasswordHasher {
	return p.hasher
}

type hashResult struct {
	hash string
	ok   bool
	err  error
}

// Hash hashes password on the pool.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	res, err := p.run(ctx, "hash", func() hashResult {
		h, err := p.hasher.Hash(password)
		return hashResult{hash: h, err: err}
	})
	if err != nil {
		return "", err
	}
	return res.hash, res.err
}

// Verify verifies password against hash on the pool.
func (p *HashPool) Verify(ctx context.Context, password, hash string) (bool, error) {
	res, err := p.run(ctx, "verify", func() hashResult {
		ok, err := p.hasher.Verify(password, hash)
		return hashResult{ok: ok, err: err}
	})
	if err != nil {
		return false, err
	}
	return res.ok, res.err
}

// run waits for a slot and executes fn in its own goroutine. If ctx ends
// first the caller returns immediately; the goroutine finishes and frees its slot.
func (p *HashPool) run(ctx context.Context, op string, fn func() hashResult) (hashResult, error) {
	started := time.Now()
	defer observeHash(op, started)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return hashResult{}, oops.With("op", op).With("stage", "acquire").Wrap(err)
	}

	done := make(chan hashResult, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return hashResult{}, oops.With("op", op).With("stage", "compute").Wrap(ctx.Err())
	}
}
