// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package memory provides an in-process auth.CredentialStore for development
// and tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/blogauth/blogauth/internal/auth"
)

// Store is a mutex-guarded credential store with unique email and username indexes.
type Store struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.UserCredential
	byEmail    map[string]ulid.ULID
	byUsername map[string]ulid.ULID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID:       make(map[ulid.ULID]*auth.UserCredential),
		byEmail:    make(map[string]ulid.ULID),
		byUsername: make(map[string]ulid.ULID),
	}
}

// FindByEmail implements auth.CredentialStore.
func (s *Store) FindByEmail(_ context.Context, email string) (*auth.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	return clone(s.byID[id]), nil
}

// FindByID implements auth.CredentialStore.
func (s *Store) FindByID(_ context.Context, id ulid.ULID) (*auth.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return clone(u), nil
}

// Insert implements auth.CredentialStore. Both uniqueness checks and the
// write happen under one lock.
func (s *Store) Insert(_ context.Context, user *auth.UserCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := auth.NormalizeEmail(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return oops.With("email", email).Wrap(auth.ErrEmailTaken)
	}
	if _, taken := s.byUsername[user.Username]; taken {
		return oops.With("username", user.Username).Wrap(auth.ErrUsernameTaken)
	}

	stored := clone(user)
	stored.Email = email
	s.byID[stored.ID] = stored
	s.byEmail[email] = stored.ID
	s.byUsername[stored.Username] = stored.ID
	return nil
}

// UpdatePasswordHash implements auth.CredentialStore.
func (s *Store) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

// Ping implements auth.CredentialStore.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func clone(u *auth.UserCredential) *auth.UserCredential {
	c := *u
	return &c
}

var _ auth.CredentialStore = (*Store)(nil)
