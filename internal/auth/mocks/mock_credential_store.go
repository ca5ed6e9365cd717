// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package mocks holds testify mocks of auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/blogauth/blogauth/internal/auth"
)

// MockCredentialStore is a testify mock of auth.CredentialStore.
type MockCredentialStore struct {
	mock.Mock
}

// NewMockCredentialStore creates a mock that asserts its expectations on test cleanup.
func NewMockCredentialStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockCredentialStore {
	m := &MockCredentialStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByEmail provides a mock function.
func (m *MockCredentialStore) FindByEmail(ctx context.Context, email string) (*auth.UserCredential, error) {
	ret := m.Called(ctx, email)
	user, _ := ret.Get(0).(*auth.UserCredential)
	return user, ret.Error(1)
}

// FindByID provides a mock function.
func (m *MockCredentialStore) FindByID(ctx context.Context, id ulid.ULID) (*auth.UserCredential, error) {
	ret := m.Called(ctx, id)
	user, _ := ret.Get(0).(*auth.UserCredential)
	return user, ret.Error(1)
}

// Insert provides a mock function.
func (m *MockCredentialStore) Insert(ctx context.Context, user *auth.UserCredential) error {
	return m.Called(ctx, user).Error(0)
}

// UpdatePasswordHash provides a mock function.
func (m *MockCredentialStore) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// Ping provides a mock function.
func (m *MockCredentialStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ auth.CredentialStore = (*MockCredentialStore)(nil)
