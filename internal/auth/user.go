// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Signup field constraints.
const (
	MinFullNameLength = 3
	MinPasswordLength = 6

	// UsernameSuffixRange bounds the random numeric suffix appended to a derived username.
	UsernameSuffixRange = 1000
)

// emailRegex accepts local@domain.tld with no whitespace and exactly one @ per part.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserCredential is the persisted identity record.
// PasswordHash is never serialized.
type UserCredential struct {
	ID           ulid.ULID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sanitized returns a copy of u with the password hash cleared.
func (u *UserCredential) Sanitized() *UserCredential {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignup checks signup input. Rules are applied in order and the
// first failure is returned.
func ValidateSignup(fullName, email, password string) error {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" || password == "" {
		return oops.Code(CodeValidation).With("rule", "required").Errorf(msgFieldsRequired)
	}
	if utf8.RuneCountInString(strings.TrimSpace(fullName)) < MinFullNameLength {
		return oops.Code(CodeValidation).
			With("rule", "fullname_length").
			With("min", MinFullNameLength).
			Errorf(msgFullNameTooShort)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("rule", "password_length").
			With("min", MinPasswordLength).
			Errorf(msgPasswordTooShort)
	}
	if !emailRegex.MatchString(NormalizeEmail(email)) {
		return oops.Code(CodeValidation).With("rule", "email_format").Errorf(msgInvalidEmail)
	}
	return nil
}

// DeriveUsername builds a username from the email local part and a numeric suffix.
func DeriveUsername(email string, suffix int) string {
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	return local + strconv.Itoa(suffix)
}

// CredentialStore persists user credentials.
type CredentialStore interface {
	// FindByEmail retrieves a user by normalized email.
	// Returns an error wrapping ErrNotFound if no user has the given email.
	FindByEmail(ctx context.Context, email string) (*UserCredential, error)

	// FindByID retrieves a user by ID.
	// Returns an error wrapping ErrNotFound if the user does not exist.
	FindByID(ctx context.Context, id ulid.ULID) (*UserCredential, error)

	// Insert stores a new user atomically.
	// Returns an error wrapping ErrEmailTaken or ErrUsernameTaken on a uniqueness violation.
	Insert(ctx context.Context, user *UserCredential) error

	// UpdatePasswordHash replaces the stored hash for a user.
	// Returns an error wrapping ErrNotFound if the user does not exist.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
