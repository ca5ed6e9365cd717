// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/blogauth/blogauth/pkg/errutil"
)

// DefaultUsernameAttempts is how many usernames Signup tries before giving up.
const DefaultUsernameAttempts = 5

// dummyPassword is hashed once at construction. Login verifies against that
// hash when the email is unknown so both failure paths cost the same.
//
//nolint:gosec // G101: not a credential.
const dummyPassword = "blogauth-timing-equalizer"

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *UserCredential
}

// Service orchestrates signup, login and profile lookup.
type Service struct {
	store            CredentialStore
	pool             *HashPool
	tokens           *TokenIssuer
	throttle         LoginThrottle // optional, can be nil
	logger           *slog.Logger
	tokenTTL         time.Duration
	usernameAttempts int
	suffix           func() int
	now              func() time.Time
	dummyHash        string
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithLogger sets the service logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithThrottle enables login lockout. If not provided, logins are not throttled.
func WithThrottle(t LoginThrottle) ServiceOption {
	return func(s *Service) {
		s.throttle = t
	}
}

// WithTokenTTL overrides the session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

// WithUsernameAttempts sets how many derived usernames Signup tries.
func WithUsernameAttempts(n int) ServiceOption {
	return func(s *Service) {
		s.usernameAttempts = n
	}
}

// WithSuffixSource overrides the random username suffix generator.
func WithSuffixSource(fn func() int) ServiceOption {
	return func(s *Service) {
		s.suffix = fn
	}
}

// NewService creates a Service. Returns an error if a required dependency is nil.
func NewService(store CredentialStore, pool *HashPool, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if pool == nil {
		return nil, oops.Errorf("hash pool is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}

	s := &Service{
		store:            store,
		pool:             pool,
		tokens:           tokens,
		logger:           slog.New(slog.DiscardHandler),
		tokenTTL:         DefaultTokenTTL,
		usernameAttempts: DefaultUsernameAttempts,
		suffix:           func() int { return rand.IntN(UsernameSuffixRange) }, //nolint:gosec // not security sensitive
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.tokenTTL <= 0 {
		return nil, oops.Code("CONFIG_INVALID").With("ttl", s.tokenTTL).Errorf("token ttl must be positive")
	}
	if s.usernameAttempts <= 0 {
		return nil, oops.Code("CONFIG_INVALID").
			With("attempts", s.usernameAttempts).
			Errorf("username attempts must be positive")
	}

	dummy, err := pool.Hasher().Hash(dummyPassword)
	if err != nil {
		return nil, oops.With("operation", "prepare dummy hash").Wrap(err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Signup validates input, hashes the password and stores a new user.
// The returned record has no password hash.
func (s *Service) Signup(ctx context.Context, fullName, email, password string) (*UserCredential, error) {
	if err := ValidateSignup(fullName, email, password); err != nil {
		recordSignup(ResultValidation)
		return nil, err
	}
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		recordSignup(ResultConflict)
		return nil, oops.Code(CodeConflict).With("email", email).Errorf(msgEmailInUse)
	case !errors.Is(err, ErrNotFound):
		recordSignup(ResultError)
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "check email").
			Public(msgStoreFailed).
			Wrap(err)
	}

	hash, err := s.pool.Hash(ctx, password)
	if err != nil {
		recordSignup(ResultError)
		return nil, oops.Code(CodeHashFailed).Public(msgHashFailed).Wrap(err)
	}

	now := s.now().UTC()
	user := &UserCredential{
		ID:           ulid.Make(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.insertWithFreshUsername(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			recordSignup(ResultConflict)
			return nil, oops.Code(CodeConflict).With("email", email).Errorf(msgEmailInUse)
		}
		recordSignup(ResultError)
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "insert user").
			With("username", user.Username).
			Public(msgStoreFailed).
			Wrap(err)
	}

	recordSignup(ResultSuccess)
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"username", user.Username,
	)
	return user.Sanitized(), nil
}

// insertWithFreshUsername derives a username and inserts, deriving again
// when the username is already taken.
func (s *Service) insertWithFreshUsername(ctx context.Context, user *UserCredential) error {
	backoff := retry.WithMaxRetries(uint64(s.usernameAttempts-1), retry.NewConstant(time.Millisecond)) //nolint:gosec // attempts validated positive

	//nolint:wrapcheck // caller wraps
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		user.Username = DeriveUsername(user.Email, s.suffix())
		err := s.store.Insert(ctx, user)
		if errors.Is(err, ErrUsernameTaken) {
			s.logger.DebugContext(ctx, "derived username taken, retrying", "username", user.Username)
			return retry.RetryableError(err)
		}
		return err
	})
}

// Login checks credentials and issues a session token.
// Unknown email and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		recordLogin(ResultValidation)
		return nil, oops.Code(CodeValidation).With("rule", "required").Errorf(msgLoginFieldsRequired)
	}
	email = NormalizeEmail(email)

	user, lookupErr := s.store.FindByEmail(ctx, email)

	var targetHash string
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.dummyHash
	default:
		recordLogin(ResultError)
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "find user by email").
			Public(msgLoginFailed).
			Wrap(lookupErr)
	}

	// Always verify so response time does not reveal whether the email exists.
	valid, verifyErr := s.pool.Verify(ctx, password, targetHash)
	if verifyErr != nil {
		if !userExists {
			recordLogin(ResultInvalidCredentials)
			return nil, oops.Code(CodeInvalidCredentials).Errorf(msgInvalidCredentials)
		}
		recordLogin(ResultError)
		if errutil.Code(verifyErr) == CodeIntegrity {
			return nil, oops.Code(CodeIntegrity).
				With("user_id", user.ID.String()).
				Public(msgLoginFailed).
				Wrap(verifyErr)
		}
		return nil, oops.Code(CodeHashFailed).
			With("operation", "verify password").
			Public(msgLoginFailed).
			Wrap(verifyErr)
	}

	// Lockout is checked after verification to keep timing uniform.
	if remaining := s.lockedFor(ctx, email); remaining > 0 {
		recordLogin(ResultThrottled)
		return nil, oops.Code(CodeTooManyAttempts).
			With("retry_after", remaining.Round(time.Second).String()).
			Errorf(msgTooManyAttempts)
	}

	if !userExists || !valid {
		s.recordFailure(ctx, email)
		recordLogin(ResultInvalidCredentials)
		return nil, oops.Code(CodeInvalidCredentials).Errorf(msgInvalidCredentials)
	}

	s.resetFailures(ctx, email)
	s.upgradeHash(ctx, user, password)

	token, expiresAt, err := s.tokens.Issue(user.ID.String(), s.tokenTTL)
	if err != nil {
		recordLogin(ResultError)
		return nil, oops.Code("TOKEN_ISSUE_FAILED").
			With("user_id", user.ID.String()).
			Public(msgLoginFailed).
			Wrap(err)
	}

	recordLogin(ResultSuccess)
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Sanitized(),
	}, nil
}

// GetProfile validates token and returns the user it was issued for.
func (s *Service) GetProfile(ctx context.Context, token string) (*UserCredential, error) {
	if token == "" {
		return nil, oops.Code(CodeUnauthenticated).Errorf(msgAuthRequired)
	}

	subject, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded TOKEN_EXPIRED or TOKEN_INVALID
	}

	id, err := ulid.Parse(subject)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).With("subject", subject).Errorf("invalid token subject")
	}

	user, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeNotFound).With("user_id", subject).Errorf(msgUserNotFound)
	}
	if err != nil {
		return nil, oops.Code(CodeStoreFailed).
			With("operation", "find user by id").
			With("user_id", subject).
			Public(msgProfileFailed).
			Wrap(err)
	}
	return user.Sanitized(), nil
}

// Logout is stateless: tokens are not revoked server-side, the transport
// only tells the client to drop its cookie. It always succeeds.
func (s *Service) Logout(ctx context.Context) {
	s.logger.DebugContext(ctx, "logout")
}

// Ready reports whether the credential store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx) //nolint:wrapcheck // readiness probe reports raw cause
}

func (s *Service) lockedFor(ctx context.Context, email string) time.Duration {
	if s.throttle == nil {
		return 0
	}
	remaining, err := s.throttle.Locked(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "login throttle unavailable", "error", err)
		return 0
	}
	return remaining
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	locked, err := s.throttle.Fail(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", "error", err)
		return
	}
	if locked > 0 {
		s.logger.InfoContext(ctx, "login locked after repeated failures", "lockout", locked.String())
	}
}

func (s *Service) resetFailures(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "failed to reset login failures", "error", err)
	}
}

// upgradeHash rehashes the password when the stored hash uses outdated
// parameters. Failures are logged; login succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, user *UserCredential, password string) {
	if !s.pool.Hasher().NeedsUpgrade(user.PasswordHash) {
		return
	}
	newHash, err := s.pool.Hash(ctx, password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID.String(), "error", err)
		return
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "failed to store upgraded password hash", "user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = newHash
	s.logger.DebugContext(ctx, "password hash upgraded", "user_id", user.ID.String())
}
