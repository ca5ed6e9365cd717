// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = time.Hour

// TokenIssuer mints and validates HS256 session tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// TokenIssuerOption configures a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithLeeway tolerates clock skew when checking expiry.
func WithLeeway(d time.Duration) TokenIssuerOption {
	return func(t *TokenIssuer) {
		t.leeway = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		t.now = now
	}
}

// NewTokenIssuer creates a TokenIssuer signing with secret.
func NewTokenIssuer(secret []byte, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("signing secret is required")
	}
	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.leeway < 0 {
		return nil, oops.Code("CONFIG_INVALID").With("leeway", t.leeway).Errorf("leeway must not be negative")
	}
	return t, nil
}

// Issue returns a signed token for subject valid for ttl, and its expiry.
func (t *TokenIssuer) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, oops.Errorf("token subject is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, oops.With("ttl", ttl).Errorf("token ttl must be positive")
	}

	issuedAt := jwt.NewNumericDate(t.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, oops.With("operation", "sign token").Wrap(err)
	}
	return signed, expiresAt.Time, nil
}

// Validate verifies the token signature and expiry and returns its subject.
// Fails with TOKEN_EXPIRED once now reaches exp (plus leeway), and with
// TOKEN_INVALID for any other defect.
func (t *TokenIssuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(t.leeway),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", oops.Code(CodeTokenExpired).Errorf("token has expired")
		}
		return "", oops.Code(CodeTokenInvalid).With("reason", err.Error()).Errorf("invalid token")
	}

	if claims.Subject == "" {
		return "", oops.Code(CodeTokenInvalid).Errorf("token has no subject")
	}
	return claims.Subject, nil
}
