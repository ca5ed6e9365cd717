// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogauth/blogauth/internal/auth"
	"github.com/blogauth/blogauth/pkg/errutil"
)

var testSecret = []byte("test-signing-secret")

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestNewTokenIssuer(t *testing.T) {
	t.Run("rejects empty secret", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("rejects negative leeway", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(testSecret, auth.WithLeeway(-time.Second))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	clock := newClock()
	issuer, err := auth.NewTokenIssuer(testSecret, auth.WithClock(clock.Now))
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue("01HZX3Q9J8K7M6N5P4R3S2T1V0", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)
	assert.Len(t, strings.Split(token, "."), 3)

	subject, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "01HZX3Q9J8K7M6N5P4R3S2T1V0", subject)
}

func TestTokenIssuer_Claims(t *testing.T) {
	clock := newClock()
	issuer, err := auth.NewTokenIssuer(testSecret, auth.WithClock(clock.Now))
	require.NoError(t, err)

	token, _, err := issuer.Issue("user-1", time.Hour)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, clock.Now().Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIssuer_Expiry(t *testing.T) {
	tests := []struct {
		name     string
		after    time.Duration
		leeway   time.Duration
		wantCode string
	}{
		{name: "valid at iat+59m", after: 59 * time.Minute},
		{name: "expired at exactly exp", after: time.Hour, wantCode: auth.CodeTokenExpired},
		{name: "expired at iat+61m", after: 61 * time.Minute, wantCode: auth.CodeTokenExpired},
		{name: "leeway accepts iat+61m", after: 61 * time.Minute, leeway: 2 * time.Minute},
		{name: "leeway still expires past window", after: 63 * time.Minute, leeway: 2 * time.Minute, wantCode: auth.CodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			issuer, err := auth.NewTokenIssuer(testSecret, auth.WithClock(clock.Now), auth.WithLeeway(tt.leeway))
			require.NoError(t, err)

			token, _, err := issuer.Issue("user-1", time.Hour)
			require.NoError(t, err)

			clock.Advance(tt.after)
			subject, err := issuer.Validate(token)
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", subject)
		})
	}
}

func TestTokenIssuer_Invalid(t *testing.T) {
	clock := newClock()
	issuer, err := auth.NewTokenIssuer(testSecret, auth.WithClock(clock.Now))
	require.NoError(t, err)

	other, err := auth.NewTokenIssuer([]byte("a-different-secret"), auth.WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue("user-1", time.Hour)
	require.NoError(t, err)

	valid, _, err := issuer.Issue("user-1", time.Hour)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"})
	noExpToken, err := noExp.SignedString(testSecret)
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	})
	noSubToken, err := noSub.SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "signed with another secret", token: foreign},
		{name: "tampered payload", token: tampered},
		{name: "alg none", token: unsigned},
		{name: "missing exp", token: noExpToken},
		{name: "missing subject", token: noSubToken},
		{name: "garbage", token: "not.a.jwt"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Validate(tt.token)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
		})
	}
}

func TestTokenIssuer_IssueRejectsBadInput(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSecret)
	require.NoError(t, err)

	_, _, err = issuer.Issue("", time.Hour)
	require.Error(t, err)

	_, _, err = issuer.Issue("user-1", 0)
	require.Error(t, err)
}
