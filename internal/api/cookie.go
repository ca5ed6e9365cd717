// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie carrying the token.
const CookieName = "token"

// cookieJar writes and clears the session cookie.
type cookieJar struct {
	secure bool
	maxAge time.Duration
}

func (j cookieJar) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, token, int(j.maxAge/time.Second), "/", "", j.secure, true)
}

func (j cookieJar) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, "", -1, "/", "", j.secure, true)
}

// requestToken returns the session token from the cookie, falling back to
// an Authorization: Bearer header.
func requestToken(c *gin.Context) string {
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
