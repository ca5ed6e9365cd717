// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/blogauth/blogauth/internal/auth"
)

// Route paths.
const (
	PathSignup  = "/api/v1/auth/signup"
	PathLogin   = "/api/v1/auth/login"
	PathProfile = "/api/v1/auth/profile"
	PathLogout  = "/api/v1/auth/logout"
)

type handler struct {
	svc         AuthService
	logger      *slog.Logger
	cookies     cookieJar
	corsOrigins []string
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the logger for access and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSecureCookie controls the cookie Secure attribute. Defaults to true.
func WithSecureCookie(secure bool) Option {
	return func(h *handler) {
		h.cookies.secure = secure
	}
}

// WithCookieMaxAge sets the session cookie lifetime. It should match the token TTL.
func WithCookieMaxAge(d time.Duration) Option {
	return func(h *handler) {
		if d > 0 {
			h.cookies.maxAge = d
		}
	}
}

// WithCORSOrigins allows credentialed cross-origin requests from origins.
func WithCORSOrigins(origins ...string) Option {
	return func(h *handler) {
		h.corsOrigins = append(h.corsOrigins, origins...)
	}
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc AuthService, opts ...Option) *gin.Engine {
	h := &handler{
		svc:     svc,
		logger:  slog.New(slog.DiscardHandler),
		cookies: cookieJar{secure: true, maxAge: auth.DefaultTokenTTL},
	}
	for _, opt := range opts {
		opt(h)
	}

	r := gin.New()
	r.Use(recoverPanics(h.logger), accessLog(h.logger), countRequests())

	if len(h.corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     h.corsOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/", h.root)
	r.POST(PathSignup, h.signup)
	r.POST(PathLogin, h.login)
	r.GET(PathProfile, h.profile)
	r.GET(PathLogout, h.logout)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorBody{Code: auth.CodeNotFound, Message: "Route not found"})
	})
	return r
}
