// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for signup and login metrics.
const (
	ResultSuccess            = "success"
	ResultValidation         = "validation_error"
	ResultConflict           = "conflict"
	ResultInvalidCredentials = "invalid_credentials"
	ResultThrottled          = "throttled"
	ResultError              = "error"
)

// Signups counts signup attempts by result.
var Signups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blogauth_signups_total",
		Help: "Total number of signup attempts by result",
	},
	[]string{"result"},
)

// Logins counts login attempts by result.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blogauth_logins_total",
		Help: "Total number of login attempts by result",
	},
	[]string{"result"},
)

// HashDuration observes time spent hashing and verifying passwords, including
// time waiting for a pool slot.
var HashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "blogauth_hash_duration_seconds",
		Help:    "Password hash and verify duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Signups)
	reg.MustRegister(Logins)
	reg.MustRegister(HashDuration)
}

func recordSignup(result string) {
	Signups.WithLabelValues(result).Inc()
}

func recordLogin(result string) {
	Logins.WithLabelValues(result).Inc()
}

func observeHash(op string, started time.Time) {
	HashDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
