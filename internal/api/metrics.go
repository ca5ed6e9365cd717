// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package api

import "github.com/prometheus/client_golang/prometheus"

// Requests counts HTTP requests by matched route and status code.
var Requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "blogauth_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	},
	[]string{"route", "status"},
)

// RegisterMetrics registers HTTP metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Requests)
}
