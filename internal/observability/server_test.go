// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogauth/blogauth/pkg/errutil"
)

var quiet = WithLogger(slog.New(slog.DiscardHandler))

func startServer(t *testing.T, checker ReadinessChecker, opts ...Option) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checker, append([]Option{quiet}, opts...)...)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil, WithBuildInfo("1.2.3"))

	status, body := get(t, "http://"+server.Addr()+PathMetrics)

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `blogauth_build_info{version="1.2.3"} 1`)
}

func TestServer_RegistryExposesComponentMetrics(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, quiet)
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blogauth_test_events_total",
		Help: "Events counted by the test",
	})
	server.Registry().MustRegister(counter)
	counter.Add(3)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathMetrics, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blogauth_test_events_total 3")
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func(context.Context) error { return errors.New("down") })

	status, body := get(t, "http://"+server.Addr()+PathLiveness)

	assert.Equal(t, http.StatusOK, status, "liveness ignores readiness")
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name    string
		checker ReadinessChecker
		status  int
		body    string
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok\n"},
		{"not ready", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable, "not ready\n"},
		{"nil checker", nil, http.StatusOK, "ok\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("127.0.0.1:0", tt.checker, quiet)
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathReadiness, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestServer_ReadinessTimeout(t *testing.T) {
	checker := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	server := NewServer("127.0.0.1:0", checker, quiet, WithReadinessTimeout(20*time.Millisecond))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathReadiness, nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	_, err := server.Start()
	assert.Error(t, err)
}

func TestServer_ListenFailure(t *testing.T) {
	server := NewServer("256.0.0.1:0", nil, quiet)

	_, err := server.Start()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "LISTEN_FAILED")

	// A failed Start leaves the server stoppable.
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, quiet)
	assert.NoError(t, server.Stop(context.Background()))
	assert.Empty(t, server.Addr())
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, quiet)
	errCh, err := server.Start()
	require.NoError(t, err)

	require.NoError(t, server.Stop(context.Background()))

	select {
	case serveErr, ok := <-errCh:
		assert.False(t, ok, "channel should close without an error, got %v", serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel was not closed")
	}
}
