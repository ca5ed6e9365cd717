// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package api_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogauth/blogauth/internal/api"
)

func TestServer_Lifecycle(t *testing.T) {
	a := newTestAPI(t)
	srv := api.NewServer("127.0.0.1:0", a.router, nil)

	assert.Empty(t, srv.Addr())
	errCh, err := srv.Start()
	require.NoError(t, err)

	_, err = srv.Start()
	assert.Error(t, err, "second start must fail")

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "Hello from Blogging App Server", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx), "stop is idempotent")

	_, open := <-errCh
	assert.False(t, open, "error channel closes after a clean stop")
}

func TestServer_ListenFailure(t *testing.T) {
	srv := api.NewServer("256.0.0.1:0", http.NotFoundHandler(), nil)
	_, err := srv.Start()
	require.Error(t, err)
}
