// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package api exposes the auth service over HTTP using gin.
//
// Routes live under /api/v1/auth. Login sets the session token as an
// HttpOnly cookie and also returns it in the body for clients that send
// it back as a Bearer token instead.
package api
