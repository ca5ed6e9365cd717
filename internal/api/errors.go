// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/blogauth/blogauth/internal/auth"
	"github.com/blogauth/blogauth/pkg/errutil"
)

// CodeInternal is reported for errors that carry no known code.
const CodeInternal = "INTERNAL"

const msgInternal = "Internal server error"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	auth.CodeValidation:         http.StatusBadRequest,
	auth.CodeConflict:           http.StatusBadRequest,
	auth.CodeInvalidCredentials: http.StatusBadRequest,
	auth.CodeUnauthenticated:    http.StatusUnauthorized,
	auth.CodeTokenExpired:       http.StatusUnauthorized,
	auth.CodeTokenInvalid:       http.StatusUnauthorized,
	auth.CodeNotFound:           http.StatusNotFound,
	auth.CodeTooManyAttempts:    http.StatusTooManyRequests,
	auth.CodeIntegrity:          http.StatusInternalServerError,
	auth.CodeHashFailed:         http.StatusInternalServerError,
	auth.CodeStoreFailed:        http.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status and response code.
func StatusFor(err error) (int, string) {
	code := errutil.Code(err)
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeError renders err. Server errors are logged and answered with their
// public message only.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := StatusFor(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(c.Request.Context(), logger, "request failed", err)
		message = oops.GetPublic(err, msgInternal)
		if code == CodeInternal {
			message = msgInternal
		}
	}

	_ = c.Error(err) //nolint:errcheck // recorded for the access log
	c.AbortWithStatusJSON(status, ErrorBody{Code: code, Message: message})
}
