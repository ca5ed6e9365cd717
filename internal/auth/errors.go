// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package auth

import "errors"

// Store sentinels. Implementations wrap these so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned by Insert when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken is returned by Insert when the derived username is already in use.
	ErrUsernameTaken = errors.New("username already in use")
)

// Error codes attached to service errors with oops.Code.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeNotFound           = "NOT_FOUND"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeIntegrity          = "INTEGRITY_ERROR"
	CodeHashFailed         = "HASH_FAILED"
	CodeStoreFailed        = "STORE_FAILED"
)

// User-facing messages.
const (
	msgFieldsRequired      = "All fields are required"
	msgFullNameTooShort    = "fullname must be at least 3 characters long"
	msgPasswordTooShort    = "Password must be at least 6 characters long"
	msgInvalidEmail        = "Invalid email format"
	msgEmailInUse          = "Email already in use"
	msgLoginFieldsRequired = "Email and password are required"
	msgInvalidCredentials  = "Invalid email or password"
	msgHashFailed          = "Error hashing password"
	msgStoreFailed         = "Error registering user"
	msgLoginFailed         = "Error logging in"
	msgProfileFailed       = "Error fetching profile"
	msgTooManyAttempts     = "Too many failed login attempts, try again later"
	msgAuthRequired        = "Authentication required"
	msgUserNotFound        = "User not found"
)
