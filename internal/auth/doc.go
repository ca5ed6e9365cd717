// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package auth implements account registration, password login and
// session token validation.
//
// # Components
//
//   - CredentialStore persists UserCredential records and enforces unique
//     email and username on insert.
//   - PasswordHasher produces and checks salted hashes. MultiHasher issues
//     bcrypt and still verifies argon2id hashes from older deployments.
//   - HashPool bounds how many hash operations run at once.
//   - TokenIssuer mints and validates HS256 session tokens.
//   - LoginThrottle locks an email after repeated failed logins.
//
// Service ties these together and is the only entry point the HTTP layer uses.
//
// # Errors
//
// Service returns oops errors carrying one of the Code* constants.
// Store implementations return errors wrapping ErrNotFound, ErrEmailTaken
// or ErrUsernameTaken and never set a code themselves.
package auth
