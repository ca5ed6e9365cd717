// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package postgres implements auth.CredentialStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/blogauth/blogauth/internal/auth"
)

// Unique constraint names from migration 000001.
const (
	constraintEmail    = "users_email_key"
	constraintUsername = "users_username_key"
)

// poolIface is the subset of pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const selectUser = `
	SELECT id, email, username, fullname, password_hash, created_at, updated_at
	FROM users
`

// UserRepository implements auth.CredentialStore using PostgreSQL.
type UserRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// FindByEmail retrieves a user by email. The address is normalized first;
// stored emails are lowercase, so the lookup uses users_email_key.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.UserCredential, error) {
	email = auth.NormalizeEmail(email)
	row := r.pool.QueryRow(ctx, selectUser+`WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by email").With("email", email).Wrap(err)
	}
	return user, nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.UserCredential, error) {
	row := r.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by id").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// Insert stores a new user. The unique indexes on email and username make
// the check-and-write atomic.
func (r *UserRepository) Insert(ctx context.Context, user *auth.UserCredential) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, username, fullname, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID.String(),
		auth.NormalizeEmail(user.Email),
		user.Username,
		user.FullName,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case constraintEmail:
			return oops.With("email", user.Email).Wrap(auth.ErrEmailTaken)
		case constraintUsername:
			return oops.With("username", user.Username).Wrap(auth.ErrUsernameTaken)
		}
	}
	return oops.With("operation", "insert user").With("username", user.Username).Wrap(err)
}

// UpdatePasswordHash replaces the stored hash for a user.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, r.now().UTC())
	if err != nil {
		return oops.With("operation", "update password hash").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return oops.With("operation", "ping database").Wrap(err)
	}
	return nil
}

// scanUser scans a single row. pgx.ErrNoRows is returned unwrapped so
// callers can map it.
func scanUser(row pgx.Row) (*auth.UserCredential, error) {
	var (
		idStr string
		user  auth.UserCredential
	)
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.With("operation", "scan user").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("id", idStr).Wrap(err)
	}
	user.ID = id
	return &user, nil
}

// Compile-time interface check.
var _ auth.CredentialStore = (*UserRepository)(nil)
