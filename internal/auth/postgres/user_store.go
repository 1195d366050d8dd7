// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth.CredentialStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
)

const userColumns = "id, email, hashed_password, session_id, reset_token, created_at, updated_at"

// poolIface is the subset of *pgxpool.Pool used by UserStore.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserStore implements auth.CredentialStore using PostgreSQL.
type UserStore struct {
	pool poolIface
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ auth.CredentialStore = (*UserStore)(nil)

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	if email == "" || passwordHash == "" {
		return nil, oops.Code(auth.CodeStoreInvalidQuery).
			Wrapf(auth.ErrInvalidQuery, "email and password hash are required")
	}

	row := s.pool.QueryRow(ctx,
		"INSERT INTO users (email, hashed_password) VALUES ($1, $2) RETURNING "+userColumns,
		email, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

// Find returns the lowest-id user matching every set criterion.
func (s *UserStore) Find(ctx context.Context, criteria auth.Criteria) (*auth.User, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	where, args := whereClause(criteria)
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" ORDER BY id LIMIT 1",
		args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code(auth.CodeStoreNotFound).Wrapf(auth.ErrNotFound, "user not found")
		}
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "select user").
			With("where", where).
			Wrap(err)
	}
	return user, nil
}

// Update applies every write in update to the user in a single statement.
func (s *UserStore) Update(ctx context.Context, id int64, update auth.Update) error {
	if err := update.Validate(); err != nil {
		return err
	}

	if update.IsEmpty() {
		var exists bool
		err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return oops.Code("USER_UPDATE_FAILED").With("operation", "check user").With("user_id", id).Wrap(err)
		}
		if !exists {
			return notFound(id)
		}
		return nil
	}

	set, args := setClause(update)
	args = append(args, id)
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET "+set+", updated_at = now() WHERE id = $"+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		if conflict := asConflict(err); conflict != nil {
			return oops.With("user_id", id).Wrap(conflict)
		}
		return oops.Code("USER_UPDATE_FAILED").With("operation", "update user").With("user_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func whereClause(c auth.Criteria) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	if c.ID != nil {
		add("id", *c.ID)
	}
	if c.Email != nil {
		add("email", *c.Email)
	}
	if c.SessionToken != nil {
		add("session_id", *c.SessionToken)
	}
	if c.ResetToken != nil {
		add("reset_token", *c.ResetToken)
	}
	return strings.Join(conds, " AND "), args
}

func setClause(u auth.Update) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.PasswordHash != nil {
		add("hashed_password", *u.PasswordHash)
	}
	switch {
	case u.SessionToken != nil:
		add("session_id", *u.SessionToken)
	case u.ClearSessionToken:
		sets = append(sets, "session_id = NULL")
	}
	switch {
	case u.ResetToken != nil:
		add("reset_token", *u.ResetToken)
	case u.ClearResetToken:
		sets = append(sets, "reset_token = NULL")
	}
	return strings.Join(sets, ", "), args
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.SessionToken, &u.ResetToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &u, nil
}

// asConflict maps a unique violation to auth.ErrConflict, or returns nil.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}

	field := auth.Field(pgErr.ConstraintName)
	switch pgErr.ConstraintName {
	case auth.ConstraintEmail:
		field = auth.FieldEmail
	case auth.ConstraintSessionToken:
		field = auth.FieldSessionToken
	case auth.ConstraintResetToken:
		field = auth.FieldResetToken
	}
	return auth.Conflict(field, pgErr.ConstraintName)
}

func notFound(id int64) error {
	return oops.Code(auth.CodeStoreNotFound).
		With("user_id", id).
		Wrapf(auth.ErrNotFound, "user not found")
}
