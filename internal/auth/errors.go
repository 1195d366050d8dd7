// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Store-level errors. These describe contract violations or lookup misses in
// a CredentialStore and are wrapped with the Code* values below.
var (
	// ErrNotFound is returned when no user record matches a lookup.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrInvalidQuery is returned for an empty criteria set, an unrecognized
	// field name, or a malformed update. It indicates a programming error.
	ErrInvalidQuery = errors.New("invalid query")
)

// Engine-level errors.
var (
	// ErrMissingField is returned when a required argument is empty.
	ErrMissingField = errors.New("missing field")

	// ErrAlreadyExists is returned when registering an email that is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUserNotFound is returned when an operation addresses an unknown user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken is returned when a reset token matches no pending reset.
	ErrInvalidToken = errors.New("invalid token")
)

// Uniqueness constraints created by the users migration.
const (
	ConstraintEmail        = "users_email_key"
	ConstraintSessionToken = "users_session_id_key"
	ConstraintResetToken   = "users_reset_token_key"
)

// Error codes attached with oops.Code.
const (
	CodeStoreNotFound     = "STORE_NOT_FOUND"
	CodeStoreConflict     = "STORE_CONFLICT"
	CodeStoreInvalidQuery = "STORE_INVALID_QUERY"

	CodeMissingField  = "AUTH_MISSING_FIELD"
	CodeAlreadyExists = "AUTH_ALREADY_EXISTS"
	CodeNotFound      = "AUTH_NOT_FOUND"
	CodeUserNotFound  = "AUTH_USER_NOT_FOUND"
	CodeInvalidToken  = "AUTH_INVALID_TOKEN"
)

// Conflict is the error every CredentialStore returns when a write violates
// the uniqueness of field. It carries "field" and "constraint" context.
func Conflict(field Field, constraint string) error {
	return oops.Code(CodeStoreConflict).
		With("field", field).
		With("constraint", constraint).
		Wrapf(ErrConflict, "%s already taken", field)
}

// ConstraintFor returns the uniqueness constraint guarding field, or "" if
// the field is not unique.
func ConstraintFor(field Field) string {
	switch field {
	case FieldEmail:
		return ConstraintEmail
	case FieldSessionToken:
		return ConstraintSessionToken
	case FieldResetToken:
		return ConstraintResetToken
	default:
		return ""
	}
}
