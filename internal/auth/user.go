// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// User is the persisted credential record.
//
// SessionToken and ResetToken hold SHA-256 digests of the tokens handed to
// the client, never the tokens themselves. A nil value means no live session
// or no pending reset respectively.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	SessionToken *string
	ResetToken   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the public identity of the record.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}

// HasSession reports whether the user holds a live session token.
func (u *User) HasSession() bool {
	return u.SessionToken != nil
}

// HasPendingReset reports whether a password reset is pending.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil
}

// Identity is what the engine hands back to the boundary layer.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Field names a recognized user record attribute.
type Field string

// Recognized fields.
const (
	FieldID           Field = "id"
	FieldEmail        Field = "email"
	FieldPasswordHash Field = "password_hash"
	FieldSessionToken Field = "session_token"
	FieldResetToken   Field = "reset_token"
)

// fieldAliases maps accepted external names to their Field. The persisted
// column names (hashed_password, session_id) are accepted too.
var fieldAliases = map[string]Field{
	"id":              FieldID,
	"email":           FieldEmail,
	"password_hash":   FieldPasswordHash,
	"hashed_password": FieldPasswordHash,
	"session_token":   FieldSessionToken,
	"session_id":      FieldSessionToken,
	"reset_token":     FieldResetToken,
}

// ParseField resolves an external field name.
func ParseField(name string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", oops.Code(CodeStoreInvalidQuery).
			With("field", name).
			Wrapf(ErrInvalidQuery, "unrecognized field %q", name)
	}
	return f, nil
}

// Criteria selects user records. Every non-nil field must match.
type Criteria struct {
	ID           *int64
	Email        *string
	SessionToken *string
	ResetToken   *string
}

// ByID selects the record with the given id.
func ByID(id int64) Criteria { return Criteria{ID: &id} }

// ByEmail selects the record with the given email.
func ByEmail(email string) Criteria { return Criteria{Email: &email} }

// BySessionToken selects the record holding the given session token digest.
func BySessionToken(digest string) Criteria { return Criteria{SessionToken: &digest} }

// ByResetToken selects the record holding the given reset token digest.
func ByResetToken(digest string) Criteria { return Criteria{ResetToken: &digest} }

// IsEmpty reports whether no criterion is set.
func (c Criteria) IsEmpty() bool {
	return c.ID == nil && c.Email == nil && c.SessionToken == nil && c.ResetToken == nil
}

// Validate rejects an empty criteria set.
func (c Criteria) Validate() error {
	if c.IsEmpty() {
		return oops.Code(CodeStoreInvalidQuery).Wrapf(ErrInvalidQuery, "no search criteria provided")
	}
	return nil
}

// Matches reports whether u satisfies every set criterion.
func (c Criteria) Matches(u *User) bool {
	if c.ID != nil && u.ID != *c.ID {
		return false
	}
	if c.Email != nil && u.Email != *c.Email {
		return false
	}
	if c.SessionToken != nil && (u.SessionToken == nil || *u.SessionToken != *c.SessionToken) {
		return false
	}
	if c.ResetToken != nil && (u.ResetToken == nil || *u.ResetToken != *c.ResetToken) {
		return false
	}
	return true
}

// CriteriaFromMap builds Criteria from field-name/value pairs, as supplied by
// dynamic callers such as the CLI. Unknown names, non-integer ids, two names
// for the same field and the password hash (which is not a lookup key) yield
// ErrInvalidQuery.
func CriteriaFromMap(values map[string]string) (Criteria, error) {
	var c Criteria
	if len(values) == 0 {
		return c, c.Validate()
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[Field]string, len(names))
	for _, name := range names {
		value := values[name]
		field, err := ParseField(name)
		if err != nil {
			return Criteria{}, err
		}
		if prev, dup := seen[field]; dup {
			return Criteria{}, oops.Code(CodeStoreInvalidQuery).
				With("field", field).
				Wrapf(ErrInvalidQuery, "%s and %s name the same field", prev, name)
		}
		seen[field] = name
		switch field {
		case FieldID:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Criteria{}, oops.Code(CodeStoreInvalidQuery).
					With("field", name).
					Wrapf(ErrInvalidQuery, "id must be an integer: %v", err)
			}
			c.ID = &id
		case FieldEmail:
			c.Email = &value
		case FieldSessionToken:
			c.SessionToken = &value
		case FieldResetToken:
			c.ResetToken = &value
		default:
			return Criteria{}, oops.Code(CodeStoreInvalidQuery).
				With("field", name).
				Wrapf(ErrInvalidQuery, "%s cannot be used as a search criterion", field)
		}
	}
	return c, nil
}

// Update describes the writes applied to one record. Nil pointers leave the
// field untouched; the Clear flags set the corresponding token to null.
type Update struct {
	Email             *string
	PasswordHash      *string
	SessionToken      *string
	ResetToken        *string
	ClearSessionToken bool
	ClearResetToken   bool
}

// IsEmpty reports whether the update writes nothing.
func (u Update) IsEmpty() bool {
	return u.Email == nil && u.PasswordHash == nil &&
		u.SessionToken == nil && u.ResetToken == nil &&
		!u.ClearSessionToken && !u.ClearResetToken
}

// Validate rejects contradictory or blank writes.
func (u Update) Validate() error {
	if u.SessionToken != nil && u.ClearSessionToken {
		return oops.Code(CodeStoreInvalidQuery).
			With("field", FieldSessionToken).
			Wrapf(ErrInvalidQuery, "session token both set and cleared")
	}
	if u.ResetToken != nil && u.ClearResetToken {
		return oops.Code(CodeStoreInvalidQuery).
			With("field", FieldResetToken).
			Wrapf(ErrInvalidQuery, "reset token both set and cleared")
	}
	if u.Email != nil && *u.Email == "" {
		return oops.Code(CodeStoreInvalidQuery).
			With("field", FieldEmail).
			Wrapf(ErrInvalidQuery, "email cannot be blank")
	}
	if u.PasswordHash != nil && *u.PasswordHash == "" {
		return oops.Code(CodeStoreInvalidQuery).
			With("field", FieldPasswordHash).
			Wrapf(ErrInvalidQuery, "password hash cannot be blank")
	}
	return nil
}

// Apply writes the update onto u. Callers validate first.
func (u Update) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.SessionToken != nil {
		v := *u.SessionToken
		user.SessionToken = &v
	}
	if u.ClearSessionToken {
		user.SessionToken = nil
	}
	if u.ResetToken != nil {
		v := *u.ResetToken
		user.ResetToken = &v
	}
	if u.ClearResetToken {
		user.ResetToken = nil
	}
}

// CredentialStore persists user records.
type CredentialStore interface {
	// Create inserts a record with no session and no pending reset.
	// Returns ErrConflict if the email is already taken.
	Create(ctx context.Context, email, passwordHash string) (*User, error)

	// Find returns the record matching every set criterion.
	// Returns ErrInvalidQuery for empty criteria and ErrNotFound on no match.
	// If several records match, the one with the lowest id is returned.
	Find(ctx context.Context, criteria Criteria) (*User, error)

	// Update applies all writes to the record atomically.
	// Returns ErrInvalidQuery for a malformed update and ErrNotFound for an unknown id.
	Update(ctx context.Context, id int64, update Update) error
}
