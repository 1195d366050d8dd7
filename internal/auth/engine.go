// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// Engine implements registration, login verification, sessions and the
// password reset flow on top of a CredentialStore. It holds no state of its
// own; every transition is a store update.
type Engine struct {
	store  CredentialStore
	hasher PasswordHasher
	logger *slog.Logger

	// dummyHash is verified when a login names an unknown email so that
	// response time does not reveal whether the account exists. It is made
	// by the configured hasher on first use and never matches.
	dummyMu   sync.Mutex
	dummyHash string
}

// NewEngine creates an Engine with a no-op logger.
// Returns an error if any required dependency is nil.
func NewEngine(store CredentialStore, hasher PasswordHasher) (*Engine, error) {
	return NewEngineWithLogger(store, hasher, slog.New(slog.DiscardHandler))
}

// NewEngineWithLogger creates an Engine that logs transitions to logger.
// Returns an error if any required dependency is nil.
func NewEngineWithLogger(store CredentialStore, hasher PasswordHasher, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Engine{store: store, hasher: hasher, logger: logger}, nil
}

// Register creates a user with the given email and password.
func (e *Engine) Register(ctx context.Context, email, password string) (*Identity, error) {
	if email == "" {
		return nil, missingField("email")
	}
	if password == "" {
		return nil, missingField("password")
	}

	_, err := e.store.Find(ctx, ByEmail(email))
	if err == nil {
		return nil, alreadyExists(email)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.With("operation", "find user by email").Wrap(err)
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	user, err := e.store.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, alreadyExists(email)
		}
		return nil, oops.With("operation", "create user").Wrap(err)
	}

	e.logger.DebugContext(ctx, "user registered", "user_id", user.ID)
	id := user.Identity()
	return &id, nil
}

// VerifyLogin reports whether password is correct for the user with the
// given email. An unknown email is a plain false. Session state is not
// touched; callers invoke CreateSession only after a true result.
func (e *Engine) VerifyLogin(ctx context.Context, email, password string) (bool, error) {
	user, err := e.store.Find(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn the same verification cost as a real account.
			dummy, err := e.dummyPasswordHash()
			if err != nil {
				return false, err
			}
			_, _ = e.hasher.Verify(password, dummy) //nolint:errcheck // timing guard only
			return false, nil
		}
		return false, oops.With("operation", "find user by email").Wrap(err)
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return false, oops.With("operation", "verify password").With("user_id", user.ID).Wrap(err)
	}
	if !ok {
		e.logger.DebugContext(ctx, "password mismatch", "user_id", user.ID)
	}
	return ok, nil
}

// CreateSession issues a fresh session token for the user with the given
// email, replacing any previous one. It performs no password check.
// ok is false if no such user exists.
func (e *Engine) CreateSession(ctx context.Context, email string) (token string, ok bool, err error) {
	user, err := e.store.Find(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, oops.With("operation", "find user by email").Wrap(err)
	}

	token, digest, err := GenerateToken()
	if err != nil {
		return "", false, err
	}

	if err := e.store.Update(ctx, user.ID, Update{SessionToken: &digest}); err != nil {
		return "", false, oops.With("operation", "store session token").With("user_id", user.ID).Wrap(err)
	}

	e.logger.DebugContext(ctx, "session created", "user_id", user.ID, "replaced", user.HasSession())
	return token, true, nil
}

// UserForSession resolves a session token to its user.
// ok is false for an empty or unknown token.
func (e *Engine) UserForSession(ctx context.Context, token string) (Identity, bool, error) {
	if token == "" {
		return Identity{}, false, nil
	}

	user, err := e.store.Find(ctx, BySessionToken(HashToken(token)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, false, nil
		}
		return Identity{}, false, oops.With("operation", "find user by session token").Wrap(err)
	}
	return user.Identity(), true, nil
}

// DestroySession clears the session of the given user. Destroying an
// already absent session is a no-op.
func (e *Engine) DestroySession(ctx context.Context, userID int64) error {
	if _, err := e.store.Find(ctx, ByID(userID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return userNotFound(userID)
		}
		return oops.With("operation", "find user by id").With("user_id", userID).Wrap(err)
	}

	if err := e.store.Update(ctx, userID, Update{ClearSessionToken: true}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return userNotFound(userID)
		}
		return oops.With("operation", "clear session token").With("user_id", userID).Wrap(err)
	}

	e.logger.DebugContext(ctx, "session destroyed", "user_id", userID)
	return nil
}

// RequestPasswordReset issues a reset token for the user with the given
// email. Only the latest token is honoured.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", missingField("email")
	}

	user, err := e.store.Find(ctx, ByEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeNotFound).
				With("email", email).
				Wrapf(ErrNotFound, "no user with email %s", email)
		}
		return "", oops.With("operation", "find user by email").Wrap(err)
	}

	token, digest, err := GenerateToken()
	if err != nil {
		return "", err
	}

	if err := e.store.Update(ctx, user.ID, Update{ResetToken: &digest}); err != nil {
		return "", oops.With("operation", "store reset token").With("user_id", user.ID).Wrap(err)
	}

	e.logger.DebugContext(ctx, "password reset requested", "user_id", user.ID, "replaced", user.HasPendingReset())
	return token, nil
}

// ConsumePasswordReset sets a new password for the holder of a pending reset
// token and clears the token in the same write, so it cannot be used twice.
func (e *Engine) ConsumePasswordReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return missingField("new_password")
	}
	if token == "" {
		return invalidToken()
	}

	user, err := e.store.Find(ctx, ByResetToken(HashToken(token)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidToken()
		}
		return oops.With("operation", "find user by reset token").Wrap(err)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return oops.With("operation", "hash password").With("user_id", user.ID).Wrap(err)
	}

	update := Update{PasswordHash: &hash, ClearResetToken: true}
	if err := e.store.Update(ctx, user.ID, update); err != nil {
		return oops.With("operation", "store new password").With("user_id", user.ID).Wrap(err)
	}

	e.logger.DebugContext(ctx, "password reset consumed", "user_id", user.ID)
	return nil
}

// dummyPasswordHash hashes a random secret with the configured hasher, so the
// guard costs the same as verifying a real record. A failed attempt is
// retried on the next call.
func (e *Engine) dummyPasswordHash() (string, error) {
	e.dummyMu.Lock()
	defer e.dummyMu.Unlock()

	if e.dummyHash != "" {
		return e.dummyHash, nil
	}
	secret, _, err := GenerateToken()
	if err != nil {
		return "", err
	}
	hash, err := e.hasher.Hash(secret)
	if err != nil {
		return "", oops.With("operation", "hash dummy password").Wrap(err)
	}
	e.dummyHash = hash
	return hash, nil
}

func missingField(field string) error {
	return oops.Code(CodeMissingField).
		With("field", field).
		Wrapf(ErrMissingField, "%s missing", field)
}

func alreadyExists(email string) error {
	return oops.Code(CodeAlreadyExists).
		With("email", email).
		Wrapf(ErrAlreadyExists, "user %s already exists", email)
}

func userNotFound(id int64) error {
	return oops.Code(CodeUserNotFound).
		With("user_id", id).
		Wrapf(ErrUserNotFound, "%d is not a valid user id", id)
}

func invalidToken() error {
	return oops.Code(CodeInvalidToken).Wrapf(ErrInvalidToken, "reset token is invalid or expired")
}
