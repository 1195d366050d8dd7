// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides an in-memory CredentialStore for tests and local runs.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
)

// MemoryStore is a CredentialStore backed by a slice. It enforces the same
// uniqueness rules as the postgres schema and is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	users  []*auth.User // ordered by id
	nextID int64
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

// Compile-time interface check.
var _ auth.CredentialStore = (*MemoryStore)(nil)

// Create inserts a new record.
func (s *MemoryStore) Create(_ context.Context, email, passwordHash string) (*auth.User, error) {
	if email == "" || passwordHash == "" {
		return nil, oops.Code(auth.CodeStoreInvalidQuery).
			Wrapf(auth.ErrInvalidQuery, "email and password hash are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, auth.Conflict(auth.FieldEmail, auth.ConstraintEmail)
		}
	}

	now := s.now()
	u := &auth.User{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.nextID++
	s.users = append(s.users, u)
	return clone(u), nil
}

// Find returns the lowest-id record matching criteria.
func (s *MemoryStore) Find(_ context.Context, criteria auth.Criteria) (*auth.User, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if criteria.Matches(u) {
			return clone(u), nil
		}
	}
	return nil, oops.Code(auth.CodeStoreNotFound).Wrapf(auth.ErrNotFound, "user not found")
}

// Update applies update to the record with the given id.
func (s *MemoryStore) Update(_ context.Context, id int64, update auth.Update) error {
	if err := update.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.byID(id)
	if target == nil {
		return oops.Code(auth.CodeStoreNotFound).
			With("user_id", id).
			Wrapf(auth.ErrNotFound, "user not found")
	}
	if update.IsEmpty() {
		return nil
	}
	if err := s.checkUnique(id, update); err != nil {
		return err
	}

	update.Apply(target)
	target.UpdatedAt = s.now()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *MemoryStore) byID(id int64) *auth.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *MemoryStore) checkUnique(id int64, update auth.Update) error {
	for _, u := range s.users {
		if u.ID == id {
			continue
		}
		var field auth.Field
		switch {
		case update.Email != nil && u.Email == *update.Email:
			field = auth.FieldEmail
		case update.SessionToken != nil && u.SessionToken != nil && *u.SessionToken == *update.SessionToken:
			field = auth.FieldSessionToken
		case update.ResetToken != nil && u.ResetToken != nil && *u.ResetToken == *update.ResetToken:
			field = auth.FieldResetToken
		default:
			continue
		}
		return oops.With("user_id", id).Wrap(auth.Conflict(field, auth.ConstraintFor(field)))
	}
	return nil
}

func clone(u *auth.User) *auth.User {
	c := *u
	if u.SessionToken != nil {
		v := *u.SessionToken
		c.SessionToken = &v
	}
	if u.ResetToken != nil {
		v := *u.ResetToken
		c.ResetToken = &v
	}
	return &c
}
