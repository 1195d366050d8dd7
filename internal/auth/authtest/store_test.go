// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/authtest"
	"github.com/holomush/userauth/pkg/errutil"
)

func TestMemoryStore_Create(t *testing.T) {
	ctx := context.Background()
	store := authtest.NewMemoryStore()

	first, err := store.Create(ctx, "a@example.com", "h1")
	require.NoError(t, err)
	second, err := store.Create(ctx, "b@example.com", "h2")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Nil(t, first.SessionToken)
	assert.Nil(t, first.ResetToken)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = store.Create(ctx, "a@example.com", "h3")
	errutil.AssertCodedError(t, err, auth.ErrConflict, auth.CodeStoreConflict)
	errutil.AssertErrorContext(t, err, "field", auth.FieldEmail)
	errutil.AssertErrorContext(t, err, "constraint", auth.ConstraintEmail)

	_, err = store.Create(ctx, "", "h")
	require.ErrorIs(t, err, auth.ErrInvalidQuery)
}

func TestMemoryStore_Find(t *testing.T) {
	ctx := context.Background()
	store := authtest.NewMemoryStore()
	created, err := store.Create(ctx, "a@example.com", "h1")
	require.NoError(t, err)

	found, err := store.Find(ctx, auth.ByEmail("a@example.com"))
	require.NoError(t, err)
	assert.Equal(t, created, found)

	_, err = store.Find(ctx, auth.ByEmail("z@example.com"))
	require.ErrorIs(t, err, auth.ErrNotFound)
	errutil.AssertErrorCode(t, err, auth.CodeStoreNotFound)

	_, err = store.Find(ctx, auth.Criteria{})
	require.ErrorIs(t, err, auth.ErrInvalidQuery)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := authtest.NewMemoryStore()
	created, err := store.Create(ctx, "a@example.com", "h1")
	require.NoError(t, err)

	created.Email = "mutated@example.com"

	_, err = store.Find(ctx, auth.ByEmail("a@example.com"))
	require.NoError(t, err)
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	store := authtest.NewMemoryStore()
	a, err := store.Create(ctx, "a@example.com", "h1")
	require.NoError(t, err)
	b, err := store.Create(ctx, "b@example.com", "h2")
	require.NoError(t, err)

	digest := "digest"
	require.NoError(t, store.Update(ctx, a.ID, auth.Update{SessionToken: &digest}))

	found, err := store.Find(ctx, auth.BySessionToken("digest"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	t.Run("unknown id", func(t *testing.T) {
		err := store.Update(ctx, 99, auth.Update{ClearSessionToken: true})
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorContext(t, err, "user_id", int64(99))
	})

	t.Run("empty update checks id", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, a.ID, auth.Update{}))
		require.ErrorIs(t, store.Update(ctx, 99, auth.Update{}), auth.ErrNotFound)
	})

	t.Run("email conflict", func(t *testing.T) {
		email := "a@example.com"
		err := store.Update(ctx, b.ID, auth.Update{Email: &email})
		require.ErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorContext(t, err, "field", auth.FieldEmail)
		errutil.AssertErrorContext(t, err, "constraint", auth.ConstraintEmail)
	})

	t.Run("session token conflict", func(t *testing.T) {
		err := store.Update(ctx, b.ID, auth.Update{SessionToken: &digest})
		errutil.AssertCodedError(t, err, auth.ErrConflict, auth.CodeStoreConflict)
		errutil.AssertErrorContext(t, err, "field", auth.FieldSessionToken)
		errutil.AssertErrorContext(t, err, "constraint", auth.ConstraintSessionToken)
		errutil.AssertErrorContext(t, err, "user_id", b.ID)
	})

	t.Run("invalid update", func(t *testing.T) {
		err := store.Update(ctx, a.ID, auth.Update{SessionToken: &digest, ClearSessionToken: true})
		require.ErrorIs(t, err, auth.ErrInvalidQuery)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, a.ID, auth.Update{ClearSessionToken: true}))
		_, err := store.Find(ctx, auth.BySessionToken("digest"))
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}
