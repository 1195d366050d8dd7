// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/pkg/errutil"
)

var userColumns = []string{"id", "email", "hashed_password", "session_id", "reset_token", "created_at", "updated_at"}

func runUser(t *testing.T, pool Pool, args ...string) (string, error) {
	t.Helper()
	isolateConfig(t)

	cmd := newUserCmdWithDeps(&Deps{
		PoolOpener: func(context.Context, string, int, *slog.Logger) (Pool, error) { return pool, nil },
	})
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"email=bob@me.com", "id=7", "reset_token="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "bob@me.com", "id": "7", "reset_token": ""}, values)

	_, err = parseAssignments([]string{"email"})
	errutil.AssertErrorCode(t, err, "INVALID_ARGUMENT")

	_, err = parseAssignments([]string{"=x"})
	errutil.AssertErrorCode(t, err, "INVALID_ARGUMENT")

	_, err = parseAssignments([]string{"id=1", "id=2"})
	errutil.AssertErrorCode(t, err, "INVALID_ARGUMENT")
}

func TestUserFind_PrintsRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := "digest"
	mock.ExpectQuery("SELECT .+ FROM users WHERE").
		WithArgs("bob@me.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(7), "bob@me.com", "hash", &session, (*string)(nil), created, created))

	out, err := runUser(t, mock, "find", "email=bob@me.com")

	require.NoError(t, err)
	assert.Contains(t, out, "id:            7")
	assert.Contains(t, out, "email:         bob@me.com")
	assert.Contains(t, out, "session:       yes")
	assert.Contains(t, out, "reset pending: no")
	assert.NotContains(t, out, "hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFind_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE").
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	out, err := runUser(t, mock, "find", "id=42")

	require.ErrorIs(t, err, auth.ErrNotFound)
	assert.Contains(t, out, "No matching user")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFind_RejectsBadCriteria(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown field", []string{"find", "nickname=bob"}},
		{"password hash is not a key", []string{"find", "hashed_password=x"}},
		{"non-integer id", []string{"find", "id=seven"}},
		{"two names for one field", []string{"find", "session_id=a", "session_token=b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runUser(t, &fakePool{}, tt.args...)

			require.ErrorIs(t, err, auth.ErrInvalidQuery)
			errutil.AssertErrorCode(t, err, auth.CodeStoreInvalidQuery)
		})
	}
}

func TestUserFind_RequiresArgument(t *testing.T) {
	_, err := runUser(t, &fakePool{}, "find")
	assert.Error(t, err)
}
