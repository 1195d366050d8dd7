// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/pkg/errutil"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestWaitReady(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		p := &flakyPinger{failures: 2}
		require.NoError(t, waitReady(ctx, p, 5, time.Millisecond, discard()))
		assert.Equal(t, 3, p.calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		p := &flakyPinger{failures: 100}
		err := waitReady(ctx, p, 3, time.Millisecond, discard())
		require.Error(t, err)
		assert.Equal(t, 3, p.calls)
		errutil.AssertErrorCode(t, err, "DATABASE_CONNECT_FAILED")
		errutil.AssertErrorContext(t, err, "attempts", 3)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		p := &flakyPinger{}
		require.NoError(t, waitReady(ctx, p, 0, time.Millisecond, discard()))
		assert.Equal(t, 1, p.calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		p := &flakyPinger{failures: 100}
		err := waitReady(cctx, p, 10, time.Hour, discard())
		require.Error(t, err)
		assert.LessOrEqual(t, p.calls, 1)
	})
}

func TestOpen_RejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "", 1, discard())
	errutil.AssertErrorCode(t, err, "DATABASE_URL_MISSING")

	_, err = Open(context.Background(), "postgres://%zz", 1, discard())
	errutil.AssertErrorCode(t, err, "DATABASE_URL_INVALID")
}
