// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/holomush/userauth/internal/store"
)

// fakePool implements Pool for testing.
type fakePool struct {
	pingErr  error
	closed   atomic.Bool
	queryRow func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if p.queryRow != nil {
		return p.queryRow(ctx, sql, args...)
	}
	return errRow{err: pgx.ErrNoRows}
}

func (p *fakePool) Ping(context.Context) error { return p.pingErr }

func (p *fakePool) Close() { p.closed.Store(true) }

// errRow is a pgx.Row whose Scan fails with err.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// fakeMigrator implements Migrator for testing.
type fakeMigrator struct {
	mu      sync.Mutex
	calls   []string
	steps   []int
	forced  []int
	status  store.Status
	failErr error
	closed  bool
}

func (m *fakeMigrator) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.failErr
}

func (m *fakeMigrator) Up() error   { return m.record("up") }
func (m *fakeMigrator) Down() error { return m.record("down") }

func (m *fakeMigrator) Steps(n int) error {
	m.mu.Lock()
	m.steps = append(m.steps, n)
	m.mu.Unlock()
	return m.record("steps")
}

func (m *fakeMigrator) Force(version int) error {
	m.mu.Lock()
	m.forced = append(m.forced, version)
	m.mu.Unlock()
	return m.record("force")
}

func (m *fakeMigrator) Status() (store.Status, error) {
	return m.status, m.record("status")
}

func (m *fakeMigrator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// fakeServer implements Server for testing.
type fakeServer struct {
	startErr error
	errCh    chan error
	stopped  atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{errCh: make(chan error, 1)}
}

func (s *fakeServer) Start() (<-chan error, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.errCh, nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func (s *fakeServer) Addr() string { return "fake:0" }
