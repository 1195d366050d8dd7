// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides session-based user authentication.
//
// # Credential Store
//
// A CredentialStore persists User records and exposes three operations:
//   - Create - inserts a record with no session and no pending reset
//   - Find - returns the record matching a Criteria
//   - Update - applies an Update to one record atomically
//
// Criteria and Update are closed structs. Field names supplied at runtime
// are resolved with ParseField or CriteriaFromMap and rejected with
// ErrInvalidQuery when unknown.
//
// # Engine
//
// Engine implements the account lifecycle on top of a CredentialStore:
// registration, login verification, sessions, and the password reset flow.
// Session and reset tokens are random hex strings; only their SHA-256
// digests are persisted.
//
// Engines are created with NewEngine or NewEngineWithLogger, which validate
// dependencies.
package auth
