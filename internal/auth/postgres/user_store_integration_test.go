// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/auth/postgres"
)

var _ = Describe("UserStore", func() {
	var (
		ctx   context.Context
		users *postgres.UserStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = postgres.NewUserStore(testPool)
		_, err := testPool.Exec(ctx, "TRUNCATE users RESTART IDENTITY")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create", func() {
		It("inserts a record with no tokens", func() {
			u, err := users.Create(ctx, "bob@example.com", "hash")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal(int64(1)))
			Expect(u.SessionToken).To(BeNil())
			Expect(u.ResetToken).To(BeNil())
			Expect(u.CreatedAt).NotTo(BeZero())
		})

		It("rejects a duplicate email", func() {
			_, err := users.Create(ctx, "bob@example.com", "hash")
			Expect(err).NotTo(HaveOccurred())

			_, err = users.Create(ctx, "bob@example.com", "other")
			Expect(err).To(MatchError(auth.ErrConflict))
		})
	})

	Describe("Find", func() {
		It("matches on every supplied field", func() {
			created, err := users.Create(ctx, "bob@example.com", "hash")
			Expect(err).NotTo(HaveOccurred())
			digest := "d1"
			Expect(users.Update(ctx, created.ID, auth.Update{SessionToken: &digest})).To(Succeed())

			found, err := users.Find(ctx, auth.Criteria{Email: &created.Email, SessionToken: &digest})
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))

			other := "d2"
			_, err = users.Find(ctx, auth.Criteria{Email: &created.Email, SessionToken: &other})
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects empty criteria", func() {
			_, err := users.Find(ctx, auth.Criteria{})
			Expect(err).To(MatchError(auth.ErrInvalidQuery))
		})
	})

	Describe("Update", func() {
		It("writes and clears tokens in one statement", func() {
			u, err := users.Create(ctx, "bob@example.com", "hash")
			Expect(err).NotTo(HaveOccurred())
			reset := "r1"
			Expect(users.Update(ctx, u.ID, auth.Update{ResetToken: &reset})).To(Succeed())

			newHash := "hash2"
			Expect(users.Update(ctx, u.ID, auth.Update{PasswordHash: &newHash, ClearResetToken: true})).To(Succeed())

			found, err := users.Find(ctx, auth.ByID(u.ID))
			Expect(err).NotTo(HaveOccurred())
			Expect(found.PasswordHash).To(Equal("hash2"))
			Expect(found.ResetToken).To(BeNil())
			Expect(found.UpdatedAt).To(BeTemporally(">=", found.CreatedAt))
		})

		It("reports an unknown id", func() {
			Expect(users.Update(ctx, 42, auth.Update{ClearSessionToken: true})).To(MatchError(auth.ErrNotFound))
			Expect(users.Update(ctx, 42, auth.Update{})).To(MatchError(auth.ErrNotFound))
		})

		It("keeps live session tokens unique", func() {
			a, err := users.Create(ctx, "a@example.com", "h")
			Expect(err).NotTo(HaveOccurred())
			b, err := users.Create(ctx, "b@example.com", "h")
			Expect(err).NotTo(HaveOccurred())

			digest := "same"
			Expect(users.Update(ctx, a.ID, auth.Update{SessionToken: &digest})).To(Succeed())
			Expect(users.Update(ctx, b.ID, auth.Update{SessionToken: &digest})).To(MatchError(auth.ErrConflict))

			// Cleared tokens do not collide.
			Expect(users.Update(ctx, a.ID, auth.Update{ClearSessionToken: true})).To(Succeed())
			Expect(users.Update(ctx, b.ID, auth.Update{ClearSessionToken: true})).To(Succeed())
		})
	})

	It("drives the engine end to end", func() {
		engine, err := auth.NewEngine(users, auth.NewArgon2idHasher())
		Expect(err).NotTo(HaveOccurred())

		_, err = engine.Register(ctx, "bob@example.com", "pw")
		Expect(err).NotTo(HaveOccurred())

		token, ok, err := engine.CreateSession(ctx, "bob@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		id, ok, err := engine.UserForSession(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(id.Email).To(Equal("bob@example.com"))

		reset, err := engine.RequestPasswordReset(ctx, "bob@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.ConsumePasswordReset(ctx, reset, "new")).To(Succeed())
		Expect(engine.ConsumePasswordReset(ctx, reset, "newer")).To(MatchError(auth.ErrInvalidToken))

		ok, err = engine.VerifyLogin(ctx, "bob@example.com", "new")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})
})
