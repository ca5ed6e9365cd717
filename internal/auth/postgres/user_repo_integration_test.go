// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

//go:build integration

package postgres_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/blogauth/blogauth/internal/auth"
	"github.com/blogauth/blogauth/internal/auth/postgres"
)

func newUser(email, username string) *auth.UserCredential {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auth.UserCredential{
		ID:           ulid.Make(),
		Email:        email,
		Username:     username,
		FullName:     "Ann Lee",
		PasswordHash: "$2a$10$placeholderplaceholderplaceholderplaceholderplacehold",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("UserRepository", func() {
	var repo *postgres.UserRepository

	BeforeEach(func() {
		repo = postgres.NewUserRepository(pool)
	})

	It("round-trips a user", func() {
		u := newUser("ann@example.com", "ann42")
		Expect(repo.Insert(ctx, u)).To(Succeed())

		byEmail, err := repo.FindByEmail(ctx, "ANN@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(byEmail.ID).To(Equal(u.ID))
		Expect(byEmail.CreatedAt.Equal(u.CreatedAt)).To(BeTrue())

		byID, err := repo.FindByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Username).To(Equal("ann42"))
		Expect(byID.PasswordHash).To(Equal(u.PasswordHash))
	})

	It("stores email lowercased", func() {
		u := newUser("Mixed@Example.COM", "mixed1")
		Expect(repo.Insert(ctx, u)).To(Succeed())

		got, err := repo.FindByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Email).To(Equal("mixed@example.com"))
	})

	It("reports missing users as ErrNotFound", func() {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))

		_, err = repo.FindByID(ctx, ulid.Make())
		Expect(err).To(MatchError(auth.ErrNotFound))

		Expect(repo.UpdatePasswordHash(ctx, ulid.Make(), "x")).To(MatchError(auth.ErrNotFound))
	})

	It("maps unique violations to sentinels", func() {
		Expect(repo.Insert(ctx, newUser("ann@example.com", "ann42"))).To(Succeed())

		Expect(repo.Insert(ctx, newUser("ann@example.com", "ann43"))).To(MatchError(auth.ErrEmailTaken))
		Expect(repo.Insert(ctx, newUser("other@example.com", "ann42"))).To(MatchError(auth.ErrUsernameTaken))
	})

	It("admits exactly one of many concurrent inserts for one email", func() {
		const writers = 8
		var wg sync.WaitGroup
		var ok, taken atomic.Int32
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				err := repo.Insert(ctx, newUser("race@example.com", "race"+string(rune('a'+i))))
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, auth.ErrEmailTaken):
					taken.Add(1)
				}
			}(i)
		}
		wg.Wait()
		Expect(ok.Load()).To(Equal(int32(1)))
		Expect(taken.Load()).To(Equal(int32(writers - 1)))
	})

	It("updates the password hash", func() {
		u := newUser("ann@example.com", "ann42")
		Expect(repo.Insert(ctx, u)).To(Succeed())
		Expect(repo.UpdatePasswordHash(ctx, u.ID, "$argon2id$new")).To(Succeed())

		got, err := repo.FindByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("$argon2id$new"))
		Expect(got.UpdatedAt).To(BeTemporally(">=", u.UpdatedAt))
	})

	It("pings", func() {
		Expect(repo.Ping(ctx)).To(Succeed())
	})
})
