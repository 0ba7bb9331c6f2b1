// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"context"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/session"
)

var _ = Describe("Auth service against PostgreSQL", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = env.ctx
		cleanupTables(ctx, env.pool)
	})

	Describe("Register", func() {
		It("persists a new user with a hashed password", func() {
			result, err := env.Service.Register(ctx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OK()).To(BeTrue())

			stored, err := env.Users.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).To(Equal(result.User.ID))
			Expect(stored.PasswordHash).To(HavePrefix("$argon2id$"))
			Expect(stored.PasswordHash).NotTo(ContainSubstring("secret"))
		})

		It("rejects a taken username on the username field", func() {
			_, err := env.Service.Register(ctx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			result, err := env.Service.Register(ctx, auth.Credentials{Username: "alice", Password: "other"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OK()).To(BeFalse())
			Expect(result.Errors).To(ConsistOf(auth.FieldError{
				Kind:    auth.KindDuplicateUsername,
				Field:   auth.FieldUsername,
				Message: auth.MessageUsernameTaken,
			}))
		})

		It("treats usernames as case-sensitive", func() {
			for _, name := range []string{"alice", "Alice"} {
				result, err := env.Service.Register(ctx, auth.Credentials{Username: name, Password: "secret"})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.OK()).To(BeTrue(), name)
			}
		})

		It("admits exactly one of many concurrent registrations", func() {
			const workers = 8
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
				dupes    int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					result, err := env.Service.Register(ctx, auth.Credentials{Username: "racer", Password: "secret"})
					Expect(err).NotTo(HaveOccurred())
					mu.Lock()
					defer mu.Unlock()
					if result.OK() {
						accepted++
						return
					}
					Expect(result.Kind()).To(Equal(auth.KindDuplicateUsername))
					dupes++
				}()
			}
			wg.Wait()

			Expect(accepted).To(Equal(1))
			Expect(dupes).To(Equal(workers - 1))
		})

		It("does not bind a session", func() {
			regCtx, carrier := withCarrier("")
			result, err := env.Service.Register(regCtx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OK()).To(BeTrue())
			Expect(carrier.Changed()).To(BeFalse())

			user, err := env.Service.CurrentUser(regCtx)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			result, err := env.Service.Register(ctx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OK()).To(BeTrue())
		})

		It("binds the session so CurrentUser resolves", func() {
			loginCtx, carrier := withCarrier("")
			result, err := env.Service.Login(loginCtx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OK()).To(BeTrue())
			Expect(carrier.Changed()).To(BeTrue())

			// A later request presents the issued token.
			nextCtx, _ := withCarrier(carrier.Token())
			user, err := env.Service.CurrentUser(nextCtx)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).NotTo(BeNil())
			Expect(user.Username).To(Equal("alice"))
		})

		It("rotates the token and revokes the previous one", func() {
			firstCtx, first := withCarrier("")
			_, err := env.Service.Login(firstCtx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			oldToken := first.Token()

			againCtx, again := withCarrier(oldToken)
			_, err = env.Service.Login(againCtx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Token()).NotTo(Equal(oldToken))

			_, err = env.Sessions.Get(ctx, session.HashToken(oldToken))
			Expect(err).To(MatchError(session.ErrNotFound))

			staleCtx, _ := withCarrier(oldToken)
			user, err := env.Service.CurrentUser(staleCtx)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())
		})

		It("returns the same generic error for a wrong password and an unknown user", func() {
			for _, creds := range []auth.Credentials{
				{Username: "alice", Password: "wrong"},
				{Username: "nobody", Password: "secret"},
			} {
				loginCtx, carrier := withCarrier("")
				result, err := env.Service.Login(loginCtx, creds)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Errors).To(ConsistOf(auth.FieldError{
					Kind:    auth.KindInvalidCredentials,
					Message: auth.MessageInvalidCredentials,
				}))
				Expect(carrier.Changed()).To(BeFalse())
			}
		})
	})

	Describe("Session expiry", func() {
		It("reads expired sessions as anonymous and sweeps them", func() {
			result, err := env.Service.Register(ctx, auth.Credentials{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			past := time.Now().Add(-2 * time.Hour)
			shortBinder, err := session.NewBinder(env.Sessions,
				session.WithTTL(time.Hour),
				session.WithClock(func() time.Time { return past }),
			)
			Expect(err).NotTo(HaveOccurred())

			bindCtx, carrier := withCarrier("")
			Expect(shortBinder.Bind(bindCtx, result.User.ID)).To(Succeed())

			readCtx, _ := withCarrier(carrier.Token())
			user, err := env.Service.CurrentUser(readCtx)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())

			sweeper := session.NewSweeper(env.Sessions, time.Minute, slog.New(slog.DiscardHandler))
			Expect(sweeper.SweepOnce(ctx)).To(BeEquivalentTo(1))
		})
	})
})
