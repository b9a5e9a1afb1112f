// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package identity_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/identity"
	"github.com/holomush/passport/internal/identity/sweeper"
)

var _ = Describe("Identity workflows", func() {
	for _, backend := range []string{"postgres", "redis"} {
		Context("with "+backend+" sessions", func() {
			var (
				ctx         context.Context
				ids         *identity.ULIDGenerator
				provisioner *identity.ProvisioningService
				resolver    *identity.ResolutionService
				registrar   *identity.RegistrationService
				login       *identity.LoginService
				sessions    identity.SessionRepository
			)

			BeforeEach(func() {
				ctx = context.Background()
				env.reset()
				sessions = sessionBackends()[backend]
				ids = identity.NewULIDGenerator()
				tokens := identity.NewRandomTokenGenerator()
				hasher := fastHasher()

				var err error
				provisioner, err = identity.NewProvisioningService(ids, tokens, env.Anonymous, sessions)
				Expect(err).NotTo(HaveOccurred())
				resolver, err = identity.NewResolutionService(sessions, env.Authenticated, env.Anonymous)
				Expect(err).NotTo(HaveOccurred())
				registrar, err = identity.NewRegistrationService(env.Authenticated, env.Anonymous, env.Credentials, hasher)
				Expect(err).NotTo(HaveOccurred())
				login, err = identity.NewLoginService(env.Authenticated, env.Credentials, sessions, hasher, ids, tokens)
				Expect(err).NotTo(HaveOccurred())
			})

			Describe("Provision and Resolve", func() {
				It("resolves a provisioned token to the anonymous identity", func() {
					anon, session, err := provisioner.Provision(ctx, ids.NewID())
					Expect(err).NotTo(HaveOccurred())
					Expect(session.UserID).To(Equal(anon.ID))

					id, err := resolver.Resolve(ctx, session.Token)
					Expect(err).NotTo(HaveOccurred())
					Expect(id.Kind()).To(Equal(identity.KindAnonymous))
					Expect(id.UserID()).To(Equal(anon.ID))
				})

				It("keeps tokens of different callers apart", func() {
					a1, s1, err := provisioner.Provision(ctx, ids.NewID())
					Expect(err).NotTo(HaveOccurred())
					a2, s2, err := provisioner.Provision(ctx, ids.NewID())
					Expect(err).NotTo(HaveOccurred())

					id1, err := resolver.Resolve(ctx, s1.Token)
					Expect(err).NotTo(HaveOccurred())
					id2, err := resolver.Resolve(ctx, s2.Token)
					Expect(err).NotTo(HaveOccurred())
					Expect(id1.UserID()).To(Equal(a1.ID))
					Expect(id2.UserID()).To(Equal(a2.ID))
				})

				It("rejects an unknown token with WrongToken", func() {
					_, err := resolver.Resolve(ctx, "does-not-exist")
					Expect(err).To(MatchError(identity.ErrWrongToken))
					Expect(identity.IsUnauthenticated(err)).To(BeTrue())
				})

				It("reports a session whose user is gone as UserNotFound", func() {
					dangling, err := identity.NewSession(ids.NewID(), ids.NewID(), "dangling-token")
					Expect(err).NotTo(HaveOccurred())
					Expect(sessions.Save(ctx, dangling)).To(Succeed())

					_, err = resolver.Resolve(ctx, "dangling-token")
					Expect(err).To(MatchError(identity.ErrUserNotFound))
				})

				It("refuses to reuse a session identifier", func() {
					anon, session, err := provisioner.Provision(ctx, ids.NewID())
					Expect(err).NotTo(HaveOccurred())

					dup, err := identity.NewSession(session.ID, anon.ID, "another-token")
					Expect(err).NotTo(HaveOccurred())
					Expect(sessions.Save(ctx, dup)).To(MatchError(identity.ErrConflict))
				})
			})

			Describe("Register, Login and Logout", func() {
				register := func(in identity.RegisterInput) *identity.Authenticated {
					user, err := registrar.Register(ctx, in)
					Expect(err).NotTo(HaveOccurred())
					return user
				}

				It("promotes an anonymous identity and keeps its session", func() {
					anon, session, err := provisioner.Provision(ctx, ids.NewID())
					Expect(err).NotTo(HaveOccurred())

					user := register(identity.RegisterInput{
						UserID: anon.ID, FirstName: "Ellen", LastName: "Ripley",
						Email: "ripley@example.com", Password: "nostromo-1979",
					})
					Expect(user.ID).To(Equal(anon.ID))

					_, err = env.Anonymous.Find(ctx, anon.ID)
					Expect(err).To(MatchError(identity.ErrNotFound))

					id, err := resolver.Resolve(ctx, session.Token)
					Expect(err).NotTo(HaveOccurred())
					Expect(id.Kind()).To(Equal(identity.KindAuthenticated))
					Expect(id.(*identity.Authenticated).Email.String()).To(Equal("ripley@example.com"))
				})

				It("logs in, resolves the new token, and logs out", func() {
					user := register(identity.RegisterInput{
						UserID: ids.NewID(), FirstName: "Dana", LastName: "Scully",
						Email: "scully@example.com", Password: "trust-no-one",
					})

					loggedIn, session, err := login.Login(ctx, "Scully@Example.com", "trust-no-one")
					Expect(err).NotTo(HaveOccurred())
					Expect(loggedIn.ID).To(Equal(user.ID))

					id, err := resolver.Resolve(ctx, session.Token)
					Expect(err).NotTo(HaveOccurred())
					Expect(id.UserID()).To(Equal(user.ID))

					Expect(login.Logout(ctx, user.ID)).To(Succeed())
					_, err = resolver.Resolve(ctx, session.Token)
					Expect(err).To(MatchError(identity.ErrWrongToken))
				})

				It("rejects a wrong password", func() {
					register(identity.RegisterInput{
						UserID: ids.NewID(), FirstName: "Fox", LastName: "Mulder",
						Email: "mulder@example.com", Password: "i-want-to-believe",
					})

					_, _, err := login.Login(ctx, "mulder@example.com", "i-want-to-disbelieve")
					Expect(err).To(HaveOccurred())
					oopsErr, ok := oops.AsOops(err)
					Expect(ok).To(BeTrue())
					Expect(oopsErr.Code()).To(Equal("AUTH_INVALID_CREDENTIALS"))
				})

				It("rejects a second account with the same email", func() {
					input := identity.RegisterInput{
						UserID: ids.NewID(), FirstName: "Sarah", LastName: "Connor",
						Email: "sarah@example.com", Password: "judgment-day",
					}
					register(input)

					input.UserID = ids.NewID()
					_, err := registrar.Register(ctx, input)
					Expect(err).To(MatchError(identity.ErrConflict))
				})
			})

			Describe("Sweeper", func() {
				It("removes old anonymous identities without sessions only", func() {
					orphan, err := identity.NewAnonymous(ids.NewID())
					Expect(err).NotTo(HaveOccurred())
					orphan.CreatedAt = time.Now().Add(-2 * time.Hour).UTC()
					Expect(env.Anonymous.Save(ctx, orphan)).To(Succeed())

					active, session, err := provisioner.Provision(ctx, ids.NewID())
					Expect(err).NotTo(HaveOccurred())

					// Zero grace with a clock one minute ahead puts both identities past the cutoff.
					cfg := sweeper.DefaultConfig()
					cfg.Grace = 0
					sw, err := sweeper.New(env.Anonymous, sessions, cfg,
						sweeper.WithClock(func() time.Time { return time.Now().Add(time.Minute) }))
					Expect(err).NotTo(HaveOccurred())

					res, err := sw.SweepOnce(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(res.Swept).To(Equal(1))
					Expect(res.Kept).To(Equal(1))

					_, err = env.Anonymous.Find(ctx, orphan.ID)
					Expect(err).To(MatchError(identity.ErrNotFound))

					id, err := resolver.Resolve(ctx, session.Token)
					Expect(err).NotTo(HaveOccurred())
					Expect(id.UserID()).To(Equal(active.ID))
				})
			})
		})
	}
})
