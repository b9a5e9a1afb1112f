// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/passport/internal/identity"
)

// withStores opens the configured backends for the duration of fn.
func withStores(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *Stores) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := opts.deps.StoresFactory(ctx, opts.cfg)
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").Wrap(err)
	}
	defer s.Close()
	return fn(ctx, s)
}

func newProvisionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create an anonymous identity and its first session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStores(cmd, opts, func(ctx context.Context, s *Stores) error {
				ids := identity.NewULIDGenerator()
				svc, err := identity.NewProvisioningService(ids, identity.NewRandomTokenGenerator(),
					s.Anonymous, s.Sessions, identity.WithLogger(opts.logger))
				if err != nil {
					return err
				}
				anon, session, err := svc.Provision(ctx, ids.NewID())
				if err != nil {
					return err
				}
				cmd.Printf("user_id:    %s\n", anon.ID)
				cmd.Printf("session_id: %s\n", session.ID)
				cmd.Printf("token:      %s\n", session.Token)
				return nil
			})
		},
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <token>",
		Short: "Show the identity that owns a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, opts, func(ctx context.Context, s *Stores) error {
				svc, err := identity.NewResolutionService(s.Sessions, s.Authenticated, s.Anonymous,
					identity.WithLogger(opts.logger))
				if err != nil {
					return err
				}
				id, err := svc.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Print(describe(id))
				return nil
			})
		},
	}
}

// describe renders an identity for terminal output.
func describe(id identity.Identity) string {
	return identity.Match(id,
		func(a *identity.Anonymous) string {
			return "kind:    anonymous\nuser_id: " + a.ID.String() + "\n"
		},
		func(a *identity.Authenticated) string {
			return "kind:    authenticated\nuser_id: " + a.ID.String() +
				"\nname:    " + a.Name.String() +
				"\nemail:   " + a.Email.String() + "\n"
		},
	)
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var in identity.RegisterInput
	var userID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a password account",
		Long: `Create an authenticated account. The password is read from the first
line of standard input. Pass --user-id to promote an existing anonymous
identity; its sessions stay valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID != "" {
				id, err := parseUserID(userID)
				if err != nil {
					return err
				}
				in.UserID = id
			} else {
				in.UserID = identity.NewULIDGenerator().NewID()
			}
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			in.Password = password

			return withStores(cmd, opts, func(ctx context.Context, s *Stores) error {
				svc, err := identity.NewRegistrationService(s.Authenticated, s.Anonymous, s.Credentials,
					identity.NewArgon2idHasher(), identity.WithLogger(opts.logger))
				if err != nil {
					return err
				}
				user, err := svc.Register(ctx, in)
				if err != nil {
					return err
				}
				cmd.Printf("Registered %s <%s> as %s\n", user.Name, user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "identifier to promote (default: a new identifier)")
	cmd.Flags().StringVar(&in.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("first") //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("last")  //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag is defined above
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open a session with email and password",
		Long:  `Verify credentials and print a new session token. The password is read from standard input.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withStores(cmd, opts, func(ctx context.Context, s *Stores) error {
				svc, err := identity.NewLoginService(s.Authenticated, s.Credentials, s.Sessions,
					identity.NewArgon2idHasher(), identity.NewULIDGenerator(), identity.NewRandomTokenGenerator(),
					identity.WithLogger(opts.logger))
				if err != nil {
					return err
				}
				user, session, err := svc.Login(ctx, email, password)
				if err != nil {
					return err
				}
				cmd.Printf("user_id:    %s\n", user.ID)
				cmd.Printf("session_id: %s\n", session.ID)
				cmd.Printf("token:      %s\n", session.Token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag is defined above
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <user-id>",
		Short: "Delete every session of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd, opts, func(ctx context.Context, s *Stores) error {
				svc, err := identity.NewLoginService(s.Authenticated, s.Credentials, s.Sessions,
					identity.NewArgon2idHasher(), identity.NewULIDGenerator(), identity.NewRandomTokenGenerator(),
					identity.WithLogger(opts.logger))
				if err != nil {
					return err
				}
				if err := svc.Logout(ctx, userID); err != nil {
					return err
				}
				cmd.Printf("Logged out %s\n", userID)
				return nil
			})
		},
	}
}

func parseUserID(s string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_USER_ID").With("user_id", s).Wrap(err)
	}
	return id, nil
}

// readPassword reads the first line of the command's standard input.
func readPassword(cmd *cobra.Command) (string, error) {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return "", oops.Code("PASSWORD_READ_FAILED").Errorf("no password on standard input")
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}
