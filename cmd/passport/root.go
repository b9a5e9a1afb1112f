// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/passport/internal/config"
	"github.com/holomush/passport/internal/logging"
)

// rootOptions carries state shared by all subcommands.
type rootOptions struct {
	configFile string
	deps       *Deps

	// Set by the root PersistentPreRunE.
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd creates the root command for the passport CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	opts := &rootOptions{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "passport",
		Short: "passport - token to identity resolution",
		Long: `passport provisions anonymous identities with session tokens,
resolves tokens to anonymous or authenticated identities, and manages
password accounts on top of PostgreSQL or Redis storage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/passport/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newProvisionCmd(opts))
	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newRegisterCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newSweepCmd(opts))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// load reads configuration and installs the default logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.SetDefault(logging.Options{
		Service: "passport",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}
