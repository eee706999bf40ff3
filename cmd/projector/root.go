// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/projector/internal/config"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// app carries the state resolved by the root command for its subcommands.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd creates the root projector command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "projector",
		Short:         "Live projections over a fact store",
		Long:          "Projector keeps query results over an immutable fact graph up to date as facts arrive.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	// Global flags; these map to viper keys in init.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("storage-backend", "", "fact store backend (memory, sqlite)")
	root.PersistentFlags().String("storage-path", "", "fact store location for durable backends")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newFactsCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)

	return root
}

// init sets up Viper with defaults, env bindings, flag bindings and an
// optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return projerr.Errorf(projerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset so viper never tries the bare name,
		// which would collide with a ./projector binary.
		v.SetConfigName("projector")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/projector")
		v.AddConfigPath("/etc/projector")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return projerr.Errorf(projerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := bootstrapPath(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return projerr.Errorf(projerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"storage.backend": "storage-backend",
		"storage.path":    "storage-path",
		"verbose":         "verbose",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return projerr.Errorf(projerr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}

	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	return nil
}

// bootstrapPath writes the default config to ~/.config/projector when no
// config exists anywhere and returns its path.
func bootstrapPath() string {
	path, err := config.DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return config.BootstrapConfig(path)
}
