package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/pawsit-server/internal/config"
	"github.com/vovakirdan/pawsit-server/internal/log"
)

// newRootCmd creates the root command. Bare invocation serves.
func newRootCmd(v string) *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "pawsit-server",
		Short:         "Pawsit real-time messaging and presence server",
		Version:       v,
		RunE:          serve.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("log-level", "", "override log level (trace, debug, info, warn, error)")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newMigrateCmd())

	return root
}

// loadConfig resolves configuration and builds the logger for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")

	path, _ := cmd.Flags().GetString("config")
	cfg, resolved, err := config.Load(bootstrap, path)
	if err != nil {
		return nil, nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config", resolved).Msg("configuration loaded")

	return &cfg, logger, nil
}
