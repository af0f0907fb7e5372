package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pawsit-server/internal/app"
	"github.com/vovakirdan/pawsit-server/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server (default)",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().Duration("read-header-timeout", 0, "HTTP read header timeout")
	cmd.Flags().Duration("shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var overrides config.Config
	overrides.Addr, _ = cmd.Flags().GetString("addr")
	overrides.ReadHeaderTimeout, _ = cmd.Flags().GetDuration("read-header-timeout")
	overrides.ShutdownTimeout, _ = cmd.Flags().GetDuration("shutdown-timeout")
	cfg.UpdateFrom(overrides)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Str("version", cmd.Root().Version).Msg("starting pawsit server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
