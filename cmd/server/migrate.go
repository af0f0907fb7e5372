package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/pawsit-server/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info().Str("driver", cfg.DatabaseDriver).Msg("schema up to date")
			return nil
		},
	}
}
