package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/database"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/telemetry"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the fixture table schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.NewConfigurationError("MISSING_DATABASE_URL", "database.url is required")
			}
			logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.Telemetry.ServiceName)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			switch action {
			case "up":
				err = database.Migrate(cmd.Context(), cfg.Database.URL, logger)
			case "down":
				err = database.MigrateDown(cfg.Database.URL)
			default:
				return errors.NewConfigurationError("UNKNOWN_ACTION", fmt.Sprintf("unknown migrate action %q", action))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s complete\n", action)
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "up", "Migration action: up or down")
	return cmd
}
