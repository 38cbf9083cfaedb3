package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/pgkeeper/internal/app"
	"github.com/semmidev/pgkeeper/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:           "backup",
		Short:         "Scheduled PostgreSQL backups with retention",
		Long:          "Dumps the databases listed in PG_DATABASE on the schedule given by BACKUP_INTERVAL and BACKUP_TIME.\nAll settings are read from the environment.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			application, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer application.Shutdown()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if once {
				return application.RunBackup(ctx)
			}
			return application.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single backup and exit")
	return cmd
}
