package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/pgkeeper/internal/adapter/compressor"
	"github.com/semmidev/pgkeeper/internal/adapter/database"
	"github.com/semmidev/pgkeeper/internal/adapter/storage"
	"github.com/semmidev/pgkeeper/internal/config"
	"github.com/semmidev/pgkeeper/internal/domain"
	"github.com/semmidev/pgkeeper/internal/infrastructure/logger"
	"github.com/semmidev/pgkeeper/internal/usecase"
)

const listLimit = 10

type restorer interface {
	Execute(ctx context.Context, conn domain.Connection, req domain.RestoreRequest) (*domain.RestoreResult, error)
}

type restoreFlags struct {
	Database   string
	ListDir    string
	Clean      bool
	DataOnly   bool
	SchemaOnly bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &restoreFlags{}

	cmd := &cobra.Command{
		Use:           "restore [backup file]",
		Short:         "Restore a PostgreSQL backup produced by the backup service",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ListDir != "" {
				return listBackups(cmd.Context(), cmd.OutOrStdout(), flags.ListDir)
			}
			if len(args) == 0 {
				_ = cmd.Help()
				return errors.New("backup file argument is required")
			}

			req := domain.RestoreRequest{
				ArtifactPath: args[0],
				Database:     flags.Database,
				Clean:        flags.Clean,
				DataOnly:     flags.DataOnly,
				SchemaOnly:   flags.SchemaOnly,
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return runRestore(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVarP(&flags.Database, "database", "d", "", "Target database name (default: first entry of PG_DATABASE)")
	cmd.Flags().StringVarP(&flags.ListDir, "list", "l", "", "List backup files in the given directory")
	cmd.Flags().BoolVarP(&flags.Clean, "clean", "c", false, "Drop existing objects before restoring")
	cmd.Flags().BoolVar(&flags.DataOnly, "data-only", false, "Restore data only")
	cmd.Flags().BoolVar(&flags.SchemaOnly, "schema-only", false, "Restore schema only")
	return cmd
}

func runRestore(ctx context.Context, req domain.RestoreRequest) error {
	cfg, err := config.LoadRestore()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if req.Database == "" {
		req.Database = cfg.DefaultDatabase()
	}

	log, err := logger.New(cfg.App.LogLevel, "")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db := database.NewPostgreSQL(database.ExecRunner{}, database.DefaultTimeouts())
	uc := usecase.NewRestore(db, compressor.NewGzip(), log)
	return executeRestore(ctx, uc, cfg.Connection(), req)
}

// executeRestore detaches the restore from ctx so a started tool invocation
// runs until it finishes or times out.
func executeRestore(ctx context.Context, r restorer, conn domain.Connection, req domain.RestoreRequest) error {
	_, err := r.Execute(context.WithoutCancel(ctx), conn, req)
	return err
}

// listBackups prints the newest artifacts below dir.
func listBackups(ctx context.Context, w io.Writer, dir string) error {
	entries, err := storage.NewLocal(dir).List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Found %d backup file(s) in %s\n", len(entries), dir)
	for i, e := range entries {
		if i == listLimit {
			break
		}
		fmt.Fprintf(w, "  %d. %s (%d bytes, %s)\n", i+1, e.Name, e.Size, e.ModTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}
