// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/database"
	"github.com/swab-program/mentorsync/internal/etl"
	"github.com/swab-program/mentorsync/internal/logging"
	syncpkg "github.com/swab-program/mentorsync/internal/sync"
)

// app bundles the pieces every subcommand needs.
type app struct {
	cfg     *config.Config
	db      *database.DB
	manager *syncpkg.Manager
}

// setup loads config, connects to Postgres and builds the sync manager.
// Callers must defer close.
func setup() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}

	jotform := syncpkg.NewJotformBreaker(syncpkg.NewJotformClient(&cfg.Jotform, cfg.Sync))
	givebutter := syncpkg.NewGivebutterBreaker(syncpkg.NewGivebutterClient(&cfg.Givebutter, cfg.Sync))
	manager := syncpkg.NewManager(cfg, db, jotform, givebutter)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}
	return &app{cfg: cfg, db: db, manager: manager}, cleanup, nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mentorsync",
		Short:         "Sync Jotform signups and Givebutter fundraising data into Postgres",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newSyncCmd(),
		newETLCmd(),
		newExportCmd(),
		newImportCmd(),
		newCheckCmd(),
		newPushStatusesCmd(),
	)
	return root
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [source...]",
		Short: "Fetch sources and run the ETL merge",
		Long: `Fetch the named sources and run the ETL merge.

With no arguments the default set runs: jotform_signups, jotform_setup,
gb_members, etl. Pass "all" to include gb_contacts. Valid sources:
jotform_signups, jotform_setup, gb_members, gb_contacts, etl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := syncpkg.ExpandSources(args); err != nil {
				return err
			}
			app, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()
			return app.manager.Run(ctx, args...)
		},
	}
}

func newETLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Run the ETL merge without fetching",
		Long:  "Rebuild the mentors table and the Givebutter import staging rows from the raw mirror tables already in Postgres.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			result, err := etl.NewMerger(app.db).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d, upserted %d, errors %d\n",
				result.Processed, result.Upserted, result.Errors)
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify database and API connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			if err := app.db.Ping(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database: ok")

			if err := app.manager.CheckConnections(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "jotform: ok")
			fmt.Fprintln(cmd.OutOrStdout(), "givebutter: ok")
			return nil
		},
	}
}

func newPushStatusesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push-statuses",
		Short: "Write mentor status tags back to Givebutter contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			created, updated, failed, err := app.manager.PushStatuses(ctx)
			if err != nil {
				return err
			}
			return reportPushResult(cmd.OutOrStdout(), created, updated, failed)
		},
	}
}

// reportPushResult prints the push summary. Partial failure surfaces as
// an error so the process exits non-zero after deferred cleanup runs.
func reportPushResult(out io.Writer, created, updated, failed int) error {
	fmt.Fprintf(out, "created %d, updated %d, failed %d\n", created, updated, failed)
	if failed > 0 {
		return fmt.Errorf("%d contacts failed to push", failed)
	}
	return nil
}
