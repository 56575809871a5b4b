// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swab-program/mentorsync/internal/gbcsv"
	"github.com/swab-program/mentorsync/internal/models"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the Givebutter contact import CSV",
		Long: `Write the mn_gb_import staging rows as a CSV ready for Givebutter's
contact import. Pass -o to write to a file instead of stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			rows, err := app.db.ListGBImportRows(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := gbcsv.Write(out, rows); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(rows), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a Givebutter contact export CSV",
		Long: `Read a contact CSV exported from Givebutter and upsert the rows into
the raw contacts mirror. Run the etl command afterwards to fold the
contacts into mentor records.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			contacts, skipped, err := gbcsv.Read(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			app, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			runID, err := app.db.StartSyncRun(ctx, models.SourceCSVImport)
			if err != nil {
				return err
			}

			upserted := 0
			var firstErr error
			for i := range contacts {
				if err := app.db.UpsertRawContact(ctx, &contacts[i]); err != nil {
					if firstErr == nil {
						firstErr = err
					}
					skipped++
					continue
				}
				upserted++
			}

			status := models.RunStatusCompleted
			errMsg := ""
			if firstErr != nil {
				status = models.RunStatusFailed
				errMsg = firstErr.Error()
			}
			if err := app.db.FinishSyncRun(ctx, runID, status, len(contacts), upserted, skipped, errMsg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", upserted, skipped)
			return firstErr
		},
	}
}
