// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models"
)

// StartSyncRun inserts a running sync_log row and returns its id.
func (db *DB) StartSyncRun(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sync_log (id, source, status) VALUES ($1, $2, $3)`,
		id, source, models.RunStatusRunning)
	metrics.RecordDBQuery("insert", "sync_log", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("failed to start sync run for %s: %w", source, err)
	}
	return id, nil
}

// FinishSyncRun closes a sync_log row with its final status and counters.
func (db *DB) FinishSyncRun(ctx context.Context, id, status string, fetched, upserted, skipped int, errMsg string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sync_log SET
			status = $2, finished_at = now(),
			fetched = $3, upserted = $4, skipped = $5, error_message = $6
		WHERE id = $1`,
		id, status, fetched, upserted, skipped, errMsg)
	metrics.RecordDBQuery("update", "sync_log", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to finish sync run %s: %w", id, err)
	}
	return nil
}

// ListSyncRuns returns recent sync_log rows, newest first. Source narrows
// to one source when non-empty.
func (db *DB) ListSyncRuns(ctx context.Context, source string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, source, status, started_at, finished_at, fetched, upserted, skipped, error_message
		FROM sync_log`
	args := []any{}
	if source != "" {
		query += ` WHERE source = $1`
		args = append(args, source)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, len(args))

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "sync_log", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer rows.Close()

	var out []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.Fetched, &r.Upserted, &r.Skipped, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastSyncRun returns the most recent sync_log row for a source, or
// ErrNotFound when the source has never run.
func (db *DB) LastSyncRun(ctx context.Context, source string) (*models.SyncRun, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, source, status, started_at, finished_at, fetched, upserted, skipped, error_message
		FROM sync_log WHERE source = $1 ORDER BY started_at DESC LIMIT 1`, source)
	var r models.SyncRun
	err := row.Scan(&r.ID, &r.Source, &r.Status, &r.StartedAt, &r.FinishedAt,
		&r.Fetched, &r.Upserted, &r.Skipped, &r.ErrorMessage)
	metrics.RecordDBQuery("select", "sync_log", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last sync run for %s: %w", source, err)
	}
	return &r, nil
}

// RecordMentorError logs one per-record ETL failure. Merge runs continue
// past these; the dashboard surfaces them for manual cleanup.
func (db *DB) RecordMentorError(ctx context.Context, mnID, stage, message string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO mn_errors (mn_id, stage, message) VALUES ($1, $2, $3)`,
		mnID, stage, message)
	metrics.RecordDBQuery("insert", "mn_errors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record mentor error: %w", err)
	}
	return nil
}

// ListMentorErrors returns recent per-record failures, newest first.
func (db *DB) ListMentorErrors(ctx context.Context, limit int) ([]models.MentorError, error) {
	if limit <= 0 {
		limit = 100
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, mn_id, stage, message, occurred_at
		FROM mn_errors ORDER BY occurred_at DESC LIMIT $1`, limit)
	metrics.RecordDBQuery("select", "mn_errors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentor errors: %w", err)
	}
	defer rows.Close()

	var out []models.MentorError
	for rows.Next() {
		var e models.MentorError
		if err := rows.Scan(&e.ID, &e.MnID, &e.Stage, &e.Message, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan mentor error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetStoredConfig reads the single sync_config row. Returns an empty
// StoredConfig (not ErrNotFound) when the row has never been written.
func (db *DB) GetStoredConfig(ctx context.Context) (*models.StoredConfig, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `
		SELECT jotform_api_key, givebutter_api_key, signup_form_id, setup_form_id, campaign_id, updated_at
		FROM sync_config WHERE id = 1`)
	var c models.StoredConfig
	err := row.Scan(&c.JotformAPIKey, &c.GivebutterAPIKey, &c.SignupFormID, &c.SetupFormID,
		&c.CampaignID, &c.UpdatedAt)
	metrics.RecordDBQuery("select", "sync_config", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.StoredConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stored config: %w", err)
	}
	return &c, nil
}

// PutStoredConfig replaces the single sync_config row.
func (db *DB) PutStoredConfig(ctx context.Context, c *models.StoredConfig) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_config (id, jotform_api_key, givebutter_api_key, signup_form_id, setup_form_id, campaign_id, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			jotform_api_key = EXCLUDED.jotform_api_key,
			givebutter_api_key = EXCLUDED.givebutter_api_key,
			signup_form_id = EXCLUDED.signup_form_id,
			setup_form_id = EXCLUDED.setup_form_id,
			campaign_id = EXCLUDED.campaign_id,
			updated_at = now()`,
		c.JotformAPIKey, c.GivebutterAPIKey, c.SignupFormID, c.SetupFormID, c.CampaignID)
	metrics.RecordDBQuery("upsert", "sync_config", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to put stored config: %w", err)
	}
	return nil
}

// ReplaceGBImportRows rewrites the mn_gb_import staging table in one
// transaction. The ETL regenerates this projection on every run.
func (db *DB) ReplaceGBImportRows(ctx context.Context, rows []models.GBImportRow) error {
	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mn_gb_import`); err != nil {
		return fmt.Errorf("failed to clear import table: %w", err)
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mn_gb_import
				(mn_id, first_name, last_name, email, phone, tags, status_category, text_instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.MnID, r.FirstName, r.LastName, r.Email, r.Phone, r.Tags, r.StatusCategory, r.TextInstructions); err != nil {
			return fmt.Errorf("failed to insert import row %s: %w", r.MnID, err)
		}
	}
	err = tx.Commit()
	metrics.RecordDBQuery("replace", "mn_gb_import", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to commit import replace: %w", err)
	}
	return nil
}

// ListGBImportRows returns the current import projection ordered by mn_id.
func (db *DB) ListGBImportRows(ctx context.Context) ([]models.GBImportRow, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT mn_id, first_name, last_name, email, phone, tags, status_category, text_instructions
		FROM mn_gb_import ORDER BY mn_id`)
	metrics.RecordDBQuery("select", "mn_gb_import", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query import rows: %w", err)
	}
	defer rows.Close()

	var out []models.GBImportRow
	for rows.Next() {
		var r models.GBImportRow
		if err := rows.Scan(&r.MnID, &r.FirstName, &r.LastName, &r.Email, &r.Phone,
			&r.Tags, &r.StatusCategory, &r.TextInstructions); err != nil {
			return nil, fmt.Errorf("failed to scan import row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
