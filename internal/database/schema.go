// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables. All columns are defined in the
// initial CREATE TABLE statements; schema changes to a live deployment go
// through manual migration.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS mentors (
			mn_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			status_category TEXT NOT NULL DEFAULT 'needs_campaign_join',
			setup_done BOOLEAN NOT NULL DEFAULT FALSE,
			campaign_member BOOLEAN NOT NULL DEFAULT FALSE,
			fundraised_done BOOLEAN NOT NULL DEFAULT FALSE,
			gb_contact_id TEXT,
			gb_member_id TEXT,
			goal DOUBLE PRECISION NOT NULL DEFAULT 0,
			raised DOUBLE PRECISION NOT NULL DEFAULT 0,
			donors INTEGER NOT NULL DEFAULT 0,
			signed_up_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_synced_at TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS raw_mn_signups (
			submission_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			answers JSONB,
			submitted_at TIMESTAMPTZ NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS raw_mn_funds_setup (
			submission_id TEXT PRIMARY KEY,
			mn_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			page_url TEXT NOT NULL DEFAULT '',
			answers JSONB,
			submitted_at TIMESTAMPTZ NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS raw_gb_campaign_members (
			member_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			goal DOUBLE PRECISION NOT NULL DEFAULT 0,
			raised DOUBLE PRECISION NOT NULL DEFAULT 0,
			donors INTEGER NOT NULL DEFAULT 0,
			url TEXT NOT NULL DEFAULT '',
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS raw_gb_full_contacts (
			contact_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			payload JSONB,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS mn_gb_import (
			mn_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			status_category TEXT NOT NULL DEFAULT '',
			text_instructions TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS sync_log (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at TIMESTAMPTZ,
			fetched INTEGER NOT NULL DEFAULT 0,
			upserted INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS mn_errors (
			id BIGSERIAL PRIMARY KEY,
			mn_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			message TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// Single-row table; id is fixed at 1.
		`CREATE TABLE IF NOT EXISTS sync_config (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			jotform_api_key TEXT NOT NULL DEFAULT '',
			givebutter_api_key TEXT NOT NULL DEFAULT '',
			signup_form_id TEXT NOT NULL DEFAULT '',
			setup_form_id TEXT NOT NULL DEFAULT '',
			campaign_id TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
}

// createIndexes creates indexes for the common query patterns: status
// filtering on the dashboard, email/phone matching during the ETL merge,
// and sync log browsing.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_mentors_status ON mentors(status_category)`,
		`CREATE INDEX IF NOT EXISTS idx_mentors_email ON mentors(email)`,
		`CREATE INDEX IF NOT EXISTS idx_signups_email ON raw_mn_signups(email)`,
		`CREATE INDEX IF NOT EXISTS idx_setup_mn_id ON raw_mn_funds_setup(mn_id)`,
		`CREATE INDEX IF NOT EXISTS idx_setup_email ON raw_mn_funds_setup(email)`,
		`CREATE INDEX IF NOT EXISTS idx_members_email ON raw_gb_campaign_members(email)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_email ON raw_gb_full_contacts(email)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_started ON sync_log(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_source ON sync_log(source, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_mn_errors_mn_id ON mn_errors(mn_id)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
