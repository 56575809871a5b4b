// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package database provides the Postgres data access layer.
//
// Tables:
//   - mentors: one row per registrant, built by the ETL merge
//   - raw_mn_signups, raw_mn_funds_setup: Jotform submission mirrors
//   - raw_gb_campaign_members, raw_gb_full_contacts: Givebutter mirrors
//   - mn_gb_import: staging projection in Givebutter CSV import shape
//   - sync_log, mn_errors, sync_config: operational bookkeeping
//
// All mirror tables are upsert-on-conflict on their external key, so
// re-running a sync is idempotent. Rows are never deleted here; cleanup
// stays a manual operation.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/logging"
)

// Sentinel errors returned by lookup methods.
var (
	ErrNotFound = errors.New("record not found")
)

// DB wraps the Postgres connection pool and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the Postgres connection pool and bootstraps the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open("pgx", withStatementTimeout(cfg.URL, cfg.StatementTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(int(cfg.MaxConns))
	conn.SetMaxIdleConns(int(cfg.MinConns))
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := db.createIndexes(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logging.Info().Int32("max_conns", cfg.MaxConns).Msg("Database initialized")
	return db, nil
}

// withStatementTimeout appends statement_timeout to the DSN so every
// session carries it. pgx passes unrecognized URL parameters through to
// the server as runtime parameters.
func withStatementTimeout(dsn string, d time.Duration) string {
	if d <= 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sstatement_timeout=%d", dsn, sep, d.Milliseconds())
}

// Conn exposes the underlying *sql.DB for health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
