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
	"strings"
	"time"

	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models"
)

const mentorColumns = `mn_id, first_name, last_name, email, phone, status_category,
	setup_done, campaign_member, fundraised_done, gb_contact_id, gb_member_id,
	goal, raised, donors, signed_up_at, created_at, updated_at, last_synced_at`

func scanMentor(row interface{ Scan(...any) error }) (*models.Mentor, error) {
	var m models.Mentor
	err := row.Scan(&m.MnID, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.StatusCategory,
		&m.SetupDone, &m.CampaignMember, &m.FundraisedDone, &m.GBContactID, &m.GBMemberID,
		&m.Goal, &m.Raised, &m.Donors, &m.SignedUpAt, &m.CreatedAt, &m.UpdatedAt, &m.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMentor writes one merged mentor row. The ETL calls this once per
// mentor on every run, so the conflict path is the common one.
func (db *DB) UpsertMentor(ctx context.Context, m *models.Mentor) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO mentors
			(mn_id, first_name, last_name, email, phone, status_category,
			 setup_done, campaign_member, fundraised_done, gb_contact_id, gb_member_id,
			 goal, raised, donors, signed_up_at, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (mn_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			status_category = EXCLUDED.status_category,
			setup_done = EXCLUDED.setup_done,
			campaign_member = EXCLUDED.campaign_member,
			fundraised_done = EXCLUDED.fundraised_done,
			gb_contact_id = COALESCE(EXCLUDED.gb_contact_id, mentors.gb_contact_id),
			gb_member_id = COALESCE(EXCLUDED.gb_member_id, mentors.gb_member_id),
			goal = EXCLUDED.goal,
			raised = EXCLUDED.raised,
			donors = EXCLUDED.donors,
			updated_at = now(),
			last_synced_at = now()`,
		m.MnID, m.FirstName, m.LastName, m.Email, m.Phone, m.StatusCategory,
		m.SetupDone, m.CampaignMember, m.FundraisedDone, m.GBContactID, m.GBMemberID,
		m.Goal, m.Raised, m.Donors, m.SignedUpAt)
	metrics.RecordDBQuery("upsert", "mentors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert mentor %s: %w", m.MnID, err)
	}
	return nil
}

// GetMentor looks up one mentor by mn_id. Returns ErrNotFound when absent.
func (db *DB) GetMentor(ctx context.Context, mnID string) (*models.Mentor, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+mentorColumns+` FROM mentors WHERE mn_id = $1`, mnID)
	m, err := scanMentor(row)
	metrics.RecordDBQuery("select", "mentors", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mentor %s: %w", mnID, err)
	}
	return m, nil
}

// buildMentorFilter renders the WHERE clause and args for a MentorFilter.
// Placeholders start at $1.
func buildMentorFilter(f models.MentorFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status_category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListMentors returns mentors matching the filter, ordered by last name.
func (db *DB) ListMentors(ctx context.Context, f models.MentorFilter) ([]models.Mentor, error) {
	where, args := buildMentorFilter(f)
	query := `SELECT ` + mentorColumns + ` FROM mentors` + where +
		` ORDER BY last_name, first_name, mn_id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "mentors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentors: %w", err)
	}
	defer rows.Close()

	var out []models.Mentor
	for rows.Next() {
		m, err := scanMentor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mentor: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpdateMentor applies the non-nil fields of upd to one mentor and returns
// the updated row. Returns ErrNotFound when the mentor does not exist.
func (db *DB) UpdateMentor(ctx context.Context, mnID string, upd models.MentorUpdate) (*models.Mentor, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.GBContactID != nil {
		add("gb_contact_id", *upd.GBContactID)
	}
	if upd.GBMemberID != nil {
		add("gb_member_id", *upd.GBMemberID)
	}
	if len(sets) == 0 {
		return db.GetMentor(ctx, mnID)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, mnID)

	query := fmt.Sprintf(`UPDATE mentors SET %s WHERE mn_id = $%d RETURNING `+mentorColumns,
		strings.Join(sets, ", "), len(args))

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, args...)
	m, err := scanMentor(row)
	metrics.RecordDBQuery("update", "mentors", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update mentor %s: %w", mnID, err)
	}
	return m, nil
}

// MentorStats aggregates the mentors table for the dashboard overview.
func (db *DB) MentorStats(ctx context.Context) (*models.MentorStats, error) {
	stats := &models.MentorStats{ByStatus: make(map[string]int64)}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT status_category, COUNT(*), COALESCE(SUM(raised), 0), COALESCE(SUM(goal), 0)
		FROM mentors GROUP BY status_category`)
	metrics.RecordDBQuery("select", "mentors", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentor stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		var raised, goal float64
		if err := rows.Scan(&status, &count, &raised, &goal); err != nil {
			return nil, fmt.Errorf("failed to scan mentor stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
		stats.TotalRaised += raised
		stats.TotalGoal += goal
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, status := range models.StatusCategories {
		metrics.MentorsByStatus.WithLabelValues(status).Set(float64(stats.ByStatus[status]))
	}
	return stats, nil
}
