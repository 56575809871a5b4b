// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models"
)

// UpsertRawSignup mirrors one Jotform signup submission. Upserting the
// same submission_id twice produces one row.
func (db *DB) UpsertRawSignup(ctx context.Context, s *models.RawSignup) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO raw_mn_signups
			(submission_id, first_name, last_name, email, phone, answers, submitted_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (submission_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			answers = EXCLUDED.answers,
			submitted_at = EXCLUDED.submitted_at,
			fetched_at = now()`,
		s.SubmissionID, s.FirstName, s.LastName, s.Email, s.Phone, s.Answers, s.SubmittedAt)
	metrics.RecordDBQuery("upsert", "raw_mn_signups", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert signup %s: %w", s.SubmissionID, err)
	}
	return nil
}

// UpsertRawFundsSetup mirrors one Givebutter-setup form submission.
func (db *DB) UpsertRawFundsSetup(ctx context.Context, s *models.RawFundsSetup) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO raw_mn_funds_setup
			(submission_id, mn_id, email, phone, page_url, answers, submitted_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (submission_id) DO UPDATE SET
			mn_id = EXCLUDED.mn_id,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			page_url = EXCLUDED.page_url,
			answers = EXCLUDED.answers,
			submitted_at = EXCLUDED.submitted_at,
			fetched_at = now()`,
		s.SubmissionID, s.MnID, s.Email, s.Phone, s.PageURL, s.Answers, s.SubmittedAt)
	metrics.RecordDBQuery("upsert", "raw_mn_funds_setup", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert funds setup %s: %w", s.SubmissionID, err)
	}
	return nil
}

// UpsertRawCampaignMember mirrors one Givebutter campaign member.
func (db *DB) UpsertRawCampaignMember(ctx context.Context, m *models.RawCampaignMember) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO raw_gb_campaign_members
			(member_id, first_name, last_name, email, phone, goal, raised, donors, url, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (member_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			goal = EXCLUDED.goal,
			raised = EXCLUDED.raised,
			donors = EXCLUDED.donors,
			url = EXCLUDED.url,
			fetched_at = now()`,
		m.MemberID, m.FirstName, m.LastName, m.Email, m.Phone, m.Goal, m.Raised, m.Donors, m.URL)
	metrics.RecordDBQuery("upsert", "raw_gb_campaign_members", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", m.MemberID, err)
	}
	return nil
}

// UpsertRawContact mirrors one Givebutter contact. Both the API sync and
// the CSV import path land here.
func (db *DB) UpsertRawContact(ctx context.Context, c *models.RawContact) error {
	start := time.Now()
	var payload any
	if len(c.Payload) > 0 {
		payload = c.Payload
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO raw_gb_full_contacts
			(contact_id, first_name, last_name, email, phone, tags, payload, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (contact_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			tags = EXCLUDED.tags,
			payload = COALESCE(EXCLUDED.payload, raw_gb_full_contacts.payload),
			fetched_at = now()`,
		c.ContactID, c.FirstName, c.LastName, c.Email, c.Phone, strings.Join(c.Tags, ","), payload)
	metrics.RecordDBQuery("upsert", "raw_gb_full_contacts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert contact %s: %w", c.ContactID, err)
	}
	return nil
}

// ListRawSignups returns all signup mirrors ordered by submission time.
func (db *DB) ListRawSignups(ctx context.Context) ([]models.RawSignup, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT submission_id, first_name, last_name, email, phone, COALESCE(answers, 'null'), submitted_at, fetched_at
		FROM raw_mn_signups ORDER BY submitted_at`)
	metrics.RecordDBQuery("select", "raw_mn_signups", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query signups: %w", err)
	}
	defer rows.Close()

	var out []models.RawSignup
	for rows.Next() {
		var s models.RawSignup
		if err := rows.Scan(&s.SubmissionID, &s.FirstName, &s.LastName, &s.Email, &s.Phone,
			&s.Answers, &s.SubmittedAt, &s.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRawFundsSetups returns all setup-form mirrors.
func (db *DB) ListRawFundsSetups(ctx context.Context) ([]models.RawFundsSetup, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT submission_id, mn_id, email, phone, page_url, COALESCE(answers, 'null'), submitted_at, fetched_at
		FROM raw_mn_funds_setup ORDER BY submitted_at`)
	metrics.RecordDBQuery("select", "raw_mn_funds_setup", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds setups: %w", err)
	}
	defer rows.Close()

	var out []models.RawFundsSetup
	for rows.Next() {
		var s models.RawFundsSetup
		if err := rows.Scan(&s.SubmissionID, &s.MnID, &s.Email, &s.Phone, &s.PageURL,
			&s.Answers, &s.SubmittedAt, &s.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan funds setup: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRawCampaignMembers returns all campaign member mirrors.
func (db *DB) ListRawCampaignMembers(ctx context.Context) ([]models.RawCampaignMember, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT member_id, first_name, last_name, email, phone, goal, raised, donors, url, fetched_at
		FROM raw_gb_campaign_members ORDER BY member_id`)
	metrics.RecordDBQuery("select", "raw_gb_campaign_members", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var out []models.RawCampaignMember
	for rows.Next() {
		var m models.RawCampaignMember
		if err := rows.Scan(&m.MemberID, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
			&m.Goal, &m.Raised, &m.Donors, &m.URL, &m.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListRawContacts returns all contact mirrors.
func (db *DB) ListRawContacts(ctx context.Context) ([]models.RawContact, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT contact_id, first_name, last_name, email, phone, tags, fetched_at
		FROM raw_gb_full_contacts ORDER BY contact_id`)
	metrics.RecordDBQuery("select", "raw_gb_full_contacts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var out []models.RawContact
	for rows.Next() {
		var c models.RawContact
		var tags string
		if err := rows.Scan(&c.ContactID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
			&tags, &c.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if tags != "" {
			c.Tags = strings.Split(tags, ",")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
