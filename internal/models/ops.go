// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package models

import "time"

// Sync sources recorded in sync_log.source. A full run writes one row per
// source plus one "etl" row.
const (
	SourceJotformSignups = "jotform_signups"
	SourceJotformSetup   = "jotform_setup"
	SourceGBMembers      = "gb_members"
	SourceGBContacts     = "gb_contacts"
	SourceETL            = "etl"
	SourceCSVImport      = "csv_import"
)

// Sync run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SyncRun is one row of sync_log: a single sync or ETL execution.
type SyncRun struct {
	ID           string     `json:"id"` // UUID
	Source       string     `json:"source"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Fetched      int        `json:"fetched"`
	Upserted     int        `json:"upserted"`
	Skipped      int        `json:"skipped"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// MentorError is one row of mn_errors: a per-record failure logged during
// the ETL merge. The run continues past these.
type MentorError struct {
	ID         int64     `json:"id"`
	MnID       string    `json:"mn_id"`
	Stage      string    `json:"stage"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StoredConfig is the single sync_config row: dashboard-editable API keys
// and form/campaign ids. Values here override the environment config when
// non-empty.
type StoredConfig struct {
	JotformAPIKey    string    `json:"jotform_api_key"`
	GivebutterAPIKey string    `json:"givebutter_api_key"`
	SignupFormID     string    `json:"signup_form_id"`
	SetupFormID      string    `json:"setup_form_id"`
	CampaignID       string    `json:"campaign_id"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// GBImportRow is one row of the mn_gb_import staging table, shaped like
// Givebutter's contact CSV import. Regenerated from mentors on each ETL run.
type GBImportRow struct {
	MnID             string `json:"mn_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Tags             string `json:"tags"`
	StatusCategory   string `json:"status_category"`
	TextInstructions string `json:"text_instructions"`
}
