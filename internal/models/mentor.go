// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package models defines the domain types shared between the database,
// sync, ETL, and API layers.
package models

import "time"

// Status categories derived from the three task flags during the ETL
// merge. The value is a pure function of the flags; see etl.ComputeStatus.
const (
	StatusComplete         = "complete"
	StatusReadyToFundraise = "ready_to_fundraise"
	StatusNeedsSetup       = "needs_setup"
	StatusNeedsCampaign    = "needs_campaign_join"
)

// StatusCategories lists all valid mentor status values, in pipeline order.
var StatusCategories = []string{
	StatusNeedsCampaign,
	StatusNeedsSetup,
	StatusReadyToFundraise,
	StatusComplete,
}

// Mentor is one registrant row, keyed by MnID (the Jotform signup
// submission id). Built by the ETL merge from the raw mirror tables and
// never deleted programmatically.
type Mentor struct {
	MnID           string     `json:"mn_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"` // E.164
	StatusCategory string     `json:"status_category"`
	SetupDone      bool       `json:"setup_done"`
	CampaignMember bool       `json:"campaign_member"`
	FundraisedDone bool       `json:"fundraised_done"`
	GBContactID    *string    `json:"gb_contact_id,omitempty"`
	GBMemberID     *string    `json:"gb_member_id,omitempty"`
	Goal           float64    `json:"goal"`
	Raised         float64    `json:"raised"`
	Donors         int        `json:"donors"`
	SignedUpAt     time.Time  `json:"signed_up_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
}

// MentorUpdate carries the fields a dashboard PATCH may change.
// Nil pointers leave the column untouched.
type MentorUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	GBContactID *string `json:"gb_contact_id,omitempty"`
	GBMemberID  *string `json:"gb_member_id,omitempty"`
}

// MentorFilter narrows mentor list queries.
type MentorFilter struct {
	Status string // exact status_category match, empty for all
	Search string // substring match on name or email
	Limit  int
	Offset int
}

// MentorStats summarizes the mentors table for the dashboard.
type MentorStats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	TotalRaised float64          `json:"total_raised"`
	TotalGoal   float64          `json:"total_goal"`
}
