// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package models

import "time"

// RawSignup mirrors one Jotform signup form submission. The full answers
// payload is preserved as JSON so the ETL can be re-run after field
// mapping changes without re-fetching.
type RawSignup struct {
	SubmissionID string    `json:"submission_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Answers      []byte    `json:"answers"` // raw JSON answers map
	SubmittedAt  time.Time `json:"submitted_at"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// RawFundsSetup mirrors one Givebutter-setup form submission.
type RawFundsSetup struct {
	SubmissionID string    `json:"submission_id"`
	MnID         string    `json:"mn_id"` // signup submission id echoed in the form, may be empty
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PageURL      string    `json:"page_url"` // mentor's Givebutter page, as self-reported
	Answers      []byte    `json:"answers"`
	SubmittedAt  time.Time `json:"submitted_at"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// RawCampaignMember mirrors one Givebutter campaign member.
type RawCampaignMember struct {
	MemberID  string    `json:"member_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Goal      float64   `json:"goal"`
	Raised    float64   `json:"raised"`
	Donors    int       `json:"donors"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RawContact mirrors one Givebutter contact. Rows land here from both the
// contacts API sync and the CSV import path.
type RawContact struct {
	ContactID string    `json:"contact_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Tags      []string  `json:"tags"`
	Payload   []byte    `json:"payload"` // raw JSON contact object, nil for CSV rows
	FetchedAt time.Time `json:"fetched_at"`
}
