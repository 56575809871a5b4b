// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package givebutter defines response types for the Givebutter v1 REST API.
//
// List endpoints wrap their payload in a data array plus a meta block with
// page/last_page counters; clients loop pages until meta.current_page
// reaches meta.last_page.
package givebutter

import "github.com/goccy/go-json"

// Meta is the pagination block on list responses.
type Meta struct {
	CurrentPage int `json:"current_page"`
	From        int `json:"from"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	To          int `json:"to"`
	Total       int `json:"total"`
}

// Page is the generic list response wrapper.
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

// Envelope wraps single-object responses.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// Campaign is a fundraising campaign.
type Campaign struct {
	ID     int     `json:"id"`
	Code   string  `json:"code"`
	Title  string  `json:"title"`
	Type   string  `json:"type"`
	Goal   float64 `json:"goal"`
	Raised float64 `json:"raised"`
	Donors int     `json:"donors"`
	Status string  `json:"status"`
	URL    string  `json:"url"`
}

// Member is one campaign member (a mentor with a fundraising page).
type Member struct {
	ID          int     `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Goal        float64 `json:"goal"`
	Raised      float64 `json:"raised"`
	Donors      int     `json:"donors"`
	Items       int     `json:"items"`
	URL         string  `json:"url"`
	Picture     string  `json:"picture"`
}

// Contact is one CRM contact.
type Contact struct {
	ID           int             `json:"id"`
	Prefix       string          `json:"prefix"`
	FirstName    string          `json:"first_name"`
	MiddleName   string          `json:"middle_name"`
	LastName     string          `json:"last_name"`
	Suffix       string          `json:"suffix"`
	PrimaryEmail string          `json:"primary_email"`
	PrimaryPhone string          `json:"primary_phone"`
	Emails       []TypedValue    `json:"emails"`
	Phones       []TypedValue    `json:"phones"`
	Tags         []string        `json:"tags"`
	CustomFields []CustomField   `json:"custom_fields"`
	Stats        *ContactStats   `json:"stats,omitempty"`
	Raw          json.RawMessage `json:"-"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

// TypedValue is an email or phone entry with its type label.
type TypedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// CustomField is one contact custom field (mn_id, status_category and
// text_instructions are pushed through these).
type CustomField struct {
	ID    int    `json:"id,omitempty"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// ContactStats is the aggregate giving block on a contact.
type ContactStats struct {
	TotalContributions float64 `json:"total_contributions"`
}

// ContactInput is the request body for POST /contacts and PATCH
// /contacts/{id}.
type ContactInput struct {
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Emails       []TypedValue  `json:"emails,omitempty"`
	Phones       []TypedValue  `json:"phones,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// Transaction is one donation transaction.
type Transaction struct {
	ID         string  `json:"id"`
	CampaignID int     `json:"campaign_id"`
	ContactID  int     `json:"contact_id"`
	MemberID   int     `json:"member_id"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
}
