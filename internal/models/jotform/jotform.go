// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package jotform defines response types for the Jotform REST API.
//
// Submissions carry an answers map keyed by numeric field id. Answer
// values are polymorphic: plain strings for simple fields, objects for
// multi-part fields (full name, phone number with area code). The Answer
// type normalizes both shapes.
package jotform

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Response is the wrapper around every Jotform API reply.
type Response struct {
	ResponseCode int             `json:"responseCode"`
	Message      string          `json:"message"`
	Content      json.RawMessage `json:"content"`
}

// Submission is one form submission.
type Submission struct {
	ID        string            `json:"id"`
	FormID    string            `json:"form_id"`
	CreatedAt string            `json:"created_at"` // "2006-01-02 15:04:05"
	Status    string            `json:"status"`     // ACTIVE, DELETED
	Answers   map[string]Answer `json:"answers"`
}

// User is the Jotform account owner, used for connectivity checks.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

// Answer is one field's answer within a submission.
type Answer struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Text   string      `json:"text"`
	Answer AnswerValue `json:"answer"`
}

// AnswerValue holds either a plain string answer or the parts of a
// multi-part field.
type AnswerValue struct {
	Text  string
	Parts map[string]string
}

// UnmarshalJSON accepts both string and object answer shapes.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &v.Text)
	}
	if data[0] == '{' {
		raw := map[string]json.RawMessage{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v.Parts = make(map[string]string, len(raw))
		for k, r := range raw {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				// Nested non-string parts (e.g. arrays) are flattened
				v.Parts[k] = string(r)
				continue
			}
			v.Parts[k] = s
		}
		return nil
	}
	// Arrays and numbers are kept as their raw text
	v.Text = strings.Trim(string(data), `"`)
	return nil
}

// String returns the answer flattened to a single string. Multi-part name
// fields join first/last; phone fields join area and number.
func (v AnswerValue) String() string {
	if v.Text != "" {
		return v.Text
	}
	if len(v.Parts) == 0 {
		return ""
	}
	if full, ok := v.Parts["full"]; ok && full != "" {
		return full
	}
	if first, ok := v.Parts["first"]; ok {
		if last := v.Parts["last"]; last != "" {
			return strings.TrimSpace(first + " " + last)
		}
		return first
	}
	if area, ok := v.Parts["area"]; ok {
		return strings.TrimSpace(fmt.Sprintf("(%s) %s", area, v.Parts["phone"]))
	}
	// Fall back to any single part
	for _, p := range v.Parts {
		if p != "" {
			return p
		}
	}
	return ""
}

// Part returns a named part of a multi-part answer, or "" if absent.
func (v AnswerValue) Part(name string) string {
	if v.Parts == nil {
		return ""
	}
	return v.Parts[name]
}
