// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package etl merges the raw mirror tables into the mentors table and
// regenerates the Givebutter import projection.
package etl

import "strings"

// NormalizeEmail lowercases and trims an email address for matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone converts a phone number to E.164, assuming US numbers
// when no country code is present. Returns "" when the input cannot be a
// valid number, so callers never match on garbage.
func NormalizePhone(phone string) string {
	hasPlus := strings.HasPrefix(strings.TrimSpace(phone), "+")

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case hasPlus && len(d) >= 8 && len(d) <= 15:
		return "+" + d
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	default:
		return ""
	}
}
