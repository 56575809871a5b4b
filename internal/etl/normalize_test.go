// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package etl

import (
	"testing"

	"github.com/swab-program/mentorsync/internal/models"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mentor@Example.COM", "mentor@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ten digits", "5551234567", "+15551234567"},
		{"formatted US", "(555) 123-4567", "+15551234567"},
		{"eleven with country code", "15551234567", "+15551234567"},
		{"already E.164", "+15551234567", "+15551234567"},
		{"international with plus", "+447911123456", "+447911123456"},
		{"too short", "12345", ""},
		{"empty", "", ""},
		{"letters only", "call me", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.in); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name                              string
		setup, campaignMember, fundraised bool
		want                              string
	}{
		{"all flags", true, true, true, models.StatusComplete},
		{"member and setup", true, true, false, models.StatusReadyToFundraise},
		{"member only", false, true, false, models.StatusNeedsSetup},
		{"member fundraised without setup", false, true, true, models.StatusNeedsSetup},
		{"nothing", false, false, false, models.StatusNeedsCampaign},
		{"setup without membership", true, false, false, models.StatusNeedsCampaign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatus(tt.setup, tt.campaignMember, tt.fundraised)
			if got != tt.want {
				t.Errorf("ComputeStatus(%v, %v, %v) = %q, want %q",
					tt.setup, tt.campaignMember, tt.fundraised, got, tt.want)
			}
		})
	}
}
