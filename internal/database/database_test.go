// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package database

import (
	"testing"
	"time"
)

func TestWithStatementTimeout(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		timeout time.Duration
		want    string
	}{
		{
			name:    "bare dsn",
			dsn:     "postgres://localhost:5432/swab",
			timeout: 30 * time.Second,
			want:    "postgres://localhost:5432/swab?statement_timeout=30000",
		},
		{
			name:    "dsn with existing params",
			dsn:     "postgres://localhost:5432/swab?sslmode=disable",
			timeout: 5 * time.Second,
			want:    "postgres://localhost:5432/swab?sslmode=disable&statement_timeout=5000",
		},
		{
			name:    "zero timeout leaves dsn alone",
			dsn:     "postgres://localhost:5432/swab",
			timeout: 0,
			want:    "postgres://localhost:5432/swab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withStatementTimeout(tt.dsn, tt.timeout); got != tt.want {
				t.Errorf("withStatementTimeout(%q, %v) = %q, want %q", tt.dsn, tt.timeout, got, tt.want)
			}
		})
	}
}
