// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package main is the mentorsync command line interface. It runs the same
// sync and ETL machinery as the server, one operation at a time, for
// cron jobs and one-off maintenance.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
