// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package etl

import "github.com/swab-program/mentorsync/internal/models"

// mentorTag marks every row pushed back into Givebutter so admin-side
// cleanup can find program contacts among general donors.
const mentorTag = "swab-mentor"

// statusInstructions maps a status category to the outreach text shown in
// Givebutter's custom field. Keep these short; they feed SMS templates.
var statusInstructions = map[string]string{
	models.StatusNeedsCampaign:    "Join the SWAB campaign to get your fundraising page.",
	models.StatusNeedsSetup:       "Finish your fundraising page setup form.",
	models.StatusReadyToFundraise: "You are all set, start sharing your page!",
	models.StatusComplete:         "Fundraising goal met, thank you!",
}

// BuildImportRows projects merged mentors into the Givebutter contact
// import shape. The whole table is regenerated on each run.
func BuildImportRows(mentors []models.Mentor) []models.GBImportRow {
	rows := make([]models.GBImportRow, 0, len(mentors))
	for _, m := range mentors {
		rows = append(rows, models.GBImportRow{
			MnID:             m.MnID,
			FirstName:        m.FirstName,
			LastName:         m.LastName,
			Email:            m.Email,
			Phone:            m.Phone,
			Tags:             mentorTag + "," + m.StatusCategory,
			StatusCategory:   m.StatusCategory,
			TextInstructions: statusInstructions[m.StatusCategory],
		})
	}
	return rows
}
