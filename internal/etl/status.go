// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package etl

import "github.com/swab-program/mentorsync/internal/models"

// ComputeStatus derives the status category from the three task flags.
// Campaign membership gates everything: without it the mentor has no
// fundraising page to set up.
func ComputeStatus(setupDone, campaignMember, fundraisedDone bool) string {
	switch {
	case setupDone && campaignMember && fundraisedDone:
		return models.StatusComplete
	case campaignMember && setupDone:
		return models.StatusReadyToFundraise
	case campaignMember:
		return models.StatusNeedsSetup
	default:
		return models.StatusNeedsCampaign
	}
}
