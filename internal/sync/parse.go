// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/swab-program/mentorsync/internal/models"
	"github.com/swab-program/mentorsync/internal/models/jotform"
)

// jotformTimeLayout is the created_at format on submissions.
const jotformTimeLayout = "2006-01-02 15:04:05"

// Answer field name aliases per form field. Jotform assigns names from
// the field label, so renaming a field on the form changes the key; the
// alias lists cover the names both forms have used.
var (
	nameFields    = []string{"name", "fullname", "yourname", "mentorname"}
	emailFields   = []string{"email", "emailaddress", "youremail"}
	phoneFields   = []string{"phone", "phonenumber", "cellphone", "mobile"}
	mnIDFields    = []string{"mnid", "mn_id", "signupid", "submissionid"}
	pageURLFields = []string{"pageurl", "page_url", "fundraisingpage", "givebutterpage", "campaignurl"}
)

// findAnswer returns the first answer whose field name matches one of the
// aliases, comparing case-insensitively with separators stripped.
func findAnswer(answers map[string]jotform.Answer, aliases []string) (jotform.Answer, bool) {
	for _, a := range answers {
		key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(a.Name))
		for _, alias := range aliases {
			if key == alias {
				return a, true
			}
		}
	}
	return jotform.Answer{}, false
}

func answerString(answers map[string]jotform.Answer, aliases []string) string {
	a, ok := findAnswer(answers, aliases)
	if !ok {
		return ""
	}
	return strings.TrimSpace(a.Answer.String())
}

func parseSubmittedAt(createdAt string) time.Time {
	t, err := time.Parse(jotformTimeLayout, createdAt)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// ParseSignup maps a signup form submission to its raw mirror row. The
// full answers payload rides along as JSON.
func ParseSignup(sub *jotform.Submission) (*models.RawSignup, error) {
	submittedAt := parseSubmittedAt(sub.CreatedAt)
	if submittedAt.IsZero() {
		return nil, fmt.Errorf("submission %s has unparseable created_at %q", sub.ID, sub.CreatedAt)
	}

	answersJSON, err := json.Marshal(sub.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers for submission %s: %w", sub.ID, err)
	}

	s := &models.RawSignup{
		SubmissionID: sub.ID,
		Email:        answerString(sub.Answers, emailFields),
		Phone:        answerString(sub.Answers, phoneFields),
		Answers:      answersJSON,
		SubmittedAt:  submittedAt,
	}

	if name, ok := findAnswer(sub.Answers, nameFields); ok {
		s.FirstName = strings.TrimSpace(name.Answer.Part("first"))
		s.LastName = strings.TrimSpace(name.Answer.Part("last"))
		if s.FirstName == "" && s.LastName == "" {
			// Single-field name: split on the last space.
			full := strings.TrimSpace(name.Answer.String())
			if i := strings.LastIndex(full, " "); i > 0 {
				s.FirstName, s.LastName = full[:i], full[i+1:]
			} else {
				s.FirstName = full
			}
		}
	}
	return s, nil
}

// ParseSetup maps a Givebutter-setup form submission to its raw mirror
// row. The mn_id answer ties the setup back to a signup when present;
// email/phone matching is the fallback during the merge.
func ParseSetup(sub *jotform.Submission) (*models.RawFundsSetup, error) {
	submittedAt := parseSubmittedAt(sub.CreatedAt)
	if submittedAt.IsZero() {
		return nil, fmt.Errorf("submission %s has unparseable created_at %q", sub.ID, sub.CreatedAt)
	}

	answersJSON, err := json.Marshal(sub.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers for submission %s: %w", sub.ID, err)
	}

	return &models.RawFundsSetup{
		SubmissionID: sub.ID,
		MnID:         answerString(sub.Answers, mnIDFields),
		Email:        answerString(sub.Answers, emailFields),
		Phone:        answerString(sub.Answers, phoneFields),
		PageURL:      answerString(sub.Answers, pageURLFields),
		Answers:      answersJSON,
		SubmittedAt:  submittedAt,
	}, nil
}
