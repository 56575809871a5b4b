// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/swab-program/mentorsync/internal/logging"
	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models"
)

// Store is the slice of the database layer the merge needs.
type Store interface {
	ListRawSignups(ctx context.Context) ([]models.RawSignup, error)
	ListRawFundsSetups(ctx context.Context) ([]models.RawFundsSetup, error)
	ListRawCampaignMembers(ctx context.Context) ([]models.RawCampaignMember, error)
	ListRawContacts(ctx context.Context) ([]models.RawContact, error)
	UpsertMentor(ctx context.Context, m *models.Mentor) error
	RecordMentorError(ctx context.Context, mnID, stage, message string) error
	ReplaceGBImportRows(ctx context.Context, rows []models.GBImportRow) error
}

// Result summarizes one merge run.
type Result struct {
	Processed int
	Upserted  int
	Errors    int
}

// Merger rebuilds the mentors table from the raw mirrors. Runs are
// idempotent: the same raw state always produces the same mentors state.
type Merger struct {
	store Store
}

// NewMerger creates a merger over the given store.
func NewMerger(store Store) *Merger {
	return &Merger{store: store}
}

// lookups indexes the non-signup raw tables for matching. Emails and
// phones are normalized before use as keys.
type lookups struct {
	setupByMnID  map[string]*models.RawFundsSetup
	setupByEmail map[string]*models.RawFundsSetup
	setupByPhone map[string]*models.RawFundsSetup

	memberByEmail map[string]*models.RawCampaignMember
	memberByPhone map[string]*models.RawCampaignMember

	contactByEmail map[string]*models.RawContact
	contactByPhone map[string]*models.RawContact
}

func (m *Merger) buildLookups(ctx context.Context) (*lookups, error) {
	l := &lookups{
		setupByMnID:    make(map[string]*models.RawFundsSetup),
		setupByEmail:   make(map[string]*models.RawFundsSetup),
		setupByPhone:   make(map[string]*models.RawFundsSetup),
		memberByEmail:  make(map[string]*models.RawCampaignMember),
		memberByPhone:  make(map[string]*models.RawCampaignMember),
		contactByEmail: make(map[string]*models.RawContact),
		contactByPhone: make(map[string]*models.RawContact),
	}

	setups, err := m.store.ListRawFundsSetups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load funds setups: %w", err)
	}
	for i := range setups {
		s := &setups[i]
		if s.MnID != "" {
			l.setupByMnID[s.MnID] = s
		}
		if e := NormalizeEmail(s.Email); e != "" {
			l.setupByEmail[e] = s
		}
		if p := NormalizePhone(s.Phone); p != "" {
			l.setupByPhone[p] = s
		}
	}

	members, err := m.store.ListRawCampaignMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign members: %w", err)
	}
	for i := range members {
		mem := &members[i]
		if e := NormalizeEmail(mem.Email); e != "" {
			l.memberByEmail[e] = mem
		}
		if p := NormalizePhone(mem.Phone); p != "" {
			l.memberByPhone[p] = mem
		}
	}

	contacts, err := m.store.ListRawContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	for i := range contacts {
		c := &contacts[i]
		if e := NormalizeEmail(c.Email); e != "" {
			l.contactByEmail[e] = c
		}
		if p := NormalizePhone(c.Phone); p != "" {
			l.contactByPhone[p] = c
		}
	}

	return l, nil
}

// mergeOne builds the mentor row for one signup against the lookups.
func mergeOne(s *models.RawSignup, l *lookups) *models.Mentor {
	email := NormalizeEmail(s.Email)
	phone := NormalizePhone(s.Phone)

	mentor := &models.Mentor{
		MnID:       s.SubmissionID,
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		Email:      email,
		Phone:      phone,
		SignedUpAt: s.SubmittedAt,
	}

	setup := l.setupByMnID[s.SubmissionID]
	if setup == nil && email != "" {
		setup = l.setupByEmail[email]
	}
	if setup == nil && phone != "" {
		setup = l.setupByPhone[phone]
	}
	mentor.SetupDone = setup != nil

	var member *models.RawCampaignMember
	if email != "" {
		member = l.memberByEmail[email]
	}
	if member == nil && phone != "" {
		member = l.memberByPhone[phone]
	}
	if member != nil {
		mentor.CampaignMember = true
		id := member.MemberID
		mentor.GBMemberID = &id
		mentor.Goal = member.Goal
		mentor.Raised = member.Raised
		mentor.Donors = member.Donors
	}

	var contact *models.RawContact
	if email != "" {
		contact = l.contactByEmail[email]
	}
	if contact == nil && phone != "" {
		contact = l.contactByPhone[phone]
	}
	if contact != nil {
		id := contact.ContactID
		mentor.GBContactID = &id
	}

	mentor.FundraisedDone = mentor.Goal > 0 && mentor.Raised >= mentor.Goal
	mentor.StatusCategory = ComputeStatus(mentor.SetupDone, mentor.CampaignMember, mentor.FundraisedDone)
	return mentor
}

// Run executes one full merge. Per-record failures are recorded in
// mn_errors and counted; only load-phase failures abort the run.
func (m *Merger) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := logging.WithComponent("etl")

	l, err := m.buildLookups(ctx)
	if err != nil {
		return nil, err
	}

	signups, err := m.store.ListRawSignups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load signups: %w", err)
	}

	res := &Result{}
	mentors := make([]models.Mentor, 0, len(signups))
	for i := range signups {
		res.Processed++
		mentor := mergeOne(&signups[i], l)
		if err := m.store.UpsertMentor(ctx, mentor); err != nil {
			res.Errors++
			metrics.ETLRecordErrors.Inc()
			log.Error().Err(err).Str("mn_id", mentor.MnID).Msg("Failed to upsert mentor")
			if recErr := m.store.RecordMentorError(ctx, mentor.MnID, "upsert", err.Error()); recErr != nil {
				log.Error().Err(recErr).Str("mn_id", mentor.MnID).Msg("Failed to record mentor error")
			}
			continue
		}
		res.Upserted++
		mentors = append(mentors, *mentor)
	}

	if err := m.store.ReplaceGBImportRows(ctx, BuildImportRows(mentors)); err != nil {
		return res, fmt.Errorf("failed to regenerate import projection: %w", err)
	}

	log.Info().
		Int("processed", res.Processed).
		Int("upserted", res.Upserted).
		Int("errors", res.Errors).
		Dur("duration", time.Since(start)).
		Msg("ETL merge completed")
	return res, nil
}
