// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package etl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/swab-program/mentorsync/internal/models"
)

type fakeStore struct {
	signups  []models.RawSignup
	setups   []models.RawFundsSetup
	members  []models.RawCampaignMember
	contacts []models.RawContact

	upserted   map[string]*models.Mentor
	errored    []string
	importRows []models.GBImportRow
	failUpsert map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		upserted:   make(map[string]*models.Mentor),
		failUpsert: make(map[string]error),
	}
}

func (f *fakeStore) ListRawSignups(context.Context) ([]models.RawSignup, error) {
	return f.signups, nil
}

func (f *fakeStore) ListRawFundsSetups(context.Context) ([]models.RawFundsSetup, error) {
	return f.setups, nil
}

func (f *fakeStore) ListRawCampaignMembers(context.Context) ([]models.RawCampaignMember, error) {
	return f.members, nil
}

func (f *fakeStore) ListRawContacts(context.Context) ([]models.RawContact, error) {
	return f.contacts, nil
}

func (f *fakeStore) UpsertMentor(_ context.Context, m *models.Mentor) error {
	if err := f.failUpsert[m.MnID]; err != nil {
		return err
	}
	cp := *m
	f.upserted[m.MnID] = &cp
	return nil
}

func (f *fakeStore) RecordMentorError(_ context.Context, mnID, _, _ string) error {
	f.errored = append(f.errored, mnID)
	return nil
}

func (f *fakeStore) ReplaceGBImportRows(_ context.Context, rows []models.GBImportRow) error {
	f.importRows = rows
	return nil
}

func TestMergeMatchingAndStatus(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.signups = []models.RawSignup{
		// Matched to setup by mn_id and to member by email: ready_to_fundraise.
		{SubmissionID: "s1", FirstName: "Ada", LastName: "Lovelace", Email: "Ada@Example.com", Phone: "(555) 111-2222", SubmittedAt: now},
		// Matched to member by phone only, no setup: needs_setup.
		{SubmissionID: "s2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Phone: "5553334444", SubmittedAt: now},
		// No matches at all: needs_campaign_join.
		{SubmissionID: "s3", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", SubmittedAt: now},
		// Setup matched by email, member with goal met: complete.
		{SubmissionID: "s4", FirstName: "Joan", LastName: "Clarke", Email: "joan@example.com", SubmittedAt: now},
	}
	store.setups = []models.RawFundsSetup{
		{SubmissionID: "f1", MnID: "s1", SubmittedAt: now},
		{SubmissionID: "f2", Email: "JOAN@example.com", SubmittedAt: now},
	}
	store.members = []models.RawCampaignMember{
		{MemberID: "m1", Email: "ada@example.com", Goal: 500, Raised: 100},
		{MemberID: "m2", Phone: "+15553334444", Goal: 500, Raised: 0},
		{MemberID: "m4", Email: "joan@example.com", Goal: 500, Raised: 750, Donors: 12},
	}
	store.contacts = []models.RawContact{
		{ContactID: "c1", Email: "ada@example.com"},
	}

	res, err := NewMerger(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Processed != 4 || res.Upserted != 4 || res.Errors != 0 {
		t.Fatalf("result = %+v, want 4 processed, 4 upserted, 0 errors", res)
	}

	s1 := store.upserted["s1"]
	if s1.StatusCategory != models.StatusReadyToFundraise {
		t.Errorf("s1 status = %q, want %q", s1.StatusCategory, models.StatusReadyToFundraise)
	}
	if s1.Email != "ada@example.com" || s1.Phone != "+15551112222" {
		t.Errorf("s1 identity not normalized: %q %q", s1.Email, s1.Phone)
	}
	if s1.GBMemberID == nil || *s1.GBMemberID != "m1" {
		t.Errorf("s1 member id = %v, want m1", s1.GBMemberID)
	}
	if s1.GBContactID == nil || *s1.GBContactID != "c1" {
		t.Errorf("s1 contact id = %v, want c1", s1.GBContactID)
	}

	s2 := store.upserted["s2"]
	if s2.StatusCategory != models.StatusNeedsSetup {
		t.Errorf("s2 status = %q, want %q", s2.StatusCategory, models.StatusNeedsSetup)
	}

	s3 := store.upserted["s3"]
	if s3.StatusCategory != models.StatusNeedsCampaign {
		t.Errorf("s3 status = %q, want %q", s3.StatusCategory, models.StatusNeedsCampaign)
	}

	s4 := store.upserted["s4"]
	if s4.StatusCategory != models.StatusComplete {
		t.Errorf("s4 status = %q, want %q", s4.StatusCategory, models.StatusComplete)
	}
	if !s4.FundraisedDone || s4.Raised != 750 || s4.Donors != 12 {
		t.Errorf("s4 fundraising fields wrong: %+v", s4)
	}
}

func TestMergeContinuesPastRecordFailures(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.signups = []models.RawSignup{
		{SubmissionID: "ok1", Email: "a@example.com", SubmittedAt: now},
		{SubmissionID: "bad", Email: "b@example.com", SubmittedAt: now},
		{SubmissionID: "ok2", Email: "c@example.com", SubmittedAt: now},
	}
	store.failUpsert["bad"] = errors.New("constraint violation")

	res, err := NewMerger(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Processed != 3 || res.Upserted != 2 || res.Errors != 1 {
		t.Fatalf("result = %+v, want 3 processed, 2 upserted, 1 error", res)
	}
	if len(store.errored) != 1 || store.errored[0] != "bad" {
		t.Errorf("errored = %v, want [bad]", store.errored)
	}
	if len(store.importRows) != 2 {
		t.Errorf("import projection has %d rows, want 2", len(store.importRows))
	}
}

func TestBuildImportRows(t *testing.T) {
	rows := BuildImportRows([]models.Mentor{
		{MnID: "s1", FirstName: "Ada", Email: "ada@example.com", StatusCategory: models.StatusNeedsSetup},
	})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.StatusCategory != models.StatusNeedsSetup {
		t.Errorf("status = %q", r.StatusCategory)
	}
	if !strings.Contains(r.Tags, mentorTag) || !strings.Contains(r.Tags, models.StatusNeedsSetup) {
		t.Errorf("tags = %q, want mentor tag and status tag", r.Tags)
	}
	if r.TextInstructions == "" {
		t.Error("text instructions empty")
	}
}
