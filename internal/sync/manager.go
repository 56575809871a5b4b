// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	stdsync "sync"
	"time"

	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/database"
	"github.com/swab-program/mentorsync/internal/etl"
	"github.com/swab-program/mentorsync/internal/logging"
	"github.com/swab-program/mentorsync/internal/metrics"
	"github.com/swab-program/mentorsync/internal/models"
	"github.com/swab-program/mentorsync/internal/models/givebutter"
)

// ErrSyncAlreadyRunning is returned when a run is requested while another
// run holds the writer lock. Runs are strictly serialized; there is one
// sequential writer by design.
var ErrSyncAlreadyRunning = errors.New("a sync run is already in progress")

// Event is one progress message published to SSE and websocket
// subscribers during a run.
type Event struct {
	Type      string          `json:"type"` // run_started, source_started, source_finished, run_finished, error
	Source    string          `json:"source,omitempty"`
	Message   string          `json:"message,omitempty"`
	Run       *models.SyncRun `json:"run,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SourceStatus is the per-source block of the sync status report.
type SourceStatus struct {
	Source  string          `json:"source"`
	LastRun *models.SyncRun `json:"last_run,omitempty"`
}

// Status is the full sync status report served by the API.
type Status struct {
	Running bool           `json:"running"`
	Sources []SourceStatus `json:"sources"`
}

// settings are the effective external ids and keys for one run: the
// environment configuration overlaid with any non-empty values stored via
// the dashboard.
type settings struct {
	signupFormID string
	setupFormID  string
	campaignID   string
}

// Manager orchestrates sync runs: fetch each source into its raw mirror,
// then merge. All runs, manual or scheduled, are serialized through one
// mutex.
type Manager struct {
	cfg        *config.Config
	db         *database.DB
	jotform    JotformAPI
	givebutter GivebutterAPI
	merger     *etl.Merger

	runMu stdsync.Mutex

	subMu  stdsync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
}

// NewManager creates a sync manager.
func NewManager(cfg *config.Config, db *database.DB, jf JotformAPI, gb GivebutterAPI) *Manager {
	return &Manager{
		cfg:        cfg,
		db:         db,
		jotform:    jf,
		givebutter: gb,
		merger:     etl.NewMerger(db),
		subs:       make(map[uint64]chan Event),
	}
}

// Subscribe registers a progress event channel. The channel is buffered;
// slow consumers drop events rather than stalling the run.
func (m *Manager) Subscribe() (uint64, <-chan Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.nextID++
	id := m.nextID
	ch := make(chan Event, 64)
	m.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a progress channel.
func (m *Manager) Unsubscribe(id uint64) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Manager) publish(ev Event) {
	ev.Timestamp = time.Now().UTC()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default: // drop for slow consumers
		}
	}
}

// IsRunning reports whether a run currently holds the writer lock.
func (m *Manager) IsRunning() bool {
	if m.runMu.TryLock() {
		m.runMu.Unlock()
		return false
	}
	return true
}

// defaultSources is the periodic (tier 2) run order. Contacts are the
// slowest source, so the scheduler skips them; "all" runs include them.
var defaultSources = []string{
	models.SourceJotformSignups,
	models.SourceJotformSetup,
	models.SourceGBMembers,
	models.SourceETL,
}

// allSources is the initialization (tier 1) run order.
var allSources = []string{
	models.SourceJotformSignups,
	models.SourceJotformSetup,
	models.SourceGBMembers,
	models.SourceGBContacts,
	models.SourceETL,
}

// ExpandSources resolves the requested source list: empty means the
// periodic set, "all" means every source including contacts. Unknown
// names are rejected.
func ExpandSources(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return defaultSources, nil
	}
	if len(requested) == 1 && requested[0] == "all" {
		return allSources, nil
	}
	valid := map[string]bool{
		models.SourceJotformSignups: true,
		models.SourceJotformSetup:   true,
		models.SourceGBMembers:      true,
		models.SourceGBContacts:     true,
		models.SourceETL:            true,
	}
	for _, s := range requested {
		if !valid[s] {
			return nil, fmt.Errorf("unknown sync source %q (valid: %s, all)",
				s, strings.Join(allSources, ", "))
		}
	}
	return requested, nil
}

// resolveSettings overlays stored dashboard configuration on the
// environment configuration and refreshes client credentials.
func (m *Manager) resolveSettings(ctx context.Context) (*settings, error) {
	stored, err := m.db.GetStoredConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored config: %w", err)
	}

	if stored.JotformAPIKey != "" {
		m.jotform.SetAPIKey(stored.JotformAPIKey)
	} else {
		m.jotform.SetAPIKey(m.cfg.Jotform.APIKey)
	}
	if stored.GivebutterAPIKey != "" {
		m.givebutter.SetAPIKey(stored.GivebutterAPIKey)
	} else {
		m.givebutter.SetAPIKey(m.cfg.Givebutter.APIKey)
	}

	s := &settings{
		signupFormID: m.cfg.Jotform.SignupFormID,
		setupFormID:  m.cfg.Jotform.SetupFormID,
		campaignID:   m.cfg.Givebutter.CampaignID,
	}
	if stored.SignupFormID != "" {
		s.signupFormID = stored.SignupFormID
	}
	if stored.SetupFormID != "" {
		s.setupFormID = stored.SetupFormID
	}
	if stored.CampaignID != "" {
		s.campaignID = stored.CampaignID
	}
	return s, nil
}

// Run executes one serialized sync run over the requested sources.
// Returns ErrSyncAlreadyRunning without blocking when a run is active.
// A failing source fails its own sync_log row but does not stop the
// remaining sources; the first error is returned after the run completes.
func (m *Manager) Run(ctx context.Context, requested ...string) error {
	sources, err := ExpandSources(requested)
	if err != nil {
		return err
	}
	if !m.runMu.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer m.runMu.Unlock()

	log := logging.WithComponent("sync")
	log.Info().Strs("sources", sources).Msg("Sync run starting")
	m.publish(Event{Type: "run_started", Message: strings.Join(sources, ",")})

	st, err := m.resolveSettings(ctx)
	if err != nil {
		m.publish(Event{Type: "error", Message: err.Error()})
		return err
	}

	var firstErr error
	for _, source := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.runSource(ctx, source, st); err != nil {
			log.Error().Err(err).Str("source", source).Msg("Sync source failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	m.publish(Event{Type: "run_finished"})
	log.Info().Msg("Sync run finished")
	return firstErr
}

// runSource executes one source inside sync_log bookkeeping.
func (m *Manager) runSource(ctx context.Context, source string, st *settings) error {
	runID, err := m.db.StartSyncRun(ctx, source)
	if err != nil {
		return err
	}
	m.publish(Event{Type: "source_started", Source: source})

	start := time.Now()
	var fetched, upserted, skipped int
	switch source {
	case models.SourceJotformSignups:
		fetched, upserted, skipped, err = m.syncSignups(ctx, st.signupFormID)
	case models.SourceJotformSetup:
		fetched, upserted, skipped, err = m.syncSetups(ctx, st.setupFormID)
	case models.SourceGBMembers:
		fetched, upserted, err = m.syncMembers(ctx, st.campaignID)
	case models.SourceGBContacts:
		fetched, upserted, err = m.syncContacts(ctx)
	case models.SourceETL:
		fetched, upserted, skipped, err = m.runETL(ctx)
	default:
		err = fmt.Errorf("unknown sync source %q", source)
	}
	duration := time.Since(start)

	status := models.RunStatusCompleted
	errMsg := ""
	if err != nil {
		status = models.RunStatusFailed
		errMsg = err.Error()
	}
	metrics.RecordSyncRun(source, status, duration, upserted)
	if finErr := m.db.FinishSyncRun(ctx, runID, status, fetched, upserted, skipped, errMsg); finErr != nil {
		logging.Error().Err(finErr).Str("source", source).Msg("Failed to finish sync run record")
	}

	run := &models.SyncRun{
		ID: runID, Source: source, Status: status,
		Fetched: fetched, Upserted: upserted, Skipped: skipped, ErrorMessage: errMsg,
	}
	m.publish(Event{Type: "source_finished", Source: source, Run: run})
	return err
}

func (m *Manager) syncSignups(ctx context.Context, formID string) (fetched, upserted, skipped int, err error) {
	if formID == "" {
		return 0, 0, 0, errors.New("no signup form id configured")
	}
	subs, err := m.jotform.GetAllSubmissions(ctx, formID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to fetch signups: %w", err)
	}
	fetched = len(subs)
	for i := range subs {
		raw, perr := ParseSignup(&subs[i])
		if perr != nil {
			logging.Warn().Err(perr).Str("submission_id", subs[i].ID).Msg("Skipping unparseable signup")
			skipped++
			continue
		}
		if uerr := m.db.UpsertRawSignup(ctx, raw); uerr != nil {
			return fetched, upserted, skipped, uerr
		}
		upserted++
	}
	return fetched, upserted, skipped, nil
}

func (m *Manager) syncSetups(ctx context.Context, formID string) (fetched, upserted, skipped int, err error) {
	if formID == "" {
		return 0, 0, 0, errors.New("no setup form id configured")
	}
	subs, err := m.jotform.GetAllSubmissions(ctx, formID)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to fetch setups: %w", err)
	}
	fetched = len(subs)
	for i := range subs {
		raw, perr := ParseSetup(&subs[i])
		if perr != nil {
			logging.Warn().Err(perr).Str("submission_id", subs[i].ID).Msg("Skipping unparseable setup")
			skipped++
			continue
		}
		if uerr := m.db.UpsertRawFundsSetup(ctx, raw); uerr != nil {
			return fetched, upserted, skipped, uerr
		}
		upserted++
	}
	return fetched, upserted, skipped, nil
}

func (m *Manager) syncMembers(ctx context.Context, campaignID string) (fetched, upserted int, err error) {
	if campaignID == "" {
		return 0, 0, errors.New("no campaign id configured")
	}
	members, err := m.givebutter.GetAllMembers(ctx, campaignID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch campaign members: %w", err)
	}
	fetched = len(members)

	// The raised totals on the member listing lag behind new donations.
	// Sum succeeded transactions per member as a fallback; the listing
	// stays authoritative once it catches up.
	raisedByMember := map[int]float64{}
	if txns, terr := m.givebutter.GetAllTransactions(ctx, campaignID); terr != nil {
		logging.Warn().Err(terr).Msg("Skipping transaction totals, using member listing only")
	} else {
		raisedByMember = sumSucceededTransactions(txns)
	}

	for i := range members {
		mem := &members[i]
		raised := mem.Raised
		if raised == 0 {
			raised = raisedByMember[mem.ID]
		}
		raw := &models.RawCampaignMember{
			MemberID:  fmt.Sprintf("%d", mem.ID),
			FirstName: mem.FirstName,
			LastName:  mem.LastName,
			Email:     mem.Email,
			Phone:     mem.Phone,
			Goal:      mem.Goal,
			Raised:    raised,
			Donors:    mem.Donors,
			URL:       mem.URL,
		}
		if uerr := m.db.UpsertRawCampaignMember(ctx, raw); uerr != nil {
			return fetched, upserted, uerr
		}
		upserted++
	}
	return fetched, upserted, nil
}

// sumSucceededTransactions groups succeeded donation amounts by member id.
// Pending, failed and refunded transactions are excluded.
func sumSucceededTransactions(txns []givebutter.Transaction) map[int]float64 {
	totals := make(map[int]float64, len(txns))
	for i := range txns {
		t := &txns[i]
		if t.MemberID == 0 || t.Status != "succeeded" {
			continue
		}
		totals[t.MemberID] += t.Amount
	}
	return totals
}

func (m *Manager) syncContacts(ctx context.Context) (fetched, upserted int, err error) {
	contacts, err := m.givebutter.GetAllContacts(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	fetched = len(contacts)
	for i := range contacts {
		c := &contacts[i]
		raw := &models.RawContact{
			ContactID: fmt.Sprintf("%d", c.ID),
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.PrimaryEmail,
			Phone:     c.PrimaryPhone,
			Tags:      c.Tags,
			Payload:   c.Raw,
		}
		if uerr := m.db.UpsertRawContact(ctx, raw); uerr != nil {
			return fetched, upserted, uerr
		}
		upserted++
	}
	return fetched, upserted, nil
}

func (m *Manager) runETL(ctx context.Context) (processed, upserted, errCount int, err error) {
	res, err := m.merger.Run(ctx)
	if res != nil {
		processed, upserted, errCount = res.Processed, res.Upserted, res.Errors
	}
	return processed, upserted, errCount, err
}

// Status builds the per-source status report.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	status := &Status{Running: m.IsRunning()}
	for _, source := range allSources {
		s := SourceStatus{Source: source}
		run, err := m.db.LastSyncRun(ctx, source)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		s.LastRun = run
		status.Sources = append(status.Sources, s)
	}
	return status, nil
}

// CheckConnections verifies both external APIs are reachable with the
// effective credentials. Used by the health endpoint and the CLI.
func (m *Manager) CheckConnections(ctx context.Context) error {
	st, err := m.resolveSettings(ctx)
	if err != nil {
		return err
	}
	if err := m.jotform.Ping(ctx); err != nil {
		return fmt.Errorf("jotform check failed: %w", err)
	}
	if st.campaignID == "" {
		return errors.New("no campaign id configured")
	}
	if _, err := m.givebutter.GetCampaign(ctx, st.campaignID); err != nil {
		return fmt.Errorf("givebutter check failed: %w", err)
	}
	return nil
}

// PushStatuses writes mentor status back to Givebutter contacts: tags and
// the tracking custom fields. Mentors without a linked contact get one
// created and the new id saved. Run on demand only; Givebutter's rate
// limit makes this slow for large cohorts, so one call processes at most
// sync.batch_size rows and is re-run until the cohort is covered.
func (m *Manager) PushStatuses(ctx context.Context) (created, updated, failed int, err error) {
	if !m.runMu.TryLock() {
		return 0, 0, 0, ErrSyncAlreadyRunning
	}
	defer m.runMu.Unlock()

	if _, err := m.resolveSettings(ctx); err != nil {
		return 0, 0, 0, err
	}

	rows, err := m.db.ListGBImportRows(ctx)
	if err != nil {
		return 0, 0, 0, err
	}

	log := logging.WithComponent("sync")
	if size := m.cfg.Sync.BatchSize; size > 0 && len(rows) > size {
		log.Info().Int("total", len(rows)).Int("batch_size", size).
			Msg("Push capped to one batch, re-run to continue")
		rows = rows[:size]
	}
	for _, row := range rows {
		if ctx.Err() != nil {
			return created, updated, failed, ctx.Err()
		}
		mentor, gerr := m.db.GetMentor(ctx, row.MnID)
		if gerr != nil {
			failed++
			continue
		}

		input := &givebutter.ContactInput{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Tags:      strings.Split(row.Tags, ","),
			CustomFields: []givebutter.CustomField{
				{Title: "mn_id", Value: row.MnID},
				{Title: "status_category", Value: row.StatusCategory},
				{Title: "text_instructions", Value: row.TextInstructions},
			},
		}
		if row.Email != "" {
			input.Emails = []givebutter.TypedValue{{Type: "personal", Value: row.Email}}
		}
		if row.Phone != "" {
			input.Phones = []givebutter.TypedValue{{Type: "cell", Value: row.Phone}}
		}

		if mentor.GBContactID != nil && *mentor.GBContactID != "" {
			if _, uerr := m.givebutter.UpdateContact(ctx, *mentor.GBContactID, input); uerr != nil {
				log.Warn().Err(uerr).Str("mn_id", row.MnID).Msg("Failed to update contact")
				failed++
				continue
			}
			updated++
			continue
		}

		contact, cerr := m.givebutter.CreateContact(ctx, input)
		if cerr != nil {
			log.Warn().Err(cerr).Str("mn_id", row.MnID).Msg("Failed to create contact")
			failed++
			continue
		}
		id := fmt.Sprintf("%d", contact.ID)
		if _, uerr := m.db.UpdateMentor(ctx, row.MnID, models.MentorUpdate{GBContactID: &id}); uerr != nil {
			log.Warn().Err(uerr).Str("mn_id", row.MnID).Msg("Failed to save new contact id")
		}
		created++
	}
	return created, updated, failed, nil
}
