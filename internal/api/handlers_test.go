// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/swab-program/mentorsync/internal/auth"
	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/database"
	"github.com/swab-program/mentorsync/internal/models"
	"github.com/swab-program/mentorsync/internal/realtime"
	syncer "github.com/swab-program/mentorsync/internal/sync"
)

type fakeStore struct {
	mentors      map[string]*models.Mentor
	listResult   []models.Mentor
	listFilter   models.MentorFilter
	importRows   []models.GBImportRow
	rawContacts  []models.RawContact
	storedConfig models.StoredConfig
	runs         []models.SyncRun
	pingErr      error
	upsertErr    error
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) GetMentor(ctx context.Context, mnID string) (*models.Mentor, error) {
	m, ok := f.mentors[mnID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) ListMentors(ctx context.Context, filter models.MentorFilter) ([]models.Mentor, error) {
	f.listFilter = filter
	if filter.Limit > 0 && len(f.listResult) > filter.Limit {
		return f.listResult[:filter.Limit], nil
	}
	return f.listResult, nil
}

func (f *fakeStore) UpdateMentor(ctx context.Context, mnID string, upd models.MentorUpdate) (*models.Mentor, error) {
	m, ok := f.mentors[mnID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if upd.Email != nil {
		m.Email = *upd.Email
	}
	return m, nil
}

func (f *fakeStore) MentorStats(ctx context.Context) (*models.MentorStats, error) {
	return &models.MentorStats{Total: int64(len(f.mentors))}, nil
}

func (f *fakeStore) ListSyncRuns(ctx context.Context, source string, limit int) ([]models.SyncRun, error) {
	return f.runs, nil
}

func (f *fakeStore) ListMentorErrors(ctx context.Context, limit int) ([]models.MentorError, error) {
	return nil, nil
}

func (f *fakeStore) GetStoredConfig(ctx context.Context) (*models.StoredConfig, error) {
	c := f.storedConfig
	return &c, nil
}

func (f *fakeStore) PutStoredConfig(ctx context.Context, c *models.StoredConfig) error {
	f.storedConfig = *c
	return nil
}

func (f *fakeStore) ListGBImportRows(ctx context.Context) ([]models.GBImportRow, error) {
	return f.importRows, nil
}

func (f *fakeStore) UpsertRawContact(ctx context.Context, c *models.RawContact) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rawContacts = append(f.rawContacts, *c)
	return nil
}

func (f *fakeStore) StartSyncRun(ctx context.Context, source string) (string, error) {
	f.runs = append(f.runs, models.SyncRun{ID: "run-1", Source: source, Status: models.RunStatusRunning})
	return "run-1", nil
}

func (f *fakeStore) FinishSyncRun(ctx context.Context, id, status string, fetched, upserted, skipped int, errMsg string) error {
	for i := range f.runs {
		if f.runs[i].ID == id {
			f.runs[i].Status = status
			f.runs[i].Fetched = fetched
			f.runs[i].Upserted = upserted
			f.runs[i].Skipped = skipped
		}
	}
	return nil
}

type fakeSync struct {
	running   bool
	ran       chan []string
	runErr    error
	pushed    bool
	events    chan syncer.Event
	createdN  int
	updatedN  int
	failedN   int
	pushErr   error
	statusOut *syncer.Status
}

func newFakeSync() *fakeSync {
	return &fakeSync{
		ran:       make(chan []string, 1),
		events:    make(chan syncer.Event, 8),
		statusOut: &syncer.Status{},
	}
}

func (f *fakeSync) Run(ctx context.Context, sources ...string) error {
	f.ran <- sources
	return f.runErr
}

func (f *fakeSync) IsRunning() bool { return f.running }

func (f *fakeSync) Status(ctx context.Context) (*syncer.Status, error) {
	f.statusOut.Running = f.running
	return f.statusOut, nil
}

func (f *fakeSync) Subscribe() (uint64, <-chan syncer.Event) { return 1, f.events }

func (f *fakeSync) Unsubscribe(id uint64) {}

func (f *fakeSync) PushStatuses(ctx context.Context) (int, int, int, error) {
	f.pushed = true
	return f.createdN, f.updatedN, f.failedN, f.pushErr
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{DefaultPageSize: 50, MaxPageSize: 500},
		Security: config.SecurityConfig{
			AuthMode:          "none",
			RateLimitDisabled: true,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
	}
}

func newTestRouter(t *testing.T, store *fakeStore, s *fakeSync) http.Handler {
	t.Helper()
	cfg := testConfig()
	h := NewHandler(store, s, cfg)
	authMW := auth.NewMiddleware(nil, "none")
	return NewRouter(h, NewAuthHandler(nil), authMW, realtime.NewHub(), cfg)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestListMentorsPagination(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 3; i++ {
		store.listResult = append(store.listResult, models.Mentor{MnID: "mn-" + strings.Repeat("x", i+1)})
	}
	router := newTestRouter(t, store, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mentors?limit=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.Meta == nil || resp.Meta.Pagination == nil {
		t.Fatal("expected pagination meta")
	}
	p := resp.Meta.Pagination
	if p.Count != 2 || !p.HasMore || p.Limit != 2 {
		t.Errorf("pagination = %+v, want count 2, has_more true, limit 2", p)
	}
	// The store should have been asked for one extra row.
	if store.listFilter.Limit != 3 {
		t.Errorf("store limit = %d, want 3", store.listFilter.Limit)
	}
}

func TestListMentorsInvalidStatus(t *testing.T) {
	router := newTestRouter(t, &fakeStore{}, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mentors?status=bogus", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v, want BAD_REQUEST", resp.Error)
	}
}

func TestLoginWithAuthDisabled(t *testing.T) {
	// Auth mode "none" leaves the JWT manager nil; login must reject the
	// request instead of panicking.
	router := newTestRouter(t, &fakeStore{}, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"admin","password":"pw"}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
		t.Errorf("error = %+v, want CONFLICT", resp.Error)
	}
}

func TestGetMentorNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeStore{mentors: map[string]*models.Mentor{}}, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mentors/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateMentorValidation(t *testing.T) {
	store := &fakeStore{mentors: map[string]*models.Mentor{
		"mn-1": {MnID: "mn-1", Email: "old@example.org"},
	}}
	router := newTestRouter(t, store, newFakeSync())

	body := strings.NewReader(`{"email":"not-an-email"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/mentors/mn-1", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want VALIDATION_FAILED", resp.Error)
	}

	// A valid patch goes through.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/mentors/mn-1",
		strings.NewReader(`{"email":"new@example.org"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.mentors["mn-1"].Email != "new@example.org" {
		t.Errorf("email = %q, want new@example.org", store.mentors["mn-1"].Email)
	}
}

func TestTriggerSyncConflict(t *testing.T) {
	s := newFakeSync()
	s.running = true
	router := newTestRouter(t, &fakeStore{}, s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
		t.Errorf("error = %+v, want CONFLICT", resp.Error)
	}
}

func TestTriggerSyncStartsRun(t *testing.T) {
	s := newFakeSync()
	router := newTestRouter(t, &fakeStore{}, s)

	body := strings.NewReader(`{"sources":["jotform_signups","etl"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	select {
	case sources := <-s.ran:
		if len(sources) != 2 || sources[0] != "jotform_signups" || sources[1] != "etl" {
			t.Errorf("ran sources = %v", sources)
		}
	case <-time.After(time.Second):
		t.Fatal("background run never started")
	}
}

func TestTriggerSyncRejectsUnknownSource(t *testing.T) {
	router := newTestRouter(t, &fakeStore{}, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/run",
		strings.NewReader(`{"sources":["bogus"]}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPushStatuses(t *testing.T) {
	s := newFakeSync()
	s.createdN, s.updatedN, s.failedN = 2, 5, 1
	router := newTestRouter(t, &fakeStore{}, s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/push", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", resp.Data)
	}
	if data["created"] != float64(2) || data["updated"] != float64(5) || data["failed"] != float64(1) {
		t.Errorf("data = %v", data)
	}
	if !s.pushed {
		t.Error("PushStatuses never called")
	}
}

func TestHealthDegradedWhenDBDown(t *testing.T) {
	store := &fakeStore{pingErr: errors.New("connection refused")}
	router := newTestRouter(t, store, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	store.pingErr = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetConfigMasksKeys(t *testing.T) {
	store := &fakeStore{storedConfig: models.StoredConfig{
		JotformAPIKey: "jf_1234567890abcdef",
		CampaignID:    "CQVG3W",
	}}
	router := newTestRouter(t, store, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	key := data["jotform_api_key"].(string)
	if strings.Contains(key, "1234567890") {
		t.Errorf("API key not masked: %q", key)
	}
	if !strings.HasSuffix(key, "cdef") {
		t.Errorf("masked key should keep last four characters, got %q", key)
	}
	if data["campaign_id"] != "CQVG3W" {
		t.Errorf("campaign_id = %v", data["campaign_id"])
	}
}

func TestUpdateConfigPartial(t *testing.T) {
	store := &fakeStore{storedConfig: models.StoredConfig{
		JotformAPIKey: "jf_original_key",
		CampaignID:    "CQVG3W",
	}}
	router := newTestRouter(t, store, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/config/",
		strings.NewReader(`{"campaign_id":"ABC123"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.storedConfig.CampaignID != "ABC123" {
		t.Errorf("campaign_id = %q, want ABC123", store.storedConfig.CampaignID)
	}
	if store.storedConfig.JotformAPIKey != "jf_original_key" {
		t.Errorf("untouched key changed: %q", store.storedConfig.JotformAPIKey)
	}
}

func TestExportGBCSV(t *testing.T) {
	store := &fakeStore{importRows: []models.GBImportRow{
		{MnID: "mn-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org",
			Tags: "swab-mentor,complete", StatusCategory: "complete"},
	}}
	router := newTestRouter(t, store, newFakeSync())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/export/gb-csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ada@example.org") || !strings.Contains(body, "swab-mentor,complete") {
		t.Errorf("csv body missing expected fields:\n%s", body)
	}
}

func TestImportGBCSV(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(t, store, newFakeSync())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "contacts.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("Contact ID,First Name,Last Name,Email,Phone,Tags\n" +
		"901,Ada,Lovelace,ada@example.org,+15551112222,\"swab-mentor, complete\"\n" +
		",No,ID,skip@example.org,,\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/gb-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["imported"] != float64(1) || data["skipped"] != float64(1) {
		t.Errorf("data = %v", data)
	}
	if len(store.rawContacts) != 1 || store.rawContacts[0].ContactID != "901" {
		t.Fatalf("raw contacts = %+v", store.rawContacts)
	}
	if len(store.runs) != 1 || store.runs[0].Source != models.SourceCSVImport ||
		store.runs[0].Status != models.RunStatusCompleted {
		t.Errorf("runs = %+v", store.runs)
	}
}

func TestSyncEventsStream(t *testing.T) {
	s := newFakeSync()
	store := &fakeStore{}
	cfg := testConfig()
	h := NewHandler(store, s, cfg)

	// Drive the SSE handler directly so the test controls the stream.
	srv := httptest.NewServer(http.HandlerFunc(h.SyncEvents))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)

	s.events <- syncer.Event{Type: "run_started", Timestamp: time.Now()}
	close(s.events)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	out := string(buf[:n])
	if !strings.Contains(out, "event: run_started") {
		t.Errorf("stream output = %q, want run_started event", out)
	}
}

func TestRequestIDInErrorEnvelope(t *testing.T) {
	router := newTestRouter(t, &fakeStore{mentors: map[string]*models.Mentor{}}, newFakeSync())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mentors/missing", nil)
	req.Header.Set("X-Request-ID", "req-abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.RequestID != "req-abc123" {
		t.Errorf("error = %+v, want request_id req-abc123", resp.Error)
	}
}
