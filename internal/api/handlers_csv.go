// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/swab-program/mentorsync/internal/gbcsv"
	"github.com/swab-program/mentorsync/internal/logging"
	"github.com/swab-program/mentorsync/internal/models"
)

// maxCSVUploadBytes caps contact CSV uploads. Givebutter exports for a
// campaign this size run well under a megabyte.
const maxCSVUploadBytes = 16 << 20

// ExportGBCSV handles GET /api/v1/export/gb-csv: streams the current
// mn_gb_import staging rows as a Givebutter-importable contact CSV.
func (h *Handler) ExportGBCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListGBImportRows(r.Context())
	if err != nil {
		NewResponseWriter(w, r).InternalError(err)
		return
	}

	filename := fmt.Sprintf("gb-import-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := gbcsv.Write(w, rows); err != nil {
		// Headers are already out; all we can do is log.
		logging.Ctx(r.Context()).Error().Err(err).Msg("csv export write failed")
	}
}

// ImportGBCSV handles POST /api/v1/import/gb-csv: accepts a Givebutter
// contact export (multipart field "file") and upserts the rows into
// raw_gb_contacts. The import is recorded in sync_log so it shows up in
// sync history alongside API runs.
func (h *Handler) ImportGBCSV(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		rw.BadRequest("missing multipart field \"file\": " + err.Error())
		return
	}
	defer file.Close()

	contacts, skipped, err := gbcsv.Read(file)
	if err != nil {
		rw.BadRequest("invalid CSV: " + err.Error())
		return
	}

	runID, err := h.store.StartSyncRun(r.Context(), models.SourceCSVImport)
	if err != nil {
		rw.InternalError(err)
		return
	}

	upserted := 0
	var firstErr error
	for i := range contacts {
		if err := h.store.UpsertRawContact(r.Context(), &contacts[i]); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			skipped++
			continue
		}
		upserted++
	}

	status := models.RunStatusCompleted
	errMsg := ""
	if firstErr != nil {
		status = models.RunStatusFailed
		errMsg = firstErr.Error()
	}
	if err := h.store.FinishSyncRun(r.Context(), runID, status, len(contacts), upserted, skipped, errMsg); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("run_id", runID).Msg("failed to finish csv import run")
	}

	if firstErr != nil {
		rw.ErrorWithDetails(http.StatusInternalServerError, ErrCodeDatabaseError,
			"some rows failed to import", map[string]any{
				"upserted": upserted,
				"skipped":  skipped,
				"error":    firstErr.Error(),
			})
		return
	}

	rw.Success(map[string]int{
		"imported": upserted,
		"skipped":  skipped,
	})
}
