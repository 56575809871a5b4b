// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/swab-program/mentorsync/internal/logging"
	syncer "github.com/swab-program/mentorsync/internal/sync"
)

// syncRunTimeout bounds a background run started from the API.
const syncRunTimeout = 30 * time.Minute

// sseHeartbeatInterval keeps idle SSE connections alive through proxies.
const sseHeartbeatInterval = 15 * time.Second

type syncRunRequest struct {
	Sources []string `json:"sources"`
}

// TriggerSync handles POST /api/v1/sync/run. The run executes in the
// background; progress goes out over SSE and the websocket hub. Returns
// 409 when a run is already in flight.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req syncRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rw.BadRequest("invalid JSON body: " + err.Error())
			return
		}
	}

	if _, err := syncer.ExpandSources(req.Sources); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	if h.syncer.IsRunning() {
		rw.Conflict("a sync run is already in progress")
		return
	}

	log := logging.WithComponent("api")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncRunTimeout)
		defer cancel()
		if err := h.syncer.Run(ctx, req.Sources...); err != nil {
			if errors.Is(err, syncer.ErrSyncAlreadyRunning) {
				return
			}
			log.Error().Err(err).Strs("sources", req.Sources).Msg("sync run failed")
		}
	}()

	rw.Accepted(map[string]any{
		"started": true,
		"sources": req.Sources,
	})
}

// SyncStatus handles GET /api/v1/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status, err := h.syncer.Status(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(status)
}

// SyncLog handles GET /api/v1/sync/log. Query params: source, limit.
func (h *Handler) SyncLog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	limit, _ = h.clampPagination(limit, 0)

	runs, err := h.store.ListSyncRuns(r.Context(), q.Get("source"), limit)
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(runs)
}

// SyncErrors handles GET /api/v1/sync/errors: recent per-record merge
// failures.
func (h *Handler) SyncErrors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	limit, _ = h.clampPagination(limit, 0)

	errs, err := h.store.ListMentorErrors(r.Context(), limit)
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(errs)
}

// PushStatuses handles POST /api/v1/sync/push. Writes mentor status back
// to Givebutter contacts; synchronous because callers want counts.
func (h *Handler) PushStatuses(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	created, updated, failed, err := h.syncer.PushStatuses(r.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrSyncAlreadyRunning) {
			rw.Conflict("a sync run is already in progress")
			return
		}
		rw.InternalError(err)
		return
	}

	rw.Success(map[string]int{
		"created": created,
		"updated": updated,
		"failed":  failed,
	})
}

// SyncEvents handles GET /api/v1/sync/stream: a server-sent event stream
// of sync progress. Clients that cannot hold a websocket use this.
func (h *Handler) SyncEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		NewResponseWriter(w, r).Error(http.StatusInternalServerError, ErrCodeInternalError,
			"streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := h.syncer.Subscribe()
	defer h.syncer.Unsubscribe(id)

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
