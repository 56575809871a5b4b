// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// Health handles GET /api/v1/health: liveness plus a database ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbStatus := "ok"
	healthy := true
	if err := h.store.Ping(r.Context()); err != nil {
		dbStatus = err.Error()
		healthy = false
	}

	body := map[string]any{
		"status":         "ok",
		"database":       dbStatus,
		"sync_running":   h.syncer.IsRunning(),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	}
	if !healthy {
		body["status"] = "degraded"
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    body,
			Error:   &APIError{Code: ErrCodeServiceUnavailable, Message: "database unreachable"},
			Meta:    rw.meta(),
		})
		return
	}

	rw.Success(body)
}

// Live handles GET /api/v1/health/live: process liveness only.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// Ready handles GET /api/v1/health/ready: the service can reach Postgres.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.store.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("database unreachable: " + err.Error())
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
