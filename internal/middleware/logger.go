// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package middleware

import (
	"net/http"
	"time"

	"github.com/swab-program/mentorsync/internal/logging"
)

// RequestLogger emits one structured log line per request. Health and
// metrics probes are logged at debug to keep the info stream readable.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		event := logging.Ctx(r.Context()).Info()
		if r.URL.Path == "/api/v1/health" || r.URL.Path == "/metrics" {
			event = logging.Ctx(r.Context()).Debug()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
