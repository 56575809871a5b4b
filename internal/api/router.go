// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swab-program/mentorsync/internal/auth"
	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/middleware"
	"github.com/swab-program/mentorsync/internal/realtime"
)

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(h *Handler, authHandler *AuthHandler, authMW *auth.Middleware, hub *realtime.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5, "application/json", "text/csv"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestLogger)

	rateLimit := func(reqs int) func(http.Handler) http.Handler {
		if cfg.Security.RateLimitDisabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return httprate.LimitByIP(reqs, cfg.Security.RateLimitWindow)
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		// Unauthenticated.
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg.Security.RateLimitReqs))
			r.Get("/health", h.Health)
			r.Get("/health/live", h.Live)
			r.Get("/health/ready", h.Ready)
		})

		// Login gets a tighter limit than the rest of the API.
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(10))
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/logout", authHandler.Logout)
		})

		// Everything below requires a session in jwt mode.
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg.Security.RateLimitReqs))
			r.Use(authMW.Require)

			r.Route("/mentors", func(r chi.Router) {
				r.Get("/", h.ListMentors)
				r.Get("/stats", h.MentorStats)
				r.Get("/{mnID}", h.GetMentor)
				r.Patch("/{mnID}", h.UpdateMentor)
			})

			r.Route("/sync", func(r chi.Router) {
				r.Get("/status", h.SyncStatus)
				r.Get("/log", h.SyncLog)
				r.Get("/errors", h.SyncErrors)
				r.Get("/stream", h.SyncEvents)
				r.Post("/run", h.TriggerSync)
				r.Post("/push", h.PushStatuses)
			})

			r.Route("/config", func(r chi.Router) {
				r.Get("/", h.GetConfig)
				r.Put("/", h.UpdateConfig)
			})

			r.Get("/export/gb-csv", h.ExportGBCSV)
			r.Post("/import/gb-csv", h.ImportGBCSV)
		})
	})

	// Websocket endpoint; the auth middleware accepts a token query param
	// here because browsers cannot set headers on websocket upgrades.
	r.Group(func(r chi.Router) {
		r.Use(authMW.Require)
		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			realtime.ServeWS(hub, w, req)
		})
	})

	return r
}
