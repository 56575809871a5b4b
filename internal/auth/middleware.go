// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

type contextKey string

// ClaimsKey is the context key carrying validated claims.
const ClaimsKey contextKey = "auth_claims"

// Middleware guards routes according to the configured auth mode.
type Middleware struct {
	manager *JWTManager
	mode    string // "jwt" or "none"
}

// NewMiddleware creates the auth middleware. In "none" mode every request
// passes through; manager may be nil in that case.
func NewMiddleware(manager *JWTManager, mode string) *Middleware {
	return &Middleware{manager: manager, mode: mode}
}

// Require rejects requests without a valid bearer token (or session
// cookie) when auth mode is jwt.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode != "jwt" {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			unauthorized(w, "missing authentication token")
			return
		}
		claims, err := m.manager.ValidateToken(token)
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the token from the Authorization header, the
// session cookie, or (for SSE/websocket clients that cannot set headers)
// the token query parameter.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// ClaimsFromContext returns the validated claims, or nil outside jwt mode.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": "UNAUTHORIZED", "message": message},
	})
}
