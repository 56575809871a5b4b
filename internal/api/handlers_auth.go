// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/swab-program/mentorsync/internal/auth"
	"github.com/swab-program/mentorsync/internal/logging"
)

// AuthHandler serves login/logout. Separate from Handler because it needs
// the JWT manager and nothing else. With auth mode "none" the manager is
// nil and login requests are rejected.
type AuthHandler struct {
	manager *auth.JWTManager
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(manager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login. On success the token comes back
// in the body and in an httponly session cookie for the dashboard.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.manager == nil {
		rw.Conflict("authentication is disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}

	if !h.manager.Authenticate(req.Username, req.Password) {
		logging.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("failed login attempt")
		rw.Unauthorized("invalid credentials")
		return
	}

	token, err := h.manager.GenerateToken(req.Username, "admin")
	if err != nil {
		rw.InternalError(err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.manager.TokenTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	rw.Success(map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(h.manager.TokenTTL()),
	})
}

// Logout handles POST /api/v1/auth/logout: clears the session cookie.
// Tokens themselves stay valid until expiry; there is no revocation list.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	NewResponseWriter(w, r).Success(map[string]bool{"logged_out": true})
}
