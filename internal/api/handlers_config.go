// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maskSecret hides all but the last four characters of an API key so the
// dashboard can show which key is set without exposing it.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

type configResponse struct {
	JotformAPIKey    string `json:"jotform_api_key"`    // masked
	GivebutterAPIKey string `json:"givebutter_api_key"` // masked
	SignupFormID     string `json:"signup_form_id"`
	SetupFormID      string `json:"setup_form_id"`
	CampaignID       string `json:"campaign_id"`
}

type configUpdateRequest struct {
	JotformAPIKey    *string `json:"jotform_api_key" validate:"omitempty,min=8"`
	GivebutterAPIKey *string `json:"givebutter_api_key" validate:"omitempty,min=8"`
	SignupFormID     *string `json:"signup_form_id" validate:"omitempty,numeric"`
	SetupFormID      *string `json:"setup_form_id" validate:"omitempty,numeric"`
	CampaignID       *string `json:"campaign_id" validate:"omitempty,alphanum,max=16"`
}

// GetConfig handles GET /api/v1/config. Stored values fall back to the
// environment configuration; keys come back masked.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stored, err := h.store.GetStoredConfig(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}

	resp := configResponse{
		JotformAPIKey:    stored.JotformAPIKey,
		GivebutterAPIKey: stored.GivebutterAPIKey,
		SignupFormID:     stored.SignupFormID,
		SetupFormID:      stored.SetupFormID,
		CampaignID:       stored.CampaignID,
	}
	if resp.JotformAPIKey == "" {
		resp.JotformAPIKey = h.cfg.Jotform.APIKey
	}
	if resp.GivebutterAPIKey == "" {
		resp.GivebutterAPIKey = h.cfg.Givebutter.APIKey
	}
	if resp.SignupFormID == "" {
		resp.SignupFormID = h.cfg.Jotform.SignupFormID
	}
	if resp.SetupFormID == "" {
		resp.SetupFormID = h.cfg.Jotform.SetupFormID
	}
	if resp.CampaignID == "" {
		resp.CampaignID = h.cfg.Givebutter.CampaignID
	}
	resp.JotformAPIKey = maskSecret(resp.JotformAPIKey)
	resp.GivebutterAPIKey = maskSecret(resp.GivebutterAPIKey)

	rw.Success(resp)
}

// UpdateConfig handles PUT /api/v1/config. Fields absent from the body
// keep their stored value; the next sync run picks changes up without a
// restart.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req configUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			rw.ValidationFailed("validation failed", details)
			return
		}
		rw.BadRequest(err.Error())
		return
	}

	stored, err := h.store.GetStoredConfig(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&stored.JotformAPIKey, req.JotformAPIKey)
	apply(&stored.GivebutterAPIKey, req.GivebutterAPIKey)
	apply(&stored.SignupFormID, req.SignupFormID)
	apply(&stored.SetupFormID, req.SetupFormID)
	apply(&stored.CampaignID, req.CampaignID)

	if err := h.store.PutStoredConfig(r.Context(), stored); err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(map[string]bool{"updated": true})
}
