// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/swab-program/mentorsync/internal/database"
	"github.com/swab-program/mentorsync/internal/models"
)

// ListMentors handles GET /api/v1/mentors.
// Query params: status, search, limit, offset.
func (h *Handler) ListMentors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, offset = h.clampPagination(limit, offset)

	status := q.Get("status")
	if status != "" && !slices.Contains(models.StatusCategories, status) {
		rw.BadRequest("invalid status: " + status)
		return
	}

	filter := models.MentorFilter{
		Status: status,
		Search: q.Get("search"),
		Limit:  limit + 1, // one extra row to detect a next page
		Offset: offset,
	}

	mentors, err := h.store.ListMentors(r.Context(), filter)
	if err != nil {
		rw.InternalError(err)
		return
	}

	hasMore := len(mentors) > limit
	if hasMore {
		mentors = mentors[:limit]
	}

	rw.SuccessWithPagination(mentors, &PaginationMeta{
		Count:   len(mentors),
		Offset:  offset,
		Limit:   limit,
		HasMore: hasMore,
	})
}

// GetMentor handles GET /api/v1/mentors/{mnID}.
func (h *Handler) GetMentor(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	mnID := chi.URLParam(r, "mnID")
	mentor, err := h.store.GetMentor(r.Context(), mnID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("mentor not found: " + mnID)
			return
		}
		rw.InternalError(err)
		return
	}

	rw.Success(mentor)
}

type mentorPatchRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,e164"`
	GBContactID *string `json:"gb_contact_id" validate:"omitempty,max=64"`
	GBMemberID  *string `json:"gb_member_id" validate:"omitempty,max=64"`
}

// UpdateMentor handles PATCH /api/v1/mentors/{mnID}. Only the fields
// present in the body change; the next ETL run may overwrite contact
// fields from the source systems.
func (h *Handler) UpdateMentor(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req mentorPatchRequest
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

	mnID := chi.URLParam(r, "mnID")
	mentor, err := h.store.UpdateMentor(r.Context(), mnID, models.MentorUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		GBContactID: req.GBContactID,
		GBMemberID:  req.GBMemberID,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("mentor not found: " + mnID)
			return
		}
		rw.InternalError(err)
		return
	}

	rw.Success(mentor)
}

// MentorStats handles GET /api/v1/mentors/stats.
func (h *Handler) MentorStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stats, err := h.store.MentorStats(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(stats)
}
