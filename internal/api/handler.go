// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package api

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/swab-program/mentorsync/internal/config"
	"github.com/swab-program/mentorsync/internal/models"
	syncer "github.com/swab-program/mentorsync/internal/sync"
)

// Store is the persistence surface the handlers need. *database.DB
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	GetMentor(ctx context.Context, mnID string) (*models.Mentor, error)
	ListMentors(ctx context.Context, f models.MentorFilter) ([]models.Mentor, error)
	UpdateMentor(ctx context.Context, mnID string, upd models.MentorUpdate) (*models.Mentor, error)
	MentorStats(ctx context.Context) (*models.MentorStats, error)

	ListSyncRuns(ctx context.Context, source string, limit int) ([]models.SyncRun, error)
	ListMentorErrors(ctx context.Context, limit int) ([]models.MentorError, error)

	GetStoredConfig(ctx context.Context) (*models.StoredConfig, error)
	PutStoredConfig(ctx context.Context, c *models.StoredConfig) error

	ListGBImportRows(ctx context.Context) ([]models.GBImportRow, error)
	UpsertRawContact(ctx context.Context, c *models.RawContact) error
	StartSyncRun(ctx context.Context, source string) (string, error)
	FinishSyncRun(ctx context.Context, id, status string, fetched, upserted, skipped int, errMsg string) error
}

// SyncService is the sync-control surface the handlers need.
// *sync.Manager satisfies it.
type SyncService interface {
	Run(ctx context.Context, sources ...string) error
	IsRunning() bool
	Status(ctx context.Context) (*syncer.Status, error)
	Subscribe() (uint64, <-chan syncer.Event)
	Unsubscribe(id uint64)
	PushStatuses(ctx context.Context) (created, updated, failed int, err error)
}

// Handler holds the API handler dependencies.
type Handler struct {
	store    Store
	syncer   SyncService
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates the API handler set.
func NewHandler(store Store, s SyncService, cfg *config.Config) *Handler {
	return &Handler{
		store:    store,
		syncer:   s,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// clampPagination applies the configured page size defaults and caps.
func (h *Handler) clampPagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = h.cfg.API.DefaultPageSize
	}
	if limit > h.cfg.API.MaxPageSize {
		limit = h.cfg.API.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
