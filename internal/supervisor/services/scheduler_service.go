// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/swab-program/mentorsync/internal/logging"
	syncer "github.com/swab-program/mentorsync/internal/sync"
)

// SyncRunner matches sync.Manager's run surface.
type SyncRunner interface {
	Run(ctx context.Context, sources ...string) error
}

// SchedulerService triggers sync runs on a fixed interval. When
// runOnStartup is set the first run includes every source (contacts
// included); interval runs use the default source set.
//
// A run already in progress (for example one started from the API) is
// skipped, not queued.
type SchedulerService struct {
	runner       SyncRunner
	interval     time.Duration
	runOnStartup bool
	name         string
}

// NewSchedulerService creates the periodic sync scheduler. An interval
// of zero disables interval runs; the service then only performs the
// startup run, if configured.
func NewSchedulerService(runner SyncRunner, interval time.Duration, runOnStartup bool) *SchedulerService {
	return &SchedulerService{
		runner:       runner,
		interval:     interval,
		runOnStartup: runOnStartup,
		name:         "sync-scheduler",
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	log := logging.WithComponent("scheduler")

	if s.runOnStartup {
		log.Info().Msg("running startup sync (all sources)")
		s.run(ctx, log, "all")
	}

	if s.interval <= 0 {
		log.Info().Msg("interval sync disabled, scheduler idle")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("sync scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx, log)
		}
	}
}

func (s *SchedulerService) run(ctx context.Context, log zerolog.Logger, sources ...string) {
	if err := s.runner.Run(ctx, sources...); err != nil {
		if errors.Is(err, syncer.ErrSyncAlreadyRunning) {
			log.Warn().Msg("scheduled sync skipped, a run is already in progress")
			return
		}
		log.Error().Err(err).Msg("scheduled sync failed")
	}
}

// String implements fmt.Stringer.
func (s *SchedulerService) String() string {
	return s.name
}
