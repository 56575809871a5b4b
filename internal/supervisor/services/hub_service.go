// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package services

import (
	"context"
)

// HubRunner matches realtime.Hub's lifecycle method.
type HubRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the websocket hub under supervision.
type HubService struct {
	hub  HubRunner
	name string
}

// NewHubService creates the hub wrapper.
func NewHubService(hub HubRunner) *HubService {
	return &HubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer.
func (s *HubService) String() string {
	return s.name
}
