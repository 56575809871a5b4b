// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package services

import (
	"context"

	syncer "github.com/swab-program/mentorsync/internal/sync"
)

// EventSource matches sync.Manager's subscription surface.
type EventSource interface {
	Subscribe() (uint64, <-chan syncer.Event)
	Unsubscribe(id uint64)
}

// Broadcaster matches realtime.Hub's fan-out surface.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// EventBridgeService forwards sync progress events to websocket clients.
// SSE clients subscribe to the manager directly; this bridge covers the
// websocket side so both transports see the same stream.
type EventBridgeService struct {
	source EventSource
	hub    Broadcaster
	name   string
}

// NewEventBridgeService creates the bridge.
func NewEventBridgeService(source EventSource, hub Broadcaster) *EventBridgeService {
	return &EventBridgeService{source: source, hub: hub, name: "sync-event-bridge"}
}

// Serve implements suture.Service.
func (s *EventBridgeService) Serve(ctx context.Context) error {
	id, events := s.source.Subscribe()
	defer s.source.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, open := <-events:
			if !open {
				return nil
			}
			s.hub.BroadcastJSON("sync_progress", ev)
		}
	}
}

// String implements fmt.Stringer.
func (s *EventBridgeService) String() string {
	return s.name
}
