// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	syncer "github.com/swab-program/mentorsync/internal/sync"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, sources ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sources)
	return r.err
}

func (r *recordingRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSchedulerStartupRunUsesAllSources(t *testing.T) {
	runner := &recordingRunner{}
	svc := NewSchedulerService(runner, 0, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for runner.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("startup run never happened")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.calls) != 1 || len(runner.calls[0]) != 1 || runner.calls[0][0] != "all" {
		t.Errorf("calls = %v, want one run with [all]", runner.calls)
	}
}

func TestSchedulerIntervalRuns(t *testing.T) {
	runner := &recordingRunner{}
	svc := NewSchedulerService(runner, 10*time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for runner.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d interval runs happened", runner.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}

	// Interval runs use the default source set, not "all".
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.calls[0]) != 0 {
		t.Errorf("interval run sources = %v, want none (default set)", runner.calls[0])
	}
}

func TestSchedulerToleratesBusyRuns(t *testing.T) {
	runner := &recordingRunner{err: syncer.ErrSyncAlreadyRunning}
	svc := NewSchedulerService(runner, 10*time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for runner.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("scheduler stopped ticking after a busy run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestEventBridgeForwardsEvents(t *testing.T) {
	events := make(chan syncer.Event, 4)
	source := &fakeEventSource{events: events}
	hub := &fakeBroadcaster{got: make(chan string, 4)}
	svc := NewEventBridgeService(source, hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	events <- syncer.Event{Type: "run_started"}

	select {
	case msgType := <-hub.got:
		if msgType != "sync_progress" {
			t.Errorf("broadcast type = %q", msgType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the hub")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if !source.unsubscribed {
		t.Error("bridge never unsubscribed")
	}
}

type fakeEventSource struct {
	events       chan syncer.Event
	unsubscribed bool
}

func (f *fakeEventSource) Subscribe() (uint64, <-chan syncer.Event) { return 7, f.events }
func (f *fakeEventSource) Unsubscribe(id uint64)                    { f.unsubscribed = true }

type fakeBroadcaster struct {
	got chan string
}

func (f *fakeBroadcaster) BroadcastJSON(messageType string, data interface{}) {
	f.got <- messageType
}
