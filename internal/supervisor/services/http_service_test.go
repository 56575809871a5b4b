// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type mockServer struct {
	listenErr    error
	shutdownErr  error
	shutdownSeen atomic.Bool
	release      chan struct{}
}

func newMockServer() *mockServer {
	return &mockServer{release: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.release
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdownSeen.Store(true)
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !srv.shutdownSeen.Load() {
		t.Error("Shutdown was never called")
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	srv := newMockServer()
	srv.listenErr = errors.New("address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve() = %v, want wrapped listen error", err)
	}
}

func TestHTTPServiceShutdownFailure(t *testing.T) {
	srv := newMockServer()
	srv.shutdownErr = errors.New("shutdown deadline exceeded")
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil || !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve() = %v, want wrapped shutdown error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHTTPServiceString(t *testing.T) {
	svc := NewHTTPServerService(newMockServer(), 0)
	if got := svc.String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}
