// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package realtime pushes sync progress and stats updates to dashboard
// websocket clients.
package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/swab-program/mentorsync/internal/logging"
	"github.com/swab-program/mentorsync/internal/metrics"
)

// Message types pushed to dashboard clients.
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeSyncProgress = "sync_progress"
	MessageTypeStatsUpdate  = "stats_update"
)

// Message is one websocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to
// them. Register/unregister are prioritized over broadcasts so client
// state is consistent before messages flow.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client disconnected")
}

// RunWithContext runs the hub until the context is canceled, then closes
// every client and returns ctx.Err(). Designed for suture supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Lifecycle events take priority over broadcasts.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	metrics.WSConnections.Set(0)
	logging.Info().
		Str("component", "realtime-hub").
		Int("clients_closed", count).
		Msg("realtime hub stopped")
}

// broadcastToClients fans a message out to every client in id order.
// Clients with a full send buffer are dropped rather than blocking the
// hub loop.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastJSON queues a message for all connected clients. Drops the
// message when the broadcast buffer is full.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
