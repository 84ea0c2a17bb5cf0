// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
// This enables clear observability in logs and metrics.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	// This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active clients keyed by connection id and routes
// outbound messages to individual connections. Session-level fan-out is the
// orchestrator's job; the hub only knows connections.
type Hub struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// onDisconnect is invoked on the hub goroutine after a client is removed,
	// so departures are observed exactly once per connection.
	onDisconnect func(connectionID string)
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// SetDisconnectHandler registers the callback invoked when a client
// disconnects. Must be called before RunWithContext.
func (h *Hub) SetDisconnectHandler(fn func(connectionID string)) {
	h.onDisconnect = fn
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled:
//  1. All connected clients are gracefully closed
//  2. The method returns ctx.Err()
//
// This allows the hub to be restarted by a supervisor without leaving
// orphaned connections.
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (blocking wait)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSClientsConnected.Set(float64(total))
	logging.Info().Str("connection_id", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	removed := false
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		close(client.send)
		removed = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !removed {
		return
	}

	metrics.WSClientsConnected.Set(float64(total))
	logging.Info().Str("connection_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")

	if h.onDisconnect != nil {
		h.onDisconnect(client.id)
	}
}

// logGracefulShutdown logs the shutdown with structured fields for
// observability. Context cancellation is expected behavior during graceful
// shutdown, so ctx.Err() is not logged as an error field.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	reason := getShutdownReason(ctx)
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// Send delivers a message to a single connection. Returns false when the
// connection is unknown or its send buffer is full; the caller decides
// whether that matters.
func (h *Hub) Send(connectionID string, msg Message) bool {
	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.send <- msg:
		return true
	default:
		logging.Warn().Str("connection_id", connectionID).Str("message_type", msg.Type).Msg("send buffer full, dropping message")
		return false
	}
}

// SendToMany delivers a message to each listed connection.
// DETERMINISM: recipients are sorted by connection id so delivery order is
// reproducible across runs.
func (h *Hub) SendToMany(connectionIDs []string, msg Message) {
	sorted := make([]string, len(connectionIDs))
	copy(sorted, connectionIDs)
	sort.Strings(sorted)

	for _, id := range sorted {
		h.Send(id, msg)
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAllClients gracefully closes all connected WebSocket clients.
// Called during shutdown to ensure clean termination.
// DETERMINISM: Closes clients in id order for consistent shutdown behavior.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		close(h.clients[id].send)
		delete(h.clients, id)
	}
	metrics.WSClientsConnected.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}
