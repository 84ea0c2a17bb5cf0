// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package api

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/session"
	"github.com/reelmatch/reelmatch/internal/websocket"
)

// readyTimeout bounds the upstream ping in the readiness probe.
const readyTimeout = 5 * time.Second

// Handler holds the dependencies for all HTTP endpoints.
type Handler struct {
	provider     catalog.Provider
	registry     *session.Registry
	hub          *websocket.Hub
	orchestrator *websocket.Orchestrator
	upgrader     gorillaws.Upgrader
}

// NewHandler creates a handler with the given dependencies. allowedOrigins
// controls the websocket origin check; a "*" entry allows any origin.
func NewHandler(provider catalog.Provider, registry *session.Registry, hub *websocket.Hub, orchestrator *websocket.Orchestrator, allowedOrigins []string) *Handler {
	return &Handler{
		provider:     provider,
		registry:     registry,
		hub:          hub,
		orchestrator: orchestrator,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker builds the websocket origin check from the configured CORS
// origins. Requests without an Origin header (non-browser clients) pass.
func originChecker(allowedOrigins []string) func(*http.Request) bool {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// HealthLive reports process liveness. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady reports readiness to serve. It verifies the TMDB API is
// reachable with a valid key.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.provider.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("readiness probe failed, tmdb unreachable")
		NewResponseWriter(w, r).ServiceUnavailable("catalog provider unreachable")
		return
	}

	WriteSuccess(w, r, map[string]string{"status": "ready"})
}

// MovieGenres serves the movie genre listing for the session setup screen.
func (h *Handler) MovieGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.provider.MovieGenres(r.Context())
	if err != nil {
		NewResponseWriter(w, r).ExternalServiceError("tmdb", err)
		return
	}
	WriteSuccess(w, r, genres)
}

// TVGenres serves the TV genre listing.
func (h *Handler) TVGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.provider.TVGenres(r.Context())
	if err != nil {
		NewResponseWriter(w, r).ExternalServiceError("tmdb", err)
		return
	}
	WriteSuccess(w, r, genres)
}

// StatsData is the payload for the server stats endpoint.
type StatsData struct {
	ActiveSessions   int `json:"active_sessions"`
	ConnectedClients int `json:"connected_clients"`
}

// Stats reports live server counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, StatsData{
		ActiveSessions:   h.registry.Len(),
		ConnectedClients: h.hub.GetClientCount(),
	})
}

// WebSocket upgrades the connection and hands it to the hub. Every accepted
// connection gets a fresh connection id and starts its read/write pumps.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, h.orchestrator)
	h.hub.Register <- client
	client.Start()
}
