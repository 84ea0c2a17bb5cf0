// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package services

import (
	"context"

	"github.com/reelmatch/reelmatch/internal/websocket"
)

// HubService wraps the websocket hub as a supervised service. The hub's
// RunWithContext already honors cancellation and closes all clients on the
// way out, so the wrapper is a thin adapter.
type HubService struct {
	hub *websocket.Hub
}

// NewHubService creates the wrapper.
func NewHubService(hub *websocket.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's log messages.
func (s *HubService) String() string {
	return "websocket-hub"
}
