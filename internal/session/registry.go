// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/reelmatch/reelmatch/internal/models"
)

// Registry is the process-wide session table. It is constructed once at
// startup and passed by reference to the orchestrator; there is no implicit
// singleton. The registry enforces that a connection belongs to at most one
// session at any time.
type Registry struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	maxConnections int
}

// NewRegistry creates an empty registry. maxConnections is the membership cap
// applied to every session it creates.
func NewRegistry(maxConnections int) *Registry {
	return &Registry{
		sessions:       make(map[string]*Session),
		maxConnections: maxConnections,
	}
}

// Create allocates a session with a fresh id, the creator as host, and the
// creator atomically registered as the first member.
//
// Fails with ErrConflict when the creator already belongs to a session, and
// with ErrOperationFailed when the creator cannot be registered on the fresh
// session (cannot happen with a cap >= 1, but the invariant is checked).
func (r *Registry) Create(creatorConnectionID string, opts models.SessionOptions) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ContainsConnection(creatorConnectionID) {
			return nil, fmt.Errorf("%w: connection %s", ErrConflict, creatorConnectionID)
		}
	}

	s := New(uuid.New().String(), creatorConnectionID, opts, r.maxConnections)
	if !s.TryAddConnection(creatorConnectionID) {
		return nil, fmt.Errorf("%w: could not register host connection", ErrOperationFailed)
	}

	r.sessions[s.ID] = s
	return s, nil
}

// Get returns the session with the given id, or nil when absent.
func (r *Registry) Get(sessionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

// Remove deletes the session. Removing a nonexistent id is a no-op.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// GetByConnection returns the session the connection belongs to, or nil.
// At most one session may claim a connection; the Create and join paths
// enforce that invariant.
func (r *Registry) GetByConnection(connectionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.ContainsConnection(connectionID) {
			return s
		}
	}
	return nil
}

// Join atomically adds the connection to the session while holding the
// registry lock, preserving the one-session-per-connection invariant against
// concurrent joins to different sessions.
//
// Fails with ErrNotFound, ErrConflict or ErrSessionFull.
func (r *Registry) Join(sessionID, connectionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	for _, other := range r.sessions {
		if other.ContainsConnection(connectionID) {
			return nil, fmt.Errorf("%w: connection %s", ErrConflict, connectionID)
		}
	}

	if !s.TryAddConnection(connectionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionFull, sessionID)
	}
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
