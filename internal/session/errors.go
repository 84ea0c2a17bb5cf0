// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package session

import "errors"

// Error taxonomy for session operations. The orchestrator maps these onto
// websocket error events; the API layer maps them onto HTTP status codes.
var (
	// ErrNotFound indicates an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrForbidden indicates a non-host attempting a host-only action or a
	// connection acting on a session it is not a member of.
	ErrForbidden = errors.New("operation not permitted")

	// ErrConflict indicates a connection that already belongs to a session.
	ErrConflict = errors.New("connection already in a session")

	// ErrSessionFull indicates a join attempt against a session at capacity.
	ErrSessionFull = errors.New("session is full")

	// ErrPreconditionFailed indicates insufficient members to start swiping
	// or an empty first catalog page.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrOperationFailed indicates unexpected internal bookkeeping failure.
	ErrOperationFailed = errors.New("operation failed")

	// ErrDependencyFailed indicates an upstream catalog call failure.
	ErrDependencyFailed = errors.New("catalog provider failure")
)
