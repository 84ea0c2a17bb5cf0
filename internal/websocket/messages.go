// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/reelmatch/reelmatch/internal/models"
)

// Inbound message types (client to server)
const (
	MessageTypeCreateSession = "create_session"
	MessageTypeJoinSession   = "join_session"
	MessageTypeStartSwiping  = "start_swiping"
	MessageTypeSwipeMovie    = "swipe_movie"
	MessageTypeLeaveSession  = "leave_session"
	MessageTypePing          = "ping"
)

// Outbound message types (server to client)
const (
	MessageTypeSessionCreated    = "session_created"
	MessageTypeUserJoined        = "user_joined"
	MessageTypeUserLeft          = "user_left"
	MessageTypeReceiveMovie      = "receive_movie"
	MessageTypeNoMoreMovies      = "no_more_movies"
	MessageTypeMatchFound        = "match_found"
	MessageTypeSessionTerminated = "session_terminated"
	MessageTypeError             = "error"
	MessageTypePong              = "pong"
)

// Envelope is an inbound WebSocket message. The payload is decoded per type
// by the orchestrator.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound WebSocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// CreateSessionPayload carries the filter options for a new session.
type CreateSessionPayload struct {
	Options models.SessionOptions `json:"options"`
}

// JoinSessionPayload identifies the session to join.
type JoinSessionPayload struct {
	SessionID string `json:"session_id" validate:"required,uuid4"`
}

// SwipeMoviePayload is one swipe verdict on a movie.
type SwipeMoviePayload struct {
	MovieID int  `json:"movie_id" validate:"required,min=1"`
	Liked   bool `json:"liked"`
}

// SessionCreatedData acknowledges session creation to the host.
type SessionCreatedData struct {
	SessionID string `json:"session_id"`
}

// MembershipData reports a membership change to session members.
type MembershipData struct {
	SessionID    string `json:"session_id"`
	ConnectionID string `json:"connection_id"`
	MemberCount  int    `json:"member_count"`
}

// MatchFoundData announces a quorum match to all session members.
type MatchFoundData struct {
	MovieID int `json:"movie_id"`
}

// SessionTerminatedData tells members the session no longer exists.
type SessionTerminatedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// ErrorData is a structured error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarshalMessage converts an outbound message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
