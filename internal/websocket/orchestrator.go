// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package websocket

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/session"
)

// Session termination reasons reported in session_terminated events.
const (
	TerminationReasonHostLeft = "host_left"
	TerminationReasonEmpty    = "empty"
)

// Sender delivers outbound messages to connections. The Hub implements it;
// tests substitute a recording double.
type Sender interface {
	Send(connectionID string, msg Message) bool
	SendToMany(connectionIDs []string, msg Message)
}

// Orchestrator translates inbound websocket commands into session engine
// operations and session engine outcomes into outbound events. It owns no
// session state itself; everything lives in the registry.
type Orchestrator struct {
	registry   *session.Registry
	provider   catalog.Provider
	sender     Sender
	validate   *validator.Validate
	minToStart int
}

// NewOrchestrator wires the command dispatcher to the session registry and
// the catalog provider.
func NewOrchestrator(registry *session.Registry, provider catalog.Provider, sender Sender, minToStart int) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		provider:   provider,
		sender:     sender,
		validate:   validator.New(),
		minToStart: minToStart,
	}
}

// HandleMessage dispatches one inbound message. Unknown types and malformed
// payloads produce an error event on the sending connection; they never
// affect session state.
func (o *Orchestrator) HandleMessage(ctx context.Context, connectionID string, env Envelope) {
	switch env.Type {
	case MessageTypeCreateSession:
		o.createSession(connectionID, env.Data)
	case MessageTypeJoinSession:
		o.joinSession(connectionID, env.Data)
	case MessageTypeStartSwiping:
		o.startSwiping(ctx, connectionID)
	case MessageTypeSwipeMovie:
		o.swipeMovie(ctx, connectionID, env.Data)
	case MessageTypeLeaveSession:
		o.leaveSession(connectionID)
	default:
		o.sendError(connectionID, "bad_request", "unknown message type: "+env.Type)
	}
}

// HandleDisconnect handles a connection dropping without an explicit leave.
// It applies the same departure semantics as leave_session.
func (o *Orchestrator) HandleDisconnect(connectionID string) {
	sess := o.registry.GetByConnection(connectionID)
	if sess == nil {
		return
	}
	o.depart(sess, connectionID)
}

func (o *Orchestrator) createSession(connectionID string, data json.RawMessage) {
	var payload CreateSessionPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			o.sendError(connectionID, "bad_request", "malformed create_session payload")
			return
		}
	}
	if err := o.validate.Struct(&payload.Options); err != nil {
		o.sendError(connectionID, "bad_request", "invalid session options: "+err.Error())
		return
	}

	sess, err := o.registry.Create(connectionID, payload.Options)
	if err != nil {
		o.sendMappedError(connectionID, err)
		return
	}

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Set(float64(o.registry.Len()))
	logging.Info().Str("session_id", sess.ID).Str("connection_id", connectionID).Msg("session created")

	o.sender.Send(connectionID, Message{
		Type: MessageTypeSessionCreated,
		Data: SessionCreatedData{SessionID: sess.ID},
	})
}

func (o *Orchestrator) joinSession(connectionID string, data json.RawMessage) {
	var payload JoinSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		o.sendError(connectionID, "bad_request", "malformed join_session payload")
		return
	}
	if err := o.validate.Struct(&payload); err != nil {
		o.sendError(connectionID, "bad_request", "invalid session id")
		return
	}

	sess, err := o.registry.Join(payload.SessionID, connectionID)
	if err != nil {
		o.sendMappedError(connectionID, err)
		return
	}

	logging.Info().Str("session_id", sess.ID).Str("connection_id", connectionID).Msg("connection joined session")

	o.sender.SendToMany(sess.Members(), Message{
		Type: MessageTypeUserJoined,
		Data: MembershipData{
			SessionID:    sess.ID,
			ConnectionID: connectionID,
			MemberCount:  sess.MemberCount(),
		},
	})
}

func (o *Orchestrator) startSwiping(ctx context.Context, connectionID string) {
	sess := o.registry.GetByConnection(connectionID)
	if sess == nil {
		o.sendError(connectionID, "not_found", "not in a session")
		return
	}
	if !sess.IsHost(connectionID) {
		o.sendError(connectionID, "forbidden", "only the host can start swiping")
		return
	}
	if sess.MemberCount() < o.minToStart {
		o.sendError(connectionID, "precondition_failed", "not enough members to start")
		return
	}

	count, err := sess.Start(ctx, o.fetchFor(sess))
	if err != nil {
		if errors.Is(err, session.ErrOperationFailed) {
			o.sendMappedError(connectionID, err)
			return
		}
		logging.Error().Err(err).Str("session_id", sess.ID).Msg("initial catalog fetch failed")
		o.sendError(connectionID, "dependency_failed", "could not fetch movies, try again")
		return
	}
	if count == 0 {
		o.sendError(connectionID, "precondition_failed", "no movies match the session filters")
		return
	}

	logging.Info().Str("session_id", sess.ID).Msg("swiping started")

	// Unicast the first movie to every member from its own queue.
	for _, member := range sess.Members() {
		o.deliverNext(ctx, sess, member)
	}
}

func (o *Orchestrator) swipeMovie(ctx context.Context, connectionID string, data json.RawMessage) {
	var payload SwipeMoviePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		o.sendError(connectionID, "bad_request", "malformed swipe_movie payload")
		return
	}
	if err := o.validate.Struct(&payload); err != nil {
		o.sendError(connectionID, "bad_request", "invalid swipe payload")
		return
	}

	sess := o.registry.GetByConnection(connectionID)
	if sess == nil {
		o.sendError(connectionID, "not_found", "not in a session")
		return
	}

	verdict := "dislike"
	if payload.Liked {
		verdict = "like"
	}
	metrics.SwipesTotal.WithLabelValues(verdict).Inc()

	if payload.Liked && sess.AddLike(payload.MovieID, connectionID) {
		metrics.MatchesTotal.Inc()
		logging.Info().Str("session_id", sess.ID).Int("movie_id", payload.MovieID).Msg("match found")

		o.sender.SendToMany(sess.Members(), Message{
			Type: MessageTypeMatchFound,
			Data: MatchFoundData{MovieID: payload.MovieID},
		})
	}

	o.deliverNext(ctx, sess, connectionID)
}

func (o *Orchestrator) leaveSession(connectionID string) {
	sess := o.registry.GetByConnection(connectionID)
	if sess == nil {
		o.sendError(connectionID, "not_found", "not in a session")
		return
	}
	o.depart(sess, connectionID)
}

// depart applies the departure semantics shared by leave_session and
// disconnects. Host departure tears the whole session down; any other
// departure shrinks the membership, and the last member out removes the
// session.
func (o *Orchestrator) depart(sess *session.Session, connectionID string) {
	if sess.IsHost(connectionID) {
		members := sess.Members()
		o.registry.Remove(sess.ID)
		for _, member := range members {
			sess.TryRemoveConnection(member)
		}

		metrics.SessionsTerminated.WithLabelValues(TerminationReasonHostLeft).Inc()
		metrics.SessionsActive.Set(float64(o.registry.Len()))
		logging.Info().Str("session_id", sess.ID).Msg("session terminated, host left")

		o.sender.SendToMany(members, Message{
			Type: MessageTypeSessionTerminated,
			Data: SessionTerminatedData{SessionID: sess.ID, Reason: TerminationReasonHostLeft},
		})
		return
	}

	sess.TryRemoveConnection(connectionID)
	logging.Info().Str("session_id", sess.ID).Str("connection_id", connectionID).Msg("connection left session")

	remaining := sess.Members()
	if len(remaining) == 0 {
		o.registry.Remove(sess.ID)
		metrics.SessionsTerminated.WithLabelValues(TerminationReasonEmpty).Inc()
		metrics.SessionsActive.Set(float64(o.registry.Len()))
		return
	}

	o.sender.SendToMany(remaining, Message{
		Type: MessageTypeUserLeft,
		Data: MembershipData{
			SessionID:    sess.ID,
			ConnectionID: connectionID,
			MemberCount:  len(remaining),
		},
	})
}

// deliverNext sends the connection's next movie, or no_more_movies when the
// catalog is exhausted. Fetch failures surface as an error event to this
// connection only.
func (o *Orchestrator) deliverNext(ctx context.Context, sess *session.Session, connectionID string) {
	movie, err := sess.NextItem(ctx, connectionID, o.fetchFor(sess))
	if err != nil {
		logging.Error().Err(err).Str("session_id", sess.ID).Str("connection_id", connectionID).Msg("catalog page fetch failed")
		o.sendError(connectionID, "dependency_failed", "could not fetch movies, try again")
		return
	}
	if movie == nil {
		o.sender.Send(connectionID, Message{Type: MessageTypeNoMoreMovies})
		return
	}

	o.sender.Send(connectionID, Message{
		Type: MessageTypeReceiveMovie,
		Data: movie,
	})
}

// fetchFor binds the session's filter options to the catalog provider.
func (o *Orchestrator) fetchFor(sess *session.Session) session.FetchFunc {
	return func(ctx context.Context, page int) (*models.SearchResponse, error) {
		return o.provider.DiscoverMovies(ctx, sess.Options, page)
	}
}

func (o *Orchestrator) sendError(connectionID, code, message string) {
	o.sender.Send(connectionID, Message{
		Type: MessageTypeError,
		Data: ErrorData{Code: code, Message: message},
	})
}

// sendMappedError converts a session engine error into a structured error
// event using the sentinel taxonomy.
func (o *Orchestrator) sendMappedError(connectionID string, err error) {
	code := "operation_failed"
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = "not_found"
	case errors.Is(err, session.ErrForbidden):
		code = "forbidden"
	case errors.Is(err, session.ErrConflict):
		code = "conflict"
	case errors.Is(err, session.ErrSessionFull):
		code = "session_full"
	case errors.Is(err, session.ErrPreconditionFailed):
		code = "precondition_failed"
	case errors.Is(err, session.ErrDependencyFailed):
		code = "dependency_failed"
	}
	o.sendError(connectionID, code, err.Error())
}
