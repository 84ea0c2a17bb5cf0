// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package session implements the concurrent matching engine: the session
// registry, per-connection delivery queues, the quorum match detector and the
// single-flight pagination fetch coordinator.
//
// All state is in-memory and process-local. Operations run on the caller's
// goroutine and are safe to interleave with any other operation on the same
// session. Two locks partition the state: mu guards membership, queues, likes
// and matches; fetchMu guards the pagination cursor and the in-flight fetch
// cycle. Neither lock is ever held while calling the catalog provider.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/reelmatch/reelmatch/internal/models"
)

// FetchFunc fetches one catalog page. It is supplied by the caller so the
// engine stays independent of the concrete provider.
type FetchFunc func(ctx context.Context, page int) (*models.SearchResponse, error)

// fetchCycle is the re-armable one-shot completion signal for a single page
// fetch. A fresh cycle is created when a fetch starts; done is closed exactly
// once when it finishes. enqueued is safe to read after done is closed.
type fetchCycle struct {
	done     chan struct{}
	enqueued bool
}

// Session is one multiplayer matching round with a fixed membership cap and
// shared filter options.
type Session struct {
	// ID is the opaque session identifier, immutable after creation.
	ID string

	// HostConnectionID identifies the connection that created the session.
	// Host departure terminates the session unconditionally.
	HostConnectionID string

	// Options are the catalog filter criteria, immutable for the session's
	// lifetime.
	Options models.SessionOptions

	maxConnections int

	mu      sync.Mutex
	conns   map[string]struct{}
	queues  map[string]*queue.Queue
	likes   map[int]map[string]struct{}
	matches map[int]struct{}

	fetchMu     sync.Mutex
	inFlight    *fetchCycle
	currentPage int
	totalPages  int
}

// New creates a session. The creator is NOT added; the Registry does that so
// creation and first membership are atomic with the one-session-per-connection
// check.
func New(id, hostConnectionID string, opts models.SessionOptions, maxConnections int) *Session {
	return &Session{
		ID:               id,
		HostConnectionID: hostConnectionID,
		Options:          opts,
		maxConnections:   maxConnections,
		conns:            make(map[string]struct{}),
		queues:           make(map[string]*queue.Queue),
		likes:            make(map[int]map[string]struct{}),
		matches:          make(map[int]struct{}),
	}
}

// TryAddConnection adds a connection and allocates its delivery queue.
// Returns false without mutation when the session is at capacity. Atomic with
// respect to concurrent adds and removes: two adds never both succeed for the
// last remaining slot.
func (s *Session) TryAddConnection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; ok {
		return true
	}
	if len(s.conns) >= s.maxConnections {
		return false
	}

	s.conns[id] = struct{}{}
	s.queues[id] = queue.New()
	return true
}

// TryRemoveConnection removes a connection and discards its queue.
// Returns whether the connection was a member.
func (s *Session) TryRemoveConnection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[id]; !ok {
		return false
	}
	delete(s.conns, id)
	delete(s.queues, id)
	return true
}

// ContainsConnection reports whether the connection is a member.
func (s *Session) ContainsConnection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[id]
	return ok
}

// MemberCount returns the current number of members.
func (s *Session) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Members returns a snapshot of the current member connection ids.
func (s *Session) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.conns))
	for id := range s.conns {
		members = append(members, id)
	}
	return members
}

// IsHost reports whether the connection created this session.
func (s *Session) IsHost(id string) bool {
	return s.HostConnectionID == id
}

// AddLike records a like for (movieID, connectionID) and reports whether this
// like completed a new match. The like insertion and the quorum check run in
// one critical section with the membership count, so membership changes can
// never produce a spurious match. Re-likes are idempotent; once a movie has
// matched it is never reported again.
func (s *Session) AddLike(movieID int, connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, matched := s.matches[movieID]; matched {
		return false
	}

	likers, ok := s.likes[movieID]
	if !ok {
		likers = make(map[string]struct{})
		s.likes[movieID] = likers
	}
	likers[connectionID] = struct{}{}

	if len(s.conns) > 0 && len(likers) == len(s.conns) {
		s.matches[movieID] = struct{}{}
		return true
	}
	return false
}

// MatchCount returns the number of matches recorded so far.
func (s *Session) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// Dequeue pops the head of the connection's queue, or nil when the queue is
// empty or the connection is not a member.
func (s *Session) Dequeue(connectionID string) *models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[connectionID]
	if !ok || q.Length() == 0 {
		return nil
	}
	m := q.Remove().(models.Movie)
	return &m
}

// QueueLen returns the connection's pending item count.
func (s *Session) QueueLen(connectionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[connectionID]; ok {
		return q.Length()
	}
	return 0
}

// fanOut appends every movie to every queue existing at enqueue time and
// returns whether anything was enqueued. Queues are independent buffers; a
// member joining later starts from the next fetched page.
func (s *Session) fanOut(movies []models.Movie) bool {
	if len(movies) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queues) == 0 {
		return false
	}
	for _, q := range s.queues {
		for _, m := range movies {
			q.Add(m)
		}
	}
	return true
}

// Pages returns the pagination cursor and the last-known page bound.
func (s *Session) Pages() (current, total int) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	return s.currentPage, s.totalPages
}

// Start performs the initial page-1 fetch through the single-flight section
// and fans the results to all current member queues. It returns the number of
// fetched items. Calling Start twice, or concurrently with an in-flight
// fetch, fails with ErrOperationFailed.
func (s *Session) Start(ctx context.Context, fetch FetchFunc) (int, error) {
	s.fetchMu.Lock()
	if s.currentPage != 0 || s.inFlight != nil {
		s.fetchMu.Unlock()
		return 0, fmt.Errorf("%w: session already started", ErrOperationFailed)
	}
	// Seed the bound so exactly one page-1 fetch passes the cursor gate;
	// the provider's real total replaces it below.
	s.totalPages = 1
	s.currentPage = 1
	cycle := &fetchCycle{done: make(chan struct{})}
	s.inFlight = cycle
	s.fetchMu.Unlock()

	resp, err := fetch(ctx, 1)
	s.finishFetch(cycle, resp, err)
	if err != nil {
		// Rewind so the host can retry the start after a provider failure.
		s.fetchMu.Lock()
		if s.inFlight == nil {
			s.currentPage = 0
			s.totalPages = 0
		}
		s.fetchMu.Unlock()
		return 0, err
	}
	return len(resp.Results), nil
}

// NextItem returns the next movie for the connection, fetching the next
// catalog page when the connection's queue is exhausted. It implements the
// single-flight contract:
//
//  1. A non-empty own queue is served immediately, no fetch.
//  2. If a fetch is in flight, the caller waits for its completion signal and
//     then serves from its own queue; a waiter never fetches.
//  3. Otherwise, if more pages exist, the caller marks the fetch in flight,
//     advances the cursor, and fetches outside the lock.
//  4. When no pages remain, (nil, nil) is returned.
//
// Fetch errors propagate to the initiating caller only; waiters observe an
// empty outcome. The coordinator never retries.
func (s *Session) NextItem(ctx context.Context, connectionID string, fetch FetchFunc) (*models.Movie, error) {
	if m := s.Dequeue(connectionID); m != nil {
		return m, nil
	}

	s.fetchMu.Lock()
	if cycle := s.inFlight; cycle != nil {
		s.fetchMu.Unlock()
		select {
		case <-cycle.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return s.Dequeue(connectionID), nil
	}

	if s.currentPage >= s.totalPages {
		s.fetchMu.Unlock()
		return nil, nil
	}

	s.currentPage++
	page := s.currentPage
	cycle := &fetchCycle{done: make(chan struct{})}
	s.inFlight = cycle
	s.fetchMu.Unlock()

	resp, err := fetch(ctx, page)
	s.finishFetch(cycle, resp, err)
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", page, err)
	}
	return s.Dequeue(connectionID), nil
}

// finishFetch fans out results, records the provider's page bound, clears the
// in-flight marker and fires the completion signal. It runs on every fetch
// outcome, including errors, so waiters are never stranded.
func (s *Session) finishFetch(cycle *fetchCycle, resp *models.SearchResponse, err error) {
	enqueued := false
	if err == nil && resp != nil {
		enqueued = s.fanOut(resp.Results)
	}

	s.fetchMu.Lock()
	if err == nil && resp != nil && resp.TotalPages > 0 {
		s.totalPages = resp.TotalPages
	}
	cycle.enqueued = enqueued
	s.inFlight = nil
	close(cycle.done)
	s.fetchMu.Unlock()
}
