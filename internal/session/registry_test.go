// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/reelmatch/reelmatch/internal/models"
)

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry(2)

	s, err := r.Create("host", models.SessionOptions{IncludeAdult: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.ID == "" {
		t.Error("created session must have an id")
	}
	if !s.IsHost("host") {
		t.Error("creator must be the host")
	}
	if !s.ContainsConnection("host") {
		t.Error("creator must be registered as the first member")
	}
	if !s.Options.IncludeAdult {
		t.Error("session options not carried over")
	}
	if r.Len() != 1 {
		t.Errorf("registry len %d, want 1", r.Len())
	}
}

func TestRegistryCreateConflict(t *testing.T) {
	r := NewRegistry(2)

	if _, err := r.Create("host", models.SessionOptions{}); err != nil {
		t.Fatal(err)
	}
	_, err := r.Create("host", models.SessionOptions{})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("second Create by same connection = %v, want ErrConflict", err)
	}
	if r.Len() != 1 {
		t.Errorf("failed create must not leave a session behind, len %d", r.Len())
	}
}

func TestRegistryGetAbsent(t *testing.T) {
	r := NewRegistry(2)
	if s := r.Get("nope"); s != nil {
		t.Errorf("Get on unknown id = %v, want nil", s)
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry(2)
	s, _ := r.Create("host", models.SessionOptions{})

	r.Remove(s.ID)
	if r.Get(s.ID) != nil {
		t.Error("removed session still retrievable")
	}
	r.Remove(s.ID) // no-op
	if r.Len() != 0 {
		t.Errorf("registry len %d, want 0", r.Len())
	}
}

func TestRegistryGetByConnection(t *testing.T) {
	r := NewRegistry(2)
	s, _ := r.Create("host", models.SessionOptions{})

	if got := r.GetByConnection("host"); got != s {
		t.Errorf("GetByConnection = %v, want the host's session", got)
	}
	if got := r.GetByConnection("stranger"); got != nil {
		t.Errorf("GetByConnection for a stranger = %v, want nil", got)
	}
}

func TestRegistryJoin(t *testing.T) {
	r := NewRegistry(2)
	s, _ := r.Create("host", models.SessionOptions{})

	joined, err := r.Join(s.ID, "guest")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if joined != s {
		t.Error("Join returned a different session")
	}
	if s.MemberCount() != 2 {
		t.Errorf("member count %d, want 2", s.MemberCount())
	}
}

func TestRegistryJoinNotFound(t *testing.T) {
	r := NewRegistry(2)
	_, err := r.Join("missing", "guest")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Join on unknown id = %v, want ErrNotFound", err)
	}
}

func TestRegistryJoinConflict(t *testing.T) {
	r := NewRegistry(2)
	first, _ := r.Create("host1", models.SessionOptions{})
	second, _ := r.Create("host2", models.SessionOptions{})

	if _, err := r.Join(first.ID, "guest"); err != nil {
		t.Fatal(err)
	}
	_, err := r.Join(second.ID, "guest")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Join while a member elsewhere = %v, want ErrConflict", err)
	}
	if second.ContainsConnection("guest") {
		t.Error("failed Join must not mutate the target session")
	}
}

func TestRegistryJoinFull(t *testing.T) {
	r := NewRegistry(2)
	s, _ := r.Create("host", models.SessionOptions{})
	if _, err := r.Join(s.ID, "guest"); err != nil {
		t.Fatal(err)
	}

	_, err := r.Join(s.ID, "third")
	if !errors.Is(err, ErrSessionFull) {
		t.Errorf("Join at capacity = %v, want ErrSessionFull", err)
	}
}

// Concurrent joins by the same connection to different sessions admit at most
// one; the one-session-per-connection invariant holds under contention.
func TestRegistryJoinOneSessionPerConnection(t *testing.T) {
	for trial := 0; trial < 100; trial++ {
		r := NewRegistry(2)
		ids := make([]string, 4)
		for i := range ids {
			s, err := r.Create(fmt.Sprintf("host-%d", i), models.SessionOptions{})
			if err != nil {
				t.Fatal(err)
			}
			ids[i] = s.ID
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for _, id := range ids {
			wg.Add(1)
			go func(sessionID string) {
				defer wg.Done()
				if _, err := r.Join(sessionID, "guest"); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		if successes != 1 {
			t.Fatalf("trial %d: guest joined %d sessions, want exactly 1", trial, successes)
		}
	}
}
