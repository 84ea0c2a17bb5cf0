// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func runHub(t *testing.T, hub *Hub) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	return cancel, done
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	cancel, done := runHub(t, hub)
	defer cancel()

	a := NewClient(hub, nil, nil)
	b := NewClient(hub, nil, nil)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "clients not registered")

	hub.Unregister <- a
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client not unregistered")

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not shut down")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("clients remain after shutdown: %d", hub.GetClientCount())
	}
}

func TestHubSendUnicast(t *testing.T) {
	hub := NewHub()
	cancel, _ := runHub(t, hub)
	defer cancel()

	a := NewClient(hub, nil, nil)
	b := NewClient(hub, nil, nil)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "clients not registered")

	if !hub.Send(a.ID(), Message{Type: MessageTypePong}) {
		t.Fatal("Send to a known connection returned false")
	}

	select {
	case msg := <-a.send:
		if msg.Type != MessageTypePong {
			t.Errorf("message type = %q, want pong", msg.Type)
		}
	default:
		t.Error("message not queued on target client")
	}

	select {
	case msg := <-b.send:
		t.Errorf("unicast leaked to another client: %v", msg)
	default:
	}
}

func TestHubSendUnknownConnection(t *testing.T) {
	hub := NewHub()
	if hub.Send("nobody", Message{Type: MessageTypePong}) {
		t.Error("Send to unknown connection returned true")
	}
}

func TestHubSendToMany(t *testing.T) {
	hub := NewHub()
	cancel, _ := runHub(t, hub)
	defer cancel()

	a := NewClient(hub, nil, nil)
	b := NewClient(hub, nil, nil)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "clients not registered")

	hub.SendToMany([]string{a.ID(), b.ID(), "ghost"}, Message{Type: MessageTypeNoMoreMovies})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeNoMoreMovies {
				t.Errorf("message type = %q, want no_more_movies", msg.Type)
			}
		default:
			t.Error("client did not receive the group message")
		}
	}
}

func TestHubDisconnectCallback(t *testing.T) {
	hub := NewHub()

	var mu sync.Mutex
	var disconnected []string
	hub.SetDisconnectHandler(func(id string) {
		mu.Lock()
		disconnected = append(disconnected, id)
		mu.Unlock()
	})

	cancel, _ := runHub(t, hub)
	defer cancel()

	a := NewClient(hub, nil, nil)
	hub.Register <- a
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client not registered")

	hub.Unregister <- a
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(disconnected) == 1 && disconnected[0] == a.ID()
	}, "disconnect callback not invoked")

	// A second unregister for the same client must not fire the callback again.
	hub.Unregister <- a
	waitFor(t, func() bool { return hub.GetClientCount() == 0 }, "hub not settled")
	mu.Lock()
	calls := len(disconnected)
	mu.Unlock()
	if calls != 1 {
		t.Errorf("disconnect callback fired %d times, want 1", calls)
	}
}
