// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelmatch/reelmatch/internal/config"
	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/session"
	"github.com/reelmatch/reelmatch/internal/websocket"
)

// stubProvider is a catalog.Provider double for handler tests.
type stubProvider struct {
	mu      sync.Mutex
	genres  []models.Genre
	movies  []models.Movie
	pingErr error
	err     error
}

// discoverMovie sets the single movie served by every discover page.
func (p *stubProvider) discoverMovie(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movies = []models.Movie{{ID: id, Title: "Stub Movie"}}
}

func (p *stubProvider) DiscoverMovies(_ context.Context, _ models.SessionOptions, page int) (*models.SearchResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &models.SearchResponse{Page: page, TotalPages: 1, Results: p.movies}, nil
}

func (p *stubProvider) MovieGenres(context.Context) ([]models.Genre, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.genres, nil
}

func (p *stubProvider) TVGenres(context.Context) ([]models.Genre, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.genres, nil
}

func (p *stubProvider) Ping(context.Context) error { return p.pingErr }

func testSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}
}

func testServer(t *testing.T, provider *stubProvider) (*httptest.Server, *websocket.Hub) {
	t.Helper()

	registry := session.NewRegistry(2)
	hub := websocket.NewHub()
	orchestrator := websocket.NewOrchestrator(registry, provider, hub, 2)
	hub.SetDisconnectHandler(orchestrator.HandleDisconnect)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	handler := NewHandler(provider, registry, hub, orchestrator, []string{"*"})
	srv := httptest.NewServer(NewRouter(handler, testSecurity()).Setup())
	t.Cleanup(srv.Close)
	return srv, hub
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestHealthLive(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{})

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if !body.Success {
		t.Error("expected success envelope")
	}
}

func TestHealthReady(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{})

	resp, err := http.Get(srv.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestHealthReadyUpstreamDown(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{pingErr: errors.New("unreachable")})

	resp, err := http.Get(srv.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body.Success || body.Error == nil || body.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("unexpected envelope: %+v", body)
	}
}

func TestMovieGenres(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{
		genres: []models.Genre{{ID: 28, Name: "Action"}},
	})

	resp, err := http.Get(srv.URL + "/api/v1/genres/movies")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeResponse(t, resp)
	if !body.Success {
		t.Fatal("expected success envelope")
	}
	raw, _ := json.Marshal(body.Data)
	var genres []models.Genre
	if err := json.Unmarshal(raw, &genres); err != nil {
		t.Fatal(err)
	}
	if len(genres) != 1 || genres[0].Name != "Action" {
		t.Errorf("unexpected genres: %+v", genres)
	}
}

func TestGenresUpstreamFailure(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{err: errors.New("tmdb down")})

	resp, err := http.Get(srv.URL + "/api/v1/genres/tv")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	body := decodeResponse(t, resp)
	if body.Error == nil || body.Error.Code != ErrCodeExternalServiceFail {
		t.Errorf("unexpected envelope: %+v", body)
	}
}

func TestStats(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{})

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeResponse(t, resp)
	if !body.Success {
		t.Fatal("expected success envelope")
	}

	raw, _ := json.Marshal(body.Data)
	var stats StatsData
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.ActiveSessions != 0 || stats.ConnectedClients != 0 {
		t.Errorf("fresh server stats = %+v, want zeros", stats)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{})

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := testServer(t, &stubProvider{})

	resp, err := http.Get(srv.URL + "/api/v1/nope")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
