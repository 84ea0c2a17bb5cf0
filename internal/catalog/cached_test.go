// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelmatch/reelmatch/internal/models"
)

// countingProvider is a Provider test double counting upstream calls.
type countingProvider struct {
	discoverCalls    int
	movieGenreCalls  int
	tvGenreCalls     int
	genreErr         error
	discoverResponse *models.SearchResponse
}

func (p *countingProvider) DiscoverMovies(_ context.Context, _ models.SessionOptions, _ int) (*models.SearchResponse, error) {
	p.discoverCalls++
	return p.discoverResponse, nil
}

func (p *countingProvider) MovieGenres(context.Context) ([]models.Genre, error) {
	p.movieGenreCalls++
	if p.genreErr != nil {
		return nil, p.genreErr
	}
	return []models.Genre{{ID: 28, Name: "Action"}}, nil
}

func (p *countingProvider) TVGenres(context.Context) ([]models.Genre, error) {
	p.tvGenreCalls++
	return []models.Genre{{ID: 10759, Name: "Action & Adventure"}}, nil
}

func (p *countingProvider) Ping(context.Context) error { return nil }

func TestCachedGenresSingleUpstreamCall(t *testing.T) {
	upstream := &countingProvider{}
	cp := NewCachedProvider(upstream, time.Hour)
	defer cp.Close()

	for i := 0; i < 3; i++ {
		genres, err := cp.MovieGenres(context.Background())
		if err != nil {
			t.Fatalf("MovieGenres failed: %v", err)
		}
		if len(genres) != 1 || genres[0].ID != 28 {
			t.Errorf("unexpected genres: %+v", genres)
		}
	}

	if upstream.movieGenreCalls != 1 {
		t.Errorf("upstream called %d times, want 1", upstream.movieGenreCalls)
	}
}

func TestCachedGenresSeparateKeys(t *testing.T) {
	upstream := &countingProvider{}
	cp := NewCachedProvider(upstream, time.Hour)
	defer cp.Close()

	if _, err := cp.MovieGenres(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := cp.TVGenres(context.Background()); err != nil {
		t.Fatal(err)
	}

	if upstream.movieGenreCalls != 1 || upstream.tvGenreCalls != 1 {
		t.Errorf("upstream calls = %d/%d, want 1/1", upstream.movieGenreCalls, upstream.tvGenreCalls)
	}
}

func TestCachedGenresErrorNotCached(t *testing.T) {
	upstream := &countingProvider{genreErr: errors.New("tmdb down")}
	cp := NewCachedProvider(upstream, time.Hour)
	defer cp.Close()

	if _, err := cp.MovieGenres(context.Background()); err == nil {
		t.Fatal("expected upstream error")
	}

	// Recovery: next call goes upstream again instead of serving the failure.
	upstream.genreErr = nil
	genres, err := cp.MovieGenres(context.Background())
	if err != nil {
		t.Fatalf("MovieGenres after recovery failed: %v", err)
	}
	if len(genres) != 1 {
		t.Errorf("unexpected genres: %+v", genres)
	}
	if upstream.movieGenreCalls != 2 {
		t.Errorf("upstream called %d times, want 2", upstream.movieGenreCalls)
	}
}

func TestDiscoverNeverCached(t *testing.T) {
	upstream := &countingProvider{
		discoverResponse: &models.SearchResponse{Page: 1, TotalPages: 1},
	}
	cp := NewCachedProvider(upstream, time.Hour)
	defer cp.Close()

	for i := 0; i < 3; i++ {
		if _, err := cp.DiscoverMovies(context.Background(), models.SessionOptions{}, 1); err != nil {
			t.Fatal(err)
		}
	}
	if upstream.discoverCalls != 3 {
		t.Errorf("discover called upstream %d times, want 3", upstream.discoverCalls)
	}
}
