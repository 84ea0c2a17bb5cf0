// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package catalog

import (
	"context"
	"time"

	"github.com/reelmatch/reelmatch/internal/cache"
	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
)

const (
	movieGenresKey = "genres:movie"
	tvGenresKey    = "genres:tv"
)

// CachedProvider is the outermost provider layer. It caches the genre
// listings, which change rarely, and records fetch metrics for every call
// that reaches upstream. Discover pages are never cached; each session
// consumes its pages exactly once.
type CachedProvider struct {
	provider Provider
	genres   *cache.Cache
}

// Ensure CachedProvider implements Provider
var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps the provider with a genre cache using the given TTL.
func NewCachedProvider(provider Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		genres:   cache.New(ttl),
	}
}

// DiscoverMovies fetches a discover page, recording call metrics.
func (cp *CachedProvider) DiscoverMovies(ctx context.Context, opts models.SessionOptions, page int) (*models.SearchResponse, error) {
	start := time.Now()
	resp, err := cp.provider.DiscoverMovies(ctx, opts, page)
	metrics.RecordCatalogFetch("discover", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	logging.Debug().
		Int("page", resp.Page).
		Int("total_pages", resp.TotalPages).
		Int("results", len(resp.Results)).
		Msg("Fetched discover page")
	return resp, nil
}

// MovieGenres returns the movie genre listing, served from cache when fresh.
func (cp *CachedProvider) MovieGenres(ctx context.Context) ([]models.Genre, error) {
	return cp.cachedGenres(ctx, movieGenresKey, cp.provider.MovieGenres)
}

// TVGenres returns the TV genre listing, served from cache when fresh.
func (cp *CachedProvider) TVGenres(ctx context.Context) ([]models.Genre, error) {
	return cp.cachedGenres(ctx, tvGenresKey, cp.provider.TVGenres)
}

func (cp *CachedProvider) cachedGenres(ctx context.Context, key string, fetch func(context.Context) ([]models.Genre, error)) ([]models.Genre, error) {
	if cached, ok := cp.genres.Get(key); ok {
		return cached.([]models.Genre), nil
	}

	start := time.Now()
	genres, err := fetch(ctx)
	metrics.RecordCatalogFetch("genres", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	cp.genres.Set(key, genres)
	logging.Debug().Str("key", key).Int("count", len(genres)).Msg("Cached genre listing")
	return genres, nil
}

// Ping delegates to the wrapped provider.
func (cp *CachedProvider) Ping(ctx context.Context) error {
	return cp.provider.Ping(ctx)
}

// Close releases the genre cache's background resources.
func (cp *CachedProvider) Close() {
	cp.genres.Close()
}
