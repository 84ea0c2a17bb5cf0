// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

/*
tmdb.go - TMDB REST API Client

This file implements a REST API client for The Movie Database (TMDB).
It provides paginated movie discovery with session filter criteria and
the movie/TV genre listings.

API Reference: https://developer.themoviedb.org/reference/intro/getting-started
*/

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/reelmatch/reelmatch/internal/config"
	"github.com/reelmatch/reelmatch/internal/models"
)

// Provider defines the catalog operations the session engine and the HTTP API
// depend on. TMDBClient, CachedProvider and BreakerProvider all implement it.
type Provider interface {
	DiscoverMovies(ctx context.Context, opts models.SessionOptions, page int) (*models.SearchResponse, error)
	MovieGenres(ctx context.Context) ([]models.Genre, error)
	TVGenres(ctx context.Context) ([]models.Genre, error)
	Ping(ctx context.Context) error
}

// Ensure TMDBClient implements Provider
var _ Provider = (*TMDBClient)(nil)

// TMDBClient provides access to the TMDB REST API. All requests pass through
// a client-side rate limiter sized to TMDB's published limit (40 requests per
// 10 seconds) so a burst of sessions cannot trip upstream throttling.
type TMDBClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// genreList is the wire shape of the TMDB genre list endpoints.
type genreList struct {
	Genres []models.Genre `json:"genres"`
}

// NewTMDBClient creates a new TMDB API client.
//
// Parameters:
//   - cfg: TMDB settings (API key, base URL, timeout, rate limit)
func NewTMDBClient(cfg *config.TMDBConfig) *TMDBClient {
	// Normalize URL (remove trailing slash)
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	interval := cfg.RateWindow / time.Duration(cfg.RateLimit)
	return &TMDBClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(interval), cfg.RateLimit),
	}
}

// DiscoverMovies fetches one page of movies matching the session's filter
// criteria, sorted by popularity.
//
// The filters map to TMDB discover parameters:
//   - IncludeAdult -> include_adult
//   - StartYear    -> primary_release_date.gte (Jan 1 of that year)
//   - EndYear      -> primary_release_date.lte (Dec 31 of that year)
//   - GenreIDs     -> with_genres, pipe-separated (OR semantics)
func (c *TMDBClient) DiscoverMovies(ctx context.Context, opts models.SessionOptions, page int) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", strconv.FormatBool(opts.IncludeAdult))
	if opts.StartYear > 0 {
		params.Set("primary_release_date.gte", fmt.Sprintf("%d-01-01", opts.StartYear))
	}
	if opts.EndYear > 0 {
		params.Set("primary_release_date.lte", fmt.Sprintf("%d-12-31", opts.EndYear))
	}
	if len(opts.GenreIDs) > 0 {
		ids := make([]string, len(opts.GenreIDs))
		for i, id := range opts.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, "|"))
	}

	resp, err := c.doRequest(ctx, "/discover/movie", params)
	if err != nil {
		return nil, fmt.Errorf("tmdb discover request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("tmdb discover", resp)
	}

	var result models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb discover response: %w", err)
	}

	return &result, nil
}

// MovieGenres retrieves the movie genre listing.
func (c *TMDBClient) MovieGenres(ctx context.Context) ([]models.Genre, error) {
	return c.genres(ctx, "/genre/movie/list")
}

// TVGenres retrieves the TV genre listing.
func (c *TMDBClient) TVGenres(ctx context.Context) ([]models.Genre, error) {
	return c.genres(ctx, "/genre/tv/list")
}

func (c *TMDBClient) genres(ctx context.Context, endpoint string) ([]models.Genre, error) {
	resp, err := c.doRequest(ctx, endpoint, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("tmdb genres request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("tmdb genres", resp)
	}

	var list genreList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb genres response: %w", err)
	}

	return list.Genres, nil
}

// Ping tests connectivity and API key validity against the configuration
// endpoint, the cheapest authenticated TMDB call.
func (c *TMDBClient) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "/configuration", url.Values{})
	if err != nil {
		return fmt.Errorf("tmdb ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb ping returned status %d", resp.StatusCode)
	}

	return nil
}

// doRequest performs an authenticated GET, blocking on the rate limiter first.
func (c *TMDBClient) doRequest(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// statusError builds an error from a non-200 response, including the body
// when it can be read. The API key is never part of the message.
func statusError(operation string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body)", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, string(body))
}
