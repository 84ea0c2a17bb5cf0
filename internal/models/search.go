// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package models

// SearchResponse is one page of a paginated TMDB discover result.
type SearchResponse struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Movie `json:"results"`
}

// SessionOptions are the catalog filter criteria fixed at session creation.
// They are immutable for the session's lifetime.
type SessionOptions struct {
	IncludeAdult bool  `json:"include_adult"`
	StartYear    int   `json:"start_year" validate:"omitempty,min=1874"`
	EndYear      int   `json:"end_year" validate:"omitempty,min=1874,gtefield=StartYear"`
	GenreIDs     []int `json:"genre_ids" validate:"dive,min=1"`
}
