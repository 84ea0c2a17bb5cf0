// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package models contains the value types shared across the catalog client,
// the session engine and the websocket transport. All types are immutable
// once constructed and safe to share between goroutines.
package models

// Movie is a single catalog item as returned by the TMDB discover endpoint.
// The session engine treats it as opaque; only ID participates in matching.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	GenreIDs     []int   `json:"genre_ids"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	ReleaseDate  string  `json:"release_date,omitempty"`
}

// TvShow mirrors Movie for the TV discover endpoint.
type TvShow struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	GenreIDs     []int   `json:"genre_ids"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
}

// Genre is a TMDB genre descriptor, served by the genres API endpoints.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
