// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package config holds application configuration loaded from defaults, an
// optional YAML file and environment variables (Koanf v2, in that precedence
// order, env highest). Config is immutable after Load and safe for concurrent
// reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the ReelMatch server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Session  SessionConfig  `koanf:"session"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment variables: SERVER_HOST, SERVER_PORT, SERVER_TIMEOUT.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// TMDBConfig holds settings for the TMDB catalog provider.
//
// Environment variables: TMDB_API_KEY (required), TMDB_BASE_URL,
// TMDB_TIMEOUT, TMDB_RATE_LIMIT, TMDB_RATE_WINDOW, TMDB_GENRE_CACHE_TTL.
type TMDBConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit requests per RateWindow, enforced client-side.
	// TMDB's public limit is 40 requests per 10 seconds.
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`

	// GenreCacheTTL controls how long genre listings are cached.
	GenreCacheTTL time.Duration `koanf:"genre_cache_ttl"`
}

// SessionConfig holds the session engine limits.
//
// Environment variables: SESSION_MAX_CONNECTIONS, SESSION_MIN_TO_START.
type SessionConfig struct {
	// MaxConnections is the membership cap per session.
	MaxConnections int `koanf:"max_connections"`

	// MinToStart is the minimum member count required to start swiping.
	MinToStart int `koanf:"min_to_start"`
}

// SecurityConfig holds API rate limiting and CORS settings.
//
// Environment variables: SECURITY_RATE_LIMIT_REQS, SECURITY_RATE_LIMIT_WINDOW,
// SECURITY_CORS_ORIGINS (comma-separated).
type SecurityConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
//
// Environment variables: LOG_LEVEL, LOG_FORMAT, LOG_CALLER.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for required fields and malformed values.
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required (set TMDB_API_KEY)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Session.MaxConnections < 2 {
		return fmt.Errorf("session.max_connections must be at least 2, got %d", c.Session.MaxConnections)
	}
	if c.Session.MinToStart < 2 || c.Session.MinToStart > c.Session.MaxConnections {
		return fmt.Errorf("session.min_to_start must be in 2-%d, got %d",
			c.Session.MaxConnections, c.Session.MinToStart)
	}
	if c.TMDB.RateLimit < 1 {
		return fmt.Errorf("tmdb.rate_limit must be positive, got %d", c.TMDB.RateLimit)
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
	}
	return nil
}

// Addr returns the host:port listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
