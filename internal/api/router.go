// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelmatch/reelmatch/internal/config"
	"github.com/reelmatch/reelmatch/internal/middleware"
)

// healthRateLimit is permissive so monitoring probes are never throttled.
const (
	healthRateLimit  = 1000
	healthRateWindow = time.Minute
)

// Router builds the HTTP routing tree.
type Router struct {
	handler  *Handler
	security config.SecurityConfig
}

// NewRouter creates a router around the given handler.
func NewRouter(handler *Handler, security config.SecurityConfig) *Router {
	return &Router{
		handler:  handler,
		security: security,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup configures all HTTP routes using Chi router.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack, applied to ALL routes in order
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)    // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer) // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.security.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints with permissive rate limiting for monitoring
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(healthRateLimit, healthRateWindow))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Core API endpoints
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.security.RateLimitReqs, router.security.RateLimitWindow))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/genres/movies", router.handler.MovieGenres)
		r.Get("/genres/tv", router.handler.TVGenres)
		r.Get("/stats", router.handler.Stats)
		r.Get("/ws", router.handler.WebSocket)
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
