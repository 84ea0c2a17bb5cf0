// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Command server runs the ReelMatch matching server: the websocket endpoint
// for swiping sessions, the genre/health HTTP API and the Prometheus scrape
// endpoint, all under a suture supervision tree.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reelmatch/reelmatch/internal/api"
	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/config"
	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/session"
	"github.com/reelmatch/reelmatch/internal/supervisor"
	"github.com/reelmatch/reelmatch/internal/supervisor/services"
	"github.com/reelmatch/reelmatch/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Int("session_cap", cfg.Session.MaxConnections).
		Msg("starting reelmatch server")

	// Catalog provider stack: raw TMDB client, circuit breaker, genre cache.
	tmdb := catalog.NewTMDBClient(&cfg.TMDB)
	provider := catalog.NewCachedProvider(catalog.NewBreakerProvider(tmdb), cfg.TMDB.GenreCacheTTL)
	defer provider.Close()

	registry := session.NewRegistry(cfg.Session.MaxConnections)
	hub := websocket.NewHub()
	orchestrator := websocket.NewOrchestrator(registry, provider, hub, cfg.Session.MinToStart)
	hub.SetDisconnectHandler(orchestrator.HandleDisconnect)

	handler := api.NewHandler(provider, registry, hub, orchestrator, cfg.Security.CORSOrigins)
	router := api.NewRouter(handler, cfg.Security)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, supervisor.DefaultTreeConfig().ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor tree stopped with error")
		os.Exit(1)
	}

	logging.Info().Msg("reelmatch server stopped")
}
