// ReelMatch - Realtime Group Movie Matching
// Copyright 2026 ReelMatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
)

// BreakerProvider wraps a Provider with circuit breaker protection so a
// degraded TMDB API fails fast instead of stacking up blocked sessions.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. The timing determines when to recover from failures,
// not data integrity; unit tests should exercise the wrapped provider
// directly.
type BreakerProvider struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[interface{}]
	name     string
}

// Ensure BreakerProvider implements Provider
var _ Provider = (*BreakerProvider)(nil)

// NewBreakerProvider wraps the given provider with a circuit breaker.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerProvider(provider Provider) *BreakerProvider {
	cbName := "tmdb-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerProvider{
		provider: provider,
		cb:       cb,
		name:     cbName,
	}
}

// execute wraps a TMDB API call with circuit breaker protection.
// Returns the result or an error if circuit is open or request fails.
func (bp *BreakerProvider) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bp.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bp.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bp.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bp.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// DiscoverMovies fetches a discover page with circuit breaker protection.
func (bp *BreakerProvider) DiscoverMovies(ctx context.Context, opts models.SessionOptions, page int) (*models.SearchResponse, error) {
	return castResult[*models.SearchResponse](bp.execute(func() (interface{}, error) {
		return bp.provider.DiscoverMovies(ctx, opts, page)
	}))
}

// MovieGenres retrieves movie genres with circuit breaker protection.
func (bp *BreakerProvider) MovieGenres(ctx context.Context) ([]models.Genre, error) {
	return castResult[[]models.Genre](bp.execute(func() (interface{}, error) {
		return bp.provider.MovieGenres(ctx)
	}))
}

// TVGenres retrieves TV genres with circuit breaker protection.
func (bp *BreakerProvider) TVGenres(ctx context.Context) ([]models.Genre, error) {
	return castResult[[]models.Genre](bp.execute(func() (interface{}, error) {
		return bp.provider.TVGenres(ctx)
	}))
}

// Ping verifies connectivity with circuit breaker protection.
func (bp *BreakerProvider) Ping(ctx context.Context) error {
	_, err := bp.execute(func() (interface{}, error) {
		return nil, bp.provider.Ping(ctx)
	})
	return err
}
