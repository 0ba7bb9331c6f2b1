// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/holoauth/pkg/errutil"
)

// SweptTotal counts expired sessions removed by a Sweeper.
// Use RegisterMetrics to register this with a Prometheus registry.
var SweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "holoauth_sessions_swept_total",
	Help: "Total number of expired sessions removed",
})

// RegisterMetrics registers session metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SweptTotal)
}

// Sweeper periodically deletes expired sessions.
type Sweeper struct {
	store    ExpiredDeleter
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that runs every interval.
// A nil logger discards output.
func NewSweeper(store ExpiredDeleter, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run sweeps until ctx is cancelled. It always returns nil; sweep failures
// are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes expired sessions and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		errutil.LogError(ctx, s.logger, "session sweep failed", err)
		return 0
	}
	if n > 0 {
		SweptTotal.Add(float64(n))
		s.logger.DebugContext(ctx, "expired sessions removed", "count", n)
	}
	return n
}
