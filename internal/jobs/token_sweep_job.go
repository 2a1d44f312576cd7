package jobs

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
)

// TokenStore is the maintenance surface of the refresh token table
type TokenStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

// TokenSweepJob purges expired refresh tokens for every user. Per-user
// retention runs after each sign-in; this catches users who never return.
type TokenSweepJob struct {
	store   TokenStore
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

func NewTokenSweepJob(store TokenStore, m *metrics.MetricsRegistry) *TokenSweepJob {
	return &TokenSweepJob{
		store:   store,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run deletes expired rows and refreshes the live token gauge.
func (j *TokenSweepJob) Run(ctx context.Context) error {
	start := time.Now()
	now := j.now()

	deleted, err := j.store.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	active, err := j.store.CountActive(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to count refresh tokens: %w", err)
	}

	j.metrics.ObserveEvictions(deleted)
	j.metrics.SetActiveRefreshTokens(active)

	logging.Info("Refresh token sweep finished",
		"deleted", deleted,
		"active", active,
		"duration", time.Since(start).String(),
	)
	return nil
}

// RunScheduled runs the sweep at start and then every interval until ctx ends
func (j *TokenSweepJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := j.Run(ctx); err != nil {
		logging.Error("Token sweep failed", "error", err.Error())
	}

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				logging.Error("Token sweep failed", "error", err.Error())
			}
		case <-ctx.Done():
			logging.Info("Token sweep shutting down")
			return
		}
	}
}
