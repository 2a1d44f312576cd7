package jobs

import (
	"context"
	"time"

	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/metrics"

	"github.com/jmoiron/sqlx"
)

// InitializeJobs initializes and starts all background jobs
func InitializeJobs(ctx context.Context, db *sqlx.DB, m *metrics.MetricsRegistry) *TokenSweepJob {
	sweep := NewTokenSweepJob(repositories.NewTokenSweepRepo(db), m)

	go sweep.RunScheduled(ctx, 1*time.Hour)

	return sweep
}
