package services

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/metrics"
)

const DefaultMaxActiveRefreshTokens = 15

// TokenRetention bounds how many live refresh tokens a user may hold.
type TokenRetention struct {
	tokens    *repositories.RefreshTokenRepository
	maxActive int
	metrics   *metrics.MetricsRegistry
	now       func() time.Time
}

func NewTokenRetention(tokens *repositories.RefreshTokenRepository, maxActive int, m *metrics.MetricsRegistry) *TokenRetention {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveRefreshTokens
	}
	return &TokenRetention{
		tokens:    tokens,
		maxActive: maxActive,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Cleanup deletes the user's expired tokens, then evicts the oldest live ones
// beyond the cap.
func (r *TokenRetention) Cleanup(ctx context.Context, userID string) error {
	now := r.now()

	expired, err := r.tokens.DeleteExpiredForUser(ctx, userID, now)
	if err != nil {
		return err
	}

	active, err := r.tokens.ListActive(ctx, userID, now)
	if err != nil {
		return err
	}

	var evicted int64
	if len(active) > r.maxActive {
		ids := make([]string, 0, len(active)-r.maxActive)
		for _, t := range active[r.maxActive:] {
			ids = append(ids, t.ID)
		}
		evicted, err = r.tokens.DeleteByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to evict refresh tokens: %w", err)
		}
	}

	r.metrics.ObserveEvictions(expired + evicted)
	return nil
}

// scheduleCleanup hands a cleanup for userID to the background runner.
func scheduleCleanup(tasks TaskRunner, retention *TokenRetention, userID string) {
	if tasks == nil || retention == nil {
		return
	}
	tasks.Submit("token_cleanup", func(ctx context.Context) error {
		return retention.Cleanup(ctx, userID)
	})
}
