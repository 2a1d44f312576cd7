package repositories

import (
	"context"
	"time"

	"infinite-experiment/clubhouse/internal/constants"

	"github.com/jmoiron/sqlx"
)

// TokenSweepRepo runs maintenance queries over refresh_tokens with sqlx
type TokenSweepRepo struct {
	db *sqlx.DB
}

func NewTokenSweepRepo(db *sqlx.DB) *TokenSweepRepo {
	return &TokenSweepRepo{db}
}

// DeleteExpired purges every refresh token that expired before now
func (r *TokenSweepRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(constants.DeleteExpiredRefreshTokens), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountActive counts live refresh tokens across all users
func (r *TokenSweepRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(constants.CountActiveRefreshTokens), now); err != nil {
		return 0, err
	}
	return n, nil
}
