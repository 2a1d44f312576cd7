package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"gorm.io/gorm"
)

// RefreshTokenRepository persists refresh-token hashes. Revoked rows are never
// returned by the finders.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *gormModels.RefreshToken) error {
	if err := conn(ctx, r.db).Create(token).Error; err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// FindActive returns the live row for (hash, user), nil, nil when it is missing,
// revoked or expired
func (r *RefreshTokenRepository) FindActive(ctx context.Context, tokenHash, userID string, now time.Time) (*gormModels.RefreshToken, error) {
	var token gormModels.RefreshToken
	err := conn(ctx, r.db).
		Where("token_hash = ? AND user_id = ? AND revoked = ? AND expires_at > ?", tokenHash, userID, false, now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch refresh token: %w", err)
	}
	return &token, nil
}

// Revoke marks a live row revoked. It reports false when another caller
// revoked it first.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string) (bool, error) {
	res := conn(ctx, r.db).Model(&gormModels.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteExpiredForUser removes the user's rows that expired before now
func (r *RefreshTokenRepository) DeleteExpiredForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := conn(ctx, r.db).
		Where("user_id = ? AND expires_at < ?", userID, now).
		Delete(&gormModels.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListActive returns live rows for the user, newest first
func (r *RefreshTokenRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]gormModels.RefreshToken, error) {
	var tokens []gormModels.RefreshToken
	err := conn(ctx, r.db).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	return tokens, nil
}

func (r *RefreshTokenRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).Where("id IN ?", ids).Delete(&gormModels.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteForUser removes every session of the user, or only the one with jti
func (r *RefreshTokenRepository) DeleteForUser(ctx context.Context, userID string, jti *string) (int64, error) {
	q := conn(ctx, r.db).Where("user_id = ?", userID)
	if jti != nil {
		q = q.Where("jti = ?", *jti)
	}
	res := q.Delete(&gormModels.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListBySession returns every row, live or revoked, of one session
func (r *RefreshTokenRepository) ListBySession(ctx context.Context, userID, jti string) ([]gormModels.RefreshToken, error) {
	var tokens []gormModels.RefreshToken
	err := conn(ctx, r.db).
		Where("user_id = ? AND jti = ?", userID, jti).
		Order("created_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list session tokens: %w", err)
	}
	return tokens, nil
}
