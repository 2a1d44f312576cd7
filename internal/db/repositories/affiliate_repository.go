package repositories

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/clubhouse/internal/constants"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"gorm.io/gorm"
)

type AffiliateRepository struct {
	db *gorm.DB
}

func NewAffiliateRepository(db *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

// FindPendingInvitation looks for the invitation a club sent to this email
func (r *AffiliateRepository) FindPendingInvitation(ctx context.Context, email, clubID string, userType constants.UserType) (*gormModels.Affiliate, error) {
	var aff gormModels.Affiliate
	err := conn(ctx, r.db).
		Where("email = ? AND club_id = ? AND type = ? AND status = ?", NormalizeEmail(email), clubID, userType, constants.AffiliateStatusPending).
		First(&aff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch affiliate invitation: %w", err)
	}
	return &aff, nil
}

// Upsert creates the affiliate for (email, club) or re-activates the existing one
func (r *AffiliateRepository) Upsert(ctx context.Context, aff *gormModels.Affiliate) error {
	db := conn(ctx, r.db)
	aff.Email = NormalizeEmail(aff.Email)

	var existing gormModels.Affiliate
	err := db.Where("email = ? AND club_id = ?", aff.Email, aff.ClubID).First(&existing).Error
	switch {
	case err == nil:
		aff.ID = existing.ID
		updates := map[string]interface{}{
			"user_id":  aff.UserID,
			"type":     aff.Type,
			"status":   aff.Status,
			"ref_code": aff.RefCode,
		}
		if err := db.Model(&gormModels.Affiliate{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update affiliate: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(aff).Error; err != nil {
			return fmt.Errorf("failed to create affiliate: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to fetch affiliate: %w", err)
	}
}

// FindActiveWithClub returns the user's ACTIVE affiliate that carries a club
func (r *AffiliateRepository) FindActiveWithClub(ctx context.Context, userID string) (*gormModels.Affiliate, error) {
	var aff gormModels.Affiliate
	err := conn(ctx, r.db).
		Where("user_id = ? AND status = ? AND club_id IS NOT NULL", userID, constants.AffiliateStatusActive).
		Order("updated_at DESC").
		First(&aff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active affiliate: %w", err)
	}
	return &aff, nil
}

// FindLatestByEmail returns the most recently touched affiliate for an address
func (r *AffiliateRepository) FindLatestByEmail(ctx context.Context, email string) (*gormModels.Affiliate, error) {
	var aff gormModels.Affiliate
	err := conn(ctx, r.db).
		Where("email = ?", NormalizeEmail(email)).
		Order("updated_at DESC").
		First(&aff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch affiliate by email: %w", err)
	}
	return &aff, nil
}
