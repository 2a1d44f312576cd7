package repositories

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/clubhouse/internal/constants"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"gorm.io/gorm"
)

type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) Create(ctx context.Context, otp *gormModels.OTP) error {
	otp.Email = NormalizeEmail(otp.Email)
	if err := conn(ctx, r.db).Create(otp).Error; err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// RevokePending retires earlier unused codes of the same purpose
func (r *OTPRepository) RevokePending(ctx context.Context, email string, otpType constants.OTPType) error {
	err := conn(ctx, r.db).Model(&gormModels.OTP{}).
		Where("email = ? AND type = ? AND status = ?", NormalizeEmail(email), otpType, constants.OTPStatusPending).
		Update("status", constants.OTPStatusRevoked).Error
	if err != nil {
		return fmt.Errorf("failed to revoke pending otps: %w", err)
	}
	return nil
}

// FindLatestPending loads the newest PENDING code with its user, nil, nil when none
func (r *OTPRepository) FindLatestPending(ctx context.Context, email string, otpType constants.OTPType) (*gormModels.OTP, error) {
	var otp gormModels.OTP
	err := conn(ctx, r.db).
		Preload("User").
		Where("email = ? AND type = ? AND status = ?", NormalizeEmail(email), otpType, constants.OTPStatusPending).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch otp: %w", err)
	}
	return &otp, nil
}

func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string) error {
	err := conn(ctx, r.db).Model(&gormModels.OTP{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to count otp attempt: %w", err)
	}
	return nil
}

// Transition moves a code from one status to another. It reports false when
// the code was not in the expected status.
func (r *OTPRepository) Transition(ctx context.Context, id string, from, to constants.OTPStatus) (bool, error) {
	res := conn(ctx, r.db).Model(&gormModels.OTP{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update otp status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FindConsumedReset finds the reset code a verified reset token points at
func (r *OTPRepository) FindConsumedReset(ctx context.Context, id, userID string) (*gormModels.OTP, error) {
	var otp gormModels.OTP
	err := conn(ctx, r.db).
		Where("id = ? AND user_id = ? AND type = ? AND status = ?", id, userID, constants.OTPTypePasswordReset, constants.OTPStatusUsed).
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch reset otp: %w", err)
	}
	return &otp, nil
}
