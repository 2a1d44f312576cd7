package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"infinite-experiment/clubhouse/internal/constants"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"gorm.io/gorm"
)

type UserRepositoryGORM struct {
	db *gorm.DB
}

// NewUserRepositoryGORM creates a new GORM-based user repository
func NewUserRepositoryGORM(db *gorm.DB) *UserRepositoryGORM {
	return &UserRepositoryGORM{db: db}
}

// NormalizeEmail lowercases and trims an address before it is stored or compared
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail returns nil, nil when no user has the address
func (r *UserRepositoryGORM) FindByEmail(ctx context.Context, email string) (*gormModels.User, error) {
	var user gormModels.User

	err := conn(ctx, r.db).
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	return &user, nil
}

// FindByID returns nil, nil when the user does not exist
func (r *UserRepositoryGORM) FindByID(ctx context.Context, id string) (*gormModels.User, error) {
	var user gormModels.User

	err := conn(ctx, r.db).
		Where("id = ?", id).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryGORM) Create(ctx context.Context, user *gormModels.User) error {
	user.Email = NormalizeEmail(user.Email)
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ClaimInvitedClub fills in the pre-created club user and marks it ACTIVE
func (r *UserRepositoryGORM) ClaimInvitedClub(ctx context.Context, userID, name string, passwordHash *string, federated bool) error {
	updates := map[string]interface{}{
		"name":                name,
		"password_hash":       passwordHash,
		"status":              constants.UserStatusActive,
		"uses_federated_auth": federated,
	}
	res := conn(ctx, r.db).Model(&gormModels.User{}).
		Where("id = ? AND user_type = ? AND status = ?", userID, constants.UserTypeClub, constants.UserStatusPending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to claim club user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("club user %s is no longer pending", userID)
	}
	return nil
}

// Activate flips PENDING to ACTIVE. It reports false when the row was already active.
func (r *UserRepositoryGORM) Activate(ctx context.Context, userID string) (bool, error) {
	res := conn(ctx, r.db).Model(&gormModels.User{}).
		Where("id = ? AND status = ?", userID, constants.UserStatusPending).
		Update("status", constants.UserStatusActive)
	if res.Error != nil {
		return false, fmt.Errorf("failed to activate user: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdatePassword stores a new hash. When changedAt is non-nil it is recorded as
// password_changed_at, which invalidates refresh tokens issued before it.
func (r *UserRepositoryGORM) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt *time.Time) error {
	updates := map[string]interface{}{"password_hash": passwordHash}
	if changedAt != nil {
		updates["password_changed_at"] = *changedAt
	}
	res := conn(ctx, r.db).Model(&gormModels.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

// MarkFederated records that the account has signed in through the identity provider
func (r *UserRepositoryGORM) MarkFederated(ctx context.Context, userID string) error {
	err := conn(ctx, r.db).Model(&gormModels.User{}).
		Where("id = ?", userID).
		Update("uses_federated_auth", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark user federated: %w", err)
	}
	return nil
}
