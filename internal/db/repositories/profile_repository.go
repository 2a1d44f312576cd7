package repositories

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/clubhouse/internal/constants"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"

	"gorm.io/gorm"
)

// ProfileRecord is the part of every profile variant the auth flows need
type ProfileRecord struct {
	ID             string
	UserID         string
	Name           string
	Avatar         *string
	ClubID         *string
	OnboardingStep int
}

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) CreatePlayer(ctx context.Context, p *gormModels.PlayerProfile) error {
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create player profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) CreateCompany(ctx context.Context, p *gormModels.CompanyProfile) error {
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create company profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) CreateAdmin(ctx context.Context, p *gormModels.AdminProfile) error {
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create admin profile: %w", err)
	}
	return nil
}

// FindClubByUserID returns nil, nil when the invitation flow left no profile
func (r *ProfileRepository) FindClubByUserID(ctx context.Context, userID string) (*gormModels.ClubProfile, error) {
	var club gormModels.ClubProfile
	err := conn(ctx, r.db).Where("user_id = ?", userID).First(&club).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch club profile: %w", err)
	}
	return &club, nil
}

// FindClubByRefCode resolves a referral code to its club, nil, nil when unknown
func (r *ProfileRepository) FindClubByRefCode(ctx context.Context, refCode string) (*gormModels.ClubProfile, error) {
	var club gormModels.ClubProfile
	err := conn(ctx, r.db).Where("ref_code = ?", refCode).First(&club).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch club by ref code: %w", err)
	}
	return &club, nil
}

// UpdateClub claims an invited club profile at signup
func (r *ProfileRepository) UpdateClub(ctx context.Context, clubID string, name string, avatar *string) error {
	updates := map[string]interface{}{"name": name}
	if avatar != nil {
		updates["avatar"] = *avatar
	}
	err := conn(ctx, r.db).Model(&gormModels.ClubProfile{}).Where("id = ?", clubID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update club profile: %w", err)
	}
	return nil
}

// SetPlayerClub copies an affiliate's club onto the player profile
func (r *ProfileRepository) SetPlayerClub(ctx context.Context, userID, clubID string) error {
	err := conn(ctx, r.db).Model(&gormModels.PlayerProfile{}).
		Where("user_id = ?", userID).
		Update("club_id", clubID).Error
	if err != nil {
		return fmt.Errorf("failed to set player club: %w", err)
	}
	return nil
}

// FindByUser loads the profile matching the user's type, nil, nil when absent
func (r *ProfileRepository) FindByUser(ctx context.Context, userID string, userType constants.UserType) (*ProfileRecord, error) {
	db := conn(ctx, r.db)
	var err error
	rec := &ProfileRecord{}

	switch userType {
	case constants.UserTypePlayer, constants.UserTypeSupporter:
		var p gormModels.PlayerProfile
		if err = db.Where("user_id = ?", userID).First(&p).Error; err == nil {
			*rec = ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar, ClubID: p.ClubID, OnboardingStep: p.OnboardingStep}
		}
	case constants.UserTypeCompany:
		var p gormModels.CompanyProfile
		if err = db.Where("user_id = ?", userID).First(&p).Error; err == nil {
			*rec = ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar, OnboardingStep: p.OnboardingStep}
		}
	case constants.UserTypeClub:
		var p gormModels.ClubProfile
		if err = db.Where("user_id = ?", userID).First(&p).Error; err == nil {
			*rec = ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar, ClubID: &p.ID, OnboardingStep: p.OnboardingStep}
		}
	case constants.UserTypeAdmin:
		var p gormModels.AdminProfile
		if err = db.Where("user_id = ?", userID).First(&p).Error; err == nil {
			*rec = ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar}
		}
	default:
		return nil, fmt.Errorf("unknown user type %q", userType)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch %s profile: %w", userType, err)
	}
	return rec, nil
}
