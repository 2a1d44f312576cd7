package gorm

import (
	"infinite-experiment/clubhouse/internal/constants"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlayerProfile is shared by PLAYER and SUPPORTER accounts
type PlayerProfile struct {
	ID             string             `gorm:"column:id;primaryKey;type:uuid"`
	UserID         string             `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	UserType       constants.UserType `gorm:"column:user_type;type:varchar(16);not null"`
	Name           string             `gorm:"column:name"`
	Avatar         *string            `gorm:"column:avatar"`
	ClubID         *string            `gorm:"column:club_id;type:uuid;index"`
	OnboardingStep int                `gorm:"column:onboarding_step;default:0"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (PlayerProfile) TableName() string { return "player_profiles" }

func (p *PlayerProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type CompanyProfile struct {
	ID             string    `gorm:"column:id;primaryKey;type:uuid"`
	UserID         string    `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Name           string    `gorm:"column:name"`
	Avatar         *string   `gorm:"column:avatar"`
	OnboardingStep int       `gorm:"column:onboarding_step;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CompanyProfile) TableName() string { return "company_profiles" }

func (p *CompanyProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ClubProfile is created by the invitation flow before the club signs up.
// RefCode doubles as the club's referral code for everyone it invites.
type ClubProfile struct {
	ID             string    `gorm:"column:id;primaryKey;type:uuid"`
	UserID         string    `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Name           string    `gorm:"column:name"`
	Avatar         *string   `gorm:"column:avatar"`
	RefCode        string    `gorm:"column:ref_code;uniqueIndex;not null"`
	OnboardingStep int       `gorm:"column:onboarding_step;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ClubProfile) TableName() string { return "club_profiles" }

func (p *ClubProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type AdminProfile struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	UserID    string    `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Name      string    `gorm:"column:name"`
	Avatar    *string   `gorm:"column:avatar"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (AdminProfile) TableName() string { return "admin_profiles" }

func (p *AdminProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
