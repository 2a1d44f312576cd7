package gorm

import (
	"infinite-experiment/clubhouse/internal/constants"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Affiliate links a non-club user to the club whose referral code they used.
// (email, club_id) is the upsert key.
type Affiliate struct {
	ID        string                    `gorm:"column:id;primaryKey;type:uuid"`
	Email     string                    `gorm:"column:email;not null;uniqueIndex:idx_affiliate_email_club"`
	UserID    *string                   `gorm:"column:user_id;type:uuid;index"`
	ClubID    *string                   `gorm:"column:club_id;type:uuid;uniqueIndex:idx_affiliate_email_club"`
	Type      constants.UserType        `gorm:"column:type;type:varchar(16);not null"`
	Status    constants.AffiliateStatus `gorm:"column:status;type:varchar(16);not null;default:'PENDING'"`
	RefCode   string                    `gorm:"column:ref_code"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (Affiliate) TableName() string {
	return "affiliates"
}

func (a *Affiliate) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
