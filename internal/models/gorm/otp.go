package gorm

import (
	"infinite-experiment/clubhouse/internal/constants"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OTP struct {
	ID          string              `gorm:"column:id;primaryKey;type:uuid"`
	Email       string              `gorm:"column:email;not null;index"`
	Type        constants.OTPType   `gorm:"column:type;type:varchar(32);not null"`
	UserID      *string             `gorm:"column:user_id;type:uuid;index"`
	CodeHash    string              `gorm:"column:code_hash;not null"`
	Status      constants.OTPStatus `gorm:"column:status;type:varchar(16);not null;default:'PENDING'"`
	Attempts    int                 `gorm:"column:attempts;not null;default:0"`
	MaxAttempts int                 `gorm:"column:max_attempts;not null;default:5"`
	ExpiresAt   time.Time           `gorm:"column:expires_at;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}

func (OTP) TableName() string {
	return "otps"
}

func (o *OTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table the service owns, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&PlayerProfile{},
		&CompanyProfile{},
		&ClubProfile{},
		&AdminProfile{},
		&Affiliate{},
		&RefreshToken{},
		&OTP{},
	}
}
