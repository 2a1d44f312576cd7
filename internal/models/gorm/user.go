package gorm

import (
	"infinite-experiment/clubhouse/internal/constants"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                string               `gorm:"column:id;primaryKey;type:uuid"`
	Email             string               `gorm:"column:email;uniqueIndex;not null"`
	Name              string               `gorm:"column:name"`
	PasswordHash      *string              `gorm:"column:password_hash"`
	UserType          constants.UserType   `gorm:"column:user_type;type:varchar(16);not null"`
	Status            constants.UserStatus `gorm:"column:status;type:varchar(16);not null;default:'PENDING'"`
	UsesFederatedAuth bool                 `gorm:"column:uses_federated_auth;default:false"`
	PasswordChangedAt *time.Time           `gorm:"column:password_changed_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsFederatedOnly reports whether the account has no local password to check.
func (u *User) IsFederatedOnly() bool {
	return u.UsesFederatedAuth && (u.PasswordHash == nil || *u.PasswordHash == "")
}

// HasPassword reports whether a local password hash is stored.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
