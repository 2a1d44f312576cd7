package constants

import (
	"database/sql/driver"
	"fmt"
)

// UserType is the account role chosen at signup
type UserType string

const (
	UserTypePlayer    UserType = "PLAYER"
	UserTypeSupporter UserType = "SUPPORTER"
	UserTypeCompany   UserType = "COMPANY"
	UserTypeClub      UserType = "CLUB"
	UserTypeAdmin     UserType = "ADMIN"
)

// UserStatus tracks activation. PENDING -> ACTIVE happens once and never reverts.
type UserStatus string

const (
	UserStatusPending UserStatus = "PENDING"
	UserStatusActive  UserStatus = "ACTIVE"
)

// AffiliateStatus mirrors UserStatus for referral links
type AffiliateStatus string

const (
	AffiliateStatusPending AffiliateStatus = "PENDING"
	AffiliateStatusActive  AffiliateStatus = "ACTIVE"
)

// OTPType is the purpose a one-time code was issued for
type OTPType string

const (
	OTPTypeEmailVerification OTPType = "EMAIL_VERIFICATION"
	OTPTypePasswordReset     OTPType = "PASSWORD_RESET"
)

// OTPStatus is the consumption state of a one-time code
type OTPStatus string

const (
	OTPStatusPending OTPStatus = "PENDING"
	OTPStatusUsed    OTPStatus = "USED"
	OTPStatusRevoked OTPStatus = "REVOKED"
	OTPStatusExpired OTPStatus = "EXPIRED"
)

func (t UserType) String() string { return string(t) }

// IsValid reports whether t is one of the known account roles.
func (t UserType) IsValid() bool {
	switch t {
	case UserTypePlayer, UserTypeSupporter, UserTypeCompany, UserTypeClub, UserTypeAdmin:
		return true
	}
	return false
}

// IsValid reports whether t is a known OTP purpose.
func (t OTPType) IsValid() bool {
	return t == OTPTypeEmailVerification || t == OTPTypePasswordReset
}

/* ---------- DB adapters so sqlx (or database/sql) scans/values cleanly ---------- */

// Scan implements the sql.Scanner interface
func (t *UserType) Scan(src interface{}) error {
	if src == nil {
		*t = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*t = UserType(v)
	case []byte:
		*t = UserType(v)
	default:
		return fmt.Errorf("UserType: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (t UserType) Value() (driver.Value, error) { return string(t), nil }
