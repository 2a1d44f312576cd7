package providers

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
	"infinite-experiment/clubhouse/internal/services"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultOTPTTL         = 10 * time.Minute
	DefaultOTPMaxAttempts = 5
	otpDigits             = 6
)

// OTPValidatorGORM stores hashed six-digit codes in the otps table. Issuing a
// code revokes every earlier pending code of the same purpose.
type OTPValidatorGORM struct {
	otps        *repositories.OTPRepository
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

var _ services.OTPValidator = (*OTPValidatorGORM)(nil)

func NewOTPValidatorGORM(otps *repositories.OTPRepository, ttl time.Duration) *OTPValidatorGORM {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPValidatorGORM{
		otps:        otps,
		ttl:         ttl,
		maxAttempts: DefaultOTPMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (v *OTPValidatorGORM) GenerateAndSave(ctx context.Context, email string, purpose constants.OTPType, userID *string) (string, error) {
	code, err := randomDigits(otpDigits)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}

	if err := v.otps.RevokePending(ctx, email, purpose); err != nil {
		return "", err
	}

	row := &gormModels.OTP{
		Email:       email,
		Type:        purpose,
		UserID:      userID,
		CodeHash:    string(hash),
		Status:      constants.OTPStatusPending,
		MaxAttempts: v.maxAttempts,
		ExpiresAt:   v.now().Add(v.ttl),
	}
	if err := v.otps.Create(ctx, row); err != nil {
		return "", err
	}
	return code, nil
}

// Verify consumes the newest pending code for (email, purpose). Wrong guesses
// count against the code; an exhausted or expired code is retired.
func (v *OTPValidatorGORM) Verify(ctx context.Context, email, code string, purpose constants.OTPType) (*services.OTPVerification, error) {
	row, err := v.otps.FindLatestPending(ctx, email, purpose)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, services.ErrInvalidOTP
	}

	if !v.now().Before(row.ExpiresAt) {
		if _, err := v.otps.Transition(ctx, row.ID, constants.OTPStatusPending, constants.OTPStatusExpired); err != nil {
			return nil, err
		}
		return nil, services.ErrInvalidOTP
	}
	if row.Attempts >= row.MaxAttempts {
		if _, err := v.otps.Transition(ctx, row.ID, constants.OTPStatusPending, constants.OTPStatusRevoked); err != nil {
			return nil, err
		}
		return nil, services.ErrInvalidOTP
	}

	if bcrypt.CompareHashAndPassword([]byte(row.CodeHash), []byte(code)) != nil {
		if err := v.otps.IncrementAttempts(ctx, row.ID); err != nil {
			return nil, err
		}
		logging.Debug("OTP mismatch", "otp_id", row.ID, "attempts", row.Attempts+1)
		return nil, services.ErrInvalidOTP
	}

	consumed, err := v.otps.Transition(ctx, row.ID, constants.OTPStatusPending, constants.OTPStatusUsed)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, services.ErrInvalidOTP
	}

	return &services.OTPVerification{
		ID:          row.ID,
		Email:       row.Email,
		Type:        row.Type,
		User:        row.User,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func randomDigits(n int) (string, error) {
	limit := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
