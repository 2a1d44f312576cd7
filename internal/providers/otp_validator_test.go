package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
	"infinite-experiment/clubhouse/internal/services"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup test database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func newTestValidator(t *testing.T) (*OTPValidatorGORM, *gorm.DB, *gormModels.User) {
	t.Helper()
	db := setupTestDB(t)
	user := &gormModels.User{Email: "p@x.com", UserType: constants.UserTypePlayer, Status: constants.UserStatusPending}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return NewOTPValidatorGORM(repositories.NewOTPRepository(db), 0), db, user
}

func TestOTPValidator_GenerateAndVerify(t *testing.T) {
	v, db, user := newTestValidator(t)
	ctx := context.Background()

	code, err := v.GenerateAndSave(ctx, "p@x.com", constants.OTPTypeEmailVerification, &user.ID)
	if err != nil {
		t.Fatalf("GenerateAndSave failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("Expected a 6 digit code, got %q", code)
	}

	var row gormModels.OTP
	db.First(&row)
	if row.CodeHash == code {
		t.Error("Code must not be stored in clear")
	}

	res, err := v.Verify(ctx, "P@x.com", code, constants.OTPTypeEmailVerification)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.User == nil || res.User.ID != user.ID {
		t.Errorf("Expected the user to be loaded, got %+v", res.User)
	}

	db.First(&row, "id = ?", res.ID)
	if row.Status != constants.OTPStatusUsed {
		t.Errorf("Expected USED, got %s", row.Status)
	}

	_, err = v.Verify(ctx, "p@x.com", code, constants.OTPTypeEmailVerification)
	if !errors.Is(err, services.ErrInvalidOTP) {
		t.Errorf("Expected a used code to be rejected, got %v", err)
	}
}

func TestOTPValidator_WrongPurposeIsRejected(t *testing.T) {
	v, _, user := newTestValidator(t)
	ctx := context.Background()

	code, _ := v.GenerateAndSave(ctx, "p@x.com", constants.OTPTypeEmailVerification, &user.ID)
	_, err := v.Verify(ctx, "p@x.com", code, constants.OTPTypePasswordReset)
	if !errors.Is(err, services.ErrInvalidOTP) {
		t.Errorf("Expected ErrInvalidOTP, got %v", err)
	}
}

func TestOTPValidator_NewCodeRevokesOld(t *testing.T) {
	v, db, user := newTestValidator(t)
	ctx := context.Background()

	first, _ := v.GenerateAndSave(ctx, "p@x.com", constants.OTPTypeEmailVerification, &user.ID)
	second, _ := v.GenerateAndSave(ctx, "p@x.com", constants.OTPTypeEmailVerification, &user.ID)

	var pending int64
	db.Model(&gormModels.OTP{}).Where("status = ?", constants.OTPStatusPending).Count(&pending)
	if pending != 1 {
		t.Errorf("Expected one pending code, got %d", pending)
	}

	if first != second {
		if _, err := v.Verify(ctx, "p@x.com", first, constants.OTPTypeEmailVerification); !errors.Is(err, services.ErrInvalidOTP) {
			t.Errorf("Expected the old code to be rejected, got %v", err)
		}
	}
	if _, err := v.Verify(ctx, "p@x.com", second, constants.OTPTypeEmailVerification); err != nil {
		t.Errorf("Expected the new code to verify, got %v", err)
	}
}

func TestOTPValidator_AttemptsAreLimited(t *testing.T) {
	v, db, user := newTestValidator(t)
	ctx := context.Background()

	code, _ := v.GenerateAndSave(ctx, "p@x.com", constants.OTPTypePasswordReset, &user.ID)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < DefaultOTPMaxAttempts; i++ {
		if _, err := v.Verify(ctx, "p@x.com", wrong, constants.OTPTypePasswordReset); !errors.Is(err, services.ErrInvalidOTP) {
			t.Fatalf("Attempt %d: expected ErrInvalidOTP, got %v", i, err)
		}
	}

	// the right code no longer helps
	if _, err := v.Verify(ctx, "p@x.com", code, constants.OTPTypePasswordReset); !errors.Is(err, services.ErrInvalidOTP) {
		t.Errorf("Expected an exhausted code to be rejected, got %v", err)
	}

	var row gormModels.OTP
	db.First(&row)
	if row.Status != constants.OTPStatusRevoked || row.Attempts != DefaultOTPMaxAttempts {
		t.Errorf("Expected REVOKED after %d attempts, got %s/%d", DefaultOTPMaxAttempts, row.Status, row.Attempts)
	}
}

func TestOTPValidator_ExpiredCode(t *testing.T) {
	v, db, user := newTestValidator(t)
	ctx := context.Background()

	code, _ := v.GenerateAndSave(ctx, "p@x.com", constants.OTPTypeEmailVerification, &user.ID)
	v.now = func() time.Time { return time.Now().UTC().Add(DefaultOTPTTL + time.Minute) }

	if _, err := v.Verify(ctx, "p@x.com", code, constants.OTPTypeEmailVerification); !errors.Is(err, services.ErrInvalidOTP) {
		t.Errorf("Expected ErrInvalidOTP, got %v", err)
	}

	var row gormModels.OTP
	db.First(&row)
	if row.Status != constants.OTPStatusExpired {
		t.Errorf("Expected EXPIRED, got %s", row.Status)
	}
}
