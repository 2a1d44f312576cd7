package services

import (
	"context"
	"time"

	"infinite-experiment/clubhouse/internal/constants"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
)

// OTPVerification is what the OTP validator hands back for a consumed code.
// User is nil when the code was issued for an address with no account.
type OTPVerification struct {
	ID          string
	Email       string
	Type        constants.OTPType
	User        *gormModels.User
	Attempts    int
	MaxAttempts int
	ExpiresAt   time.Time
}

// OTPValidator issues and checks one-time codes. GenerateAndSave joins the
// transaction carried by ctx, if any.
type OTPValidator interface {
	GenerateAndSave(ctx context.Context, email string, purpose constants.OTPType, userID *string) (string, error)
	Verify(ctx context.Context, email, code string, purpose constants.OTPType) (*OTPVerification, error)
}

// Mailer delivers account e-mails. Calls are made from background tasks.
type Mailer interface {
	SendActivation(ctx context.Context, email, code string) error
	SendPasswordReset(ctx context.Context, email, code string) error
	SendPasswordResetConfirmation(ctx context.Context, email string) error
}

// LoginEvent describes a successful sign-in for notification purposes
type LoginEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Method    string    `json:"method"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

type LoginNotifier interface {
	NotifyLogin(ctx context.Context, event LoginEvent) error
}

// FederatedIdentity holds the claims extracted from a verified identity token
type FederatedIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type IdentityVerifier interface {
	VerifyIdentityToken(ctx context.Context, token, audience string) (*FederatedIdentity, error)
}

// TaskRunner accepts fire-and-forget work. Failures are logged by the runner.
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error)
}
