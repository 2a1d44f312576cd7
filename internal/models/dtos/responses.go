package dtos

import "time"

// --- Controller endpoints ----

type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	Code         string `json:"code,omitempty"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

// AccountView is the profile-shaped user returned by every auth endpoint
type AccountView struct {
	ID                string  `json:"id"`
	Email             string  `json:"email"`
	Name              string  `json:"name"`
	UserType          string  `json:"user_type"`
	Status            string  `json:"status"`
	UsesFederatedAuth bool    `json:"uses_federated_auth"`
	ProfileID         string  `json:"profile_id"`
	Avatar            *string `json:"avatar,omitempty"`
	ClubID            *string `json:"club_id,omitempty"`
	OnboardingStep    int     `json:"onboarding_step"`
}

type VerifyCodeResponse struct {
	Email       string     `json:"email,omitempty"`
	UserID      *string    `json:"user_id,omitempty"`
	AffiliateID *string    `json:"affiliate_id,omitempty"`
	ResetToken  string     `json:"reset_token,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
