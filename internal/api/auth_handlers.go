package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/models/dtos"
	"infinite-experiment/clubhouse/internal/services"
)

// AccountAPI is the part of services.AccountService the handlers call
type AccountAPI interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error)
	FederatedSignup(ctx context.Context, idToken string, userType constants.UserType, refCode string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	FederatedLogin(ctx context.Context, idToken string) (*services.AuthResult, error)
	ResendActivationCode(ctx context.Context, email string) error
	ActivateAccount(ctx context.Context, email, code string) (*services.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string, purpose constants.OTPType) (*dtos.VerifyCodeResponse, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Logout(ctx context.Context, userID string, jti *string) error
	Me(ctx context.Context, userID string) (*dtos.AccountView, error)
}

// SessionRefresher is the part of services.SessionRotator the handlers call
type SessionRefresher interface {
	Rotate(ctx context.Context, rawToken string, session auth.SessionClaims) (*services.TokenPair, error)
}

func decode(w http.ResponseWriter, r *http.Request, initTime time.Time, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondCodedError(w, initTime, http.StatusBadRequest, constants.ErrCodeValidation, "Invalid request body")
		return false
	}
	return true
}

// SignupHandler handles POST /api/v1/auth/signup
func SignupHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.SignupReq
		if !decode(w, r, initTime, &req) {
			return
		}

		res, err := svc.Signup(r.Context(), services.SignupInput{
			Name:     req.Name,
			UserType: constants.UserType(strings.ToUpper(req.UserType)),
			Email:    req.Email,
			Password: req.Password,
			RefCode:  req.RefCode,
		})
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Account created", res, http.StatusCreated)
	}
}

// LoginHandler handles POST /api/v1/auth/login
func LoginHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.LoginReq
		if !decode(w, r, initTime, &req) {
			return
		}

		res, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Logged in", res)
	}
}

// GoogleSignupHandler handles POST /api/v1/auth/google/signup
func GoogleSignupHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.FederatedSignupReq
		if !decode(w, r, initTime, &req) {
			return
		}

		userType := constants.UserType(strings.ToUpper(req.UserType))
		res, err := svc.FederatedSignup(r.Context(), req.IDToken, userType, req.RefCode)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Account created", res, http.StatusCreated)
	}
}

// GoogleLoginHandler handles POST /api/v1/auth/google/login
func GoogleLoginHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.FederatedLoginReq
		if !decode(w, r, initTime, &req) {
			return
		}

		res, err := svc.FederatedLogin(r.Context(), req.IDToken)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Logged in", res)
	}
}

// ResendActivationHandler handles POST /api/v1/auth/activation/resend
func ResendActivationHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.EmailReq
		if !decode(w, r, initTime, &req) {
			return
		}

		if err := svc.ResendActivationCode(r.Context(), req.Email); err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Activation code sent", nil)
	}
}

// ActivateAccountHandler handles POST /api/v1/auth/activation
func ActivateAccountHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ActivateAccountReq
		if !decode(w, r, initTime, &req) {
			return
		}

		res, err := svc.ActivateAccount(r.Context(), req.Email, req.Code)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Account activated", res)
	}
}

// ForgotPasswordHandler handles POST /api/v1/auth/password/forgot
func ForgotPasswordHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.EmailReq
		if !decode(w, r, initTime, &req) {
			return
		}

		if err := svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Password reset code sent", nil)
	}
}

// VerifyCodeHandler handles POST /api/v1/auth/otp/verify
func VerifyCodeHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.VerifyCodeReq
		if !decode(w, r, initTime, &req) {
			return
		}

		purpose := constants.OTPType(strings.ToUpper(req.Type))
		res, err := svc.VerifyCode(r.Context(), req.Email, req.Code, purpose)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Code verified", res)
	}
}

// ResetPasswordHandler handles POST /api/v1/auth/password/reset
func ResetPasswordHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ResetPasswordReq
		if !decode(w, r, initTime, &req) {
			return
		}

		if err := svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Password reset", nil)
	}
}

// ChangePasswordHandler handles POST /api/v1/auth/password/change
func ChangePasswordHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		var req dtos.ChangePasswordReq
		if !decode(w, r, initTime, &req) {
			return
		}

		if err := svc.ChangePassword(r.Context(), claims.UserID(), req.OldPassword, req.NewPassword); err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Password changed", nil)
	}
}

// RefreshHandler handles POST /api/v1/auth/refresh. The refresh token
// middleware must run first.
func RefreshHandler(rotator SessionRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		raw := auth.GetRawToken(r.Context())
		if claims == nil || raw == "" || claims.Source() != constants.RequestSourceRefreshToken {
			common.RespondError(w, initTime, nil, "Unauthorized: refresh token required", http.StatusUnauthorized)
			return
		}

		pair, err := rotator.Rotate(r.Context(), raw, auth.SessionClaims{
			Subject: claims.UserID(),
			Profile: claims.ProfileID(),
			JTI:     claims.SessionID(),
		})
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Session refreshed", pair)
	}
}

// LogoutHandler handles POST /api/v1/auth/logout. ?all=true ends every session.
func LogoutHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		var jti *string
		if r.URL.Query().Get("all") != "true" {
			sid := claims.SessionID()
			jti = &sid
		}

		if err := svc.Logout(r.Context(), claims.UserID(), jti); err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Logged out", nil)
	}
}

// MeHandler handles GET /api/v1/auth/me
func MeHandler(svc AccountAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		view, err := svc.Me(r.Context(), claims.UserID())
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Account fetched", view)
	}
}
