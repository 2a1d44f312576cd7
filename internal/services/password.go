package services

import (
	"context"
	"errors"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/models/dtos"
)

// RequestPasswordReset mails a PASSWORD_RESET code to a password account.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.requestPasswordReset(ctx, email); err != nil {
		return wrapFault("password reset request", err)
	}
	return nil
}

func (s *AccountService) requestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsFederatedOnly() {
		return ErrGoogleAccountCannotReset
	}

	code, err := s.otp.GenerateAndSave(ctx, user.Email, constants.OTPTypePasswordReset, &user.ID)
	if err != nil {
		return err
	}

	if s.mailer != nil {
		to := user.Email
		s.submit("mail_password_reset", func(ctx context.Context) error {
			return s.mailer.SendPasswordReset(ctx, to, code)
		})
	}
	return nil
}

// VerifyCode consumes a code of any purpose. A PASSWORD_RESET code is traded
// for a short-lived reset token; other purposes return the address, user and
// latest affiliate.
func (s *AccountService) VerifyCode(ctx context.Context, email, code string, purpose constants.OTPType) (*dtos.VerifyCodeResponse, error) {
	res, err := s.verifyCode(ctx, email, code, purpose)
	if err != nil {
		return nil, wrapFault("code verification", err)
	}
	return res, nil
}

func (s *AccountService) verifyCode(ctx context.Context, email, code string, purpose constants.OTPType) (*dtos.VerifyCodeResponse, error) {
	if !purpose.IsValid() {
		return nil, ValidationError(constants.ErrCodeValidation, "Unknown code type")
	}
	v, err := s.verifyOTP(ctx, email, code, purpose)
	if err != nil {
		return nil, err
	}

	if purpose == constants.OTPTypePasswordReset {
		if v.User == nil {
			return nil, ErrUserNotFound
		}
		token, err := s.signer.SignReset(v.User.ID, v.ID)
		if err != nil {
			return nil, err
		}
		exp := token.ExpiresAt
		return &dtos.VerifyCodeResponse{
			Email:      v.Email,
			ResetToken: token.Token,
			ExpiresAt:  &exp,
		}, nil
	}

	res := &dtos.VerifyCodeResponse{Email: v.Email}
	if v.User != nil {
		id := v.User.ID
		res.UserID = &id
	}
	aff, err := s.affiliates.FindLatestByEmail(ctx, v.Email)
	if err != nil {
		return nil, err
	}
	if aff != nil {
		id := aff.ID
		res.AffiliateID = &id
	}
	return res, nil
}

// ResetPassword sets a new password using a reset token. The password change
// time ends every refresh token issued before it.
func (s *AccountService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := s.resetPassword(ctx, resetToken, newPassword); err != nil {
		return wrapFault("password reset", err)
	}
	return nil
}

func (s *AccountService) resetPassword(ctx context.Context, resetToken, newPassword string) error {
	if newPassword == "" {
		return ValidationError(constants.ErrCodeValidation, "New password is required")
	}

	claims, err := s.signer.ParseReset(resetToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return ErrResetTokenExpired
		}
		return ErrResetTokenInvalid
	}

	otp, err := s.otps.FindConsumedReset(ctx, claims.OTPID, claims.Subject)
	if err != nil {
		return err
	}
	if otp == nil {
		return ErrResetTokenUsed
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	changedAt := s.now()
	err = repositories.InTx(ctx, s.db, func(txCtx context.Context) error {
		consumed, err := s.otps.Transition(txCtx, otp.ID, constants.OTPStatusUsed, constants.OTPStatusRevoked)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrResetTokenUsed
		}
		return s.users.UpdatePassword(txCtx, user.ID, hash, &changedAt)
	})
	if err != nil {
		return err
	}

	logging.Info("Password reset", "user_id", user.ID)

	if s.mailer != nil {
		to := user.Email
		s.submit("mail_password_reset_confirmation", func(ctx context.Context) error {
			return s.mailer.SendPasswordResetConfirmation(ctx, to)
		})
	}
	return nil
}

// ChangePassword replaces the password of an authenticated user. Existing
// sessions stay valid.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := s.changePassword(ctx, userID, oldPassword, newPassword); err != nil {
		return wrapFault("password change", err)
	}
	return nil
}

func (s *AccountService) changePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ValidationError(constants.ErrCodeValidation, "Old and new password are required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsFederatedOnly() {
		return ErrUseFederatedAuth
	}
	if !user.HasPassword() {
		return ValidationError(constants.ErrCodeValidation, "No password is set for this account")
	}
	if !auth.CheckPassword(*user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, nil); err != nil {
		return err
	}

	logging.Info("Password changed", "user_id", user.ID)
	return nil
}
