package services

import (
	"context"

	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
)

// ActivateAccount consumes an EMAIL_VERIFICATION code and signs the user in.
// Activating an account that is already ACTIVE only issues a new session.
func (s *AccountService) ActivateAccount(ctx context.Context, email, code string) (*AuthResult, error) {
	res, err := s.activateAccount(ctx, email, code)
	if err != nil {
		return nil, wrapFault("account activation", err)
	}
	return res, nil
}

func (s *AccountService) activateAccount(ctx context.Context, email, code string) (*AuthResult, error) {
	verification, err := s.verifyOTP(ctx, email, code, constants.OTPTypeEmailVerification)
	if err != nil {
		return nil, err
	}
	if verification.User == nil {
		return nil, ErrUserNotFound
	}

	user, err := s.users.FindByID(ctx, verification.User.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if user.Status == constants.UserStatusActive {
		profile, err := s.loadProfile(ctx, user)
		if err != nil {
			return nil, err
		}
		return s.startSession(ctx, user, profile)
	}

	err = repositories.InTx(ctx, s.db, func(txCtx context.Context) error {
		activated, err := s.users.Activate(txCtx, user.ID)
		if err != nil {
			return err
		}
		if !activated {
			// lost a race with another activation of the same account
			return nil
		}

		// supporters share the player profile shape but never take the club
		if user.UserType != constants.UserTypePlayer {
			return nil
		}
		aff, err := s.affiliates.FindActiveWithClub(txCtx, user.ID)
		if err != nil {
			return err
		}
		if aff == nil || aff.ClubID == nil {
			return nil
		}
		return s.profiles.SetPlayerClub(txCtx, user.ID, *aff.ClubID)
	})
	if err != nil {
		return nil, err
	}
	user.Status = constants.UserStatusActive

	logging.Info("Account activated", "user_id", user.ID, "user_type", user.UserType)

	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, profile)
}

// ResendActivationCode issues a new EMAIL_VERIFICATION code to a PENDING account.
func (s *AccountService) ResendActivationCode(ctx context.Context, email string) error {
	if err := s.resendActivationCode(ctx, email); err != nil {
		return wrapFault("resend activation code", err)
	}
	return nil
}

func (s *AccountService) resendActivationCode(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.Status == constants.UserStatusActive {
		return ErrAlreadyActive
	}

	code, err := s.otp.GenerateAndSave(ctx, user.Email, constants.OTPTypeEmailVerification, &user.ID)
	if err != nil {
		return err
	}
	s.sendActivation(user.Email, code)
	return nil
}

// verifyOTP asks the validator to consume a code. The validator reports
// rejected codes as ErrInvalidOTP.
func (s *AccountService) verifyOTP(ctx context.Context, email, code string, purpose constants.OTPType) (*OTPVerification, error) {
	email = repositories.NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, ValidationError(constants.ErrCodeValidation, "Email and code are required")
	}
	return s.otp.Verify(ctx, email, code, purpose)
}
