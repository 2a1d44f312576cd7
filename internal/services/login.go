package services

import (
	"context"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
)

const (
	LoginMethodPassword = "password"
	LoginMethodGoogle   = "google"
)

// Login verifies a local password and starts a new session. PENDING accounts
// may sign in before activation.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, email, password)
	s.metrics.ObserveLogin(LoginMethodPassword, resultLabel(err))
	if err != nil {
		return nil, wrapFault("login", err)
	}
	return res, nil
}

func (s *AccountService) login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = repositories.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// keep the unknown-address path as slow as a wrong password
		auth.CheckPassword(s.dummyPasswordHash(), password)
		return nil, ErrInvalidCredentials
	}
	if user.IsFederatedOnly() {
		return nil, ErrUseFederatedAuth
	}
	if !user.HasPassword() || !auth.CheckPassword(*user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.signIn(ctx, user, LoginMethodPassword)
}

// FederatedLogin signs in an existing account with a verified identity token.
func (s *AccountService) FederatedLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	res, err := s.federatedLogin(ctx, idToken)
	s.metrics.ObserveLogin(LoginMethodGoogle, resultLabel(err))
	if err != nil {
		return nil, wrapFault("google login", err)
	}
	return res, nil
}

func (s *AccountService) federatedLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	identity, err := s.verifyIdentity(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	// an invited club is claimed through signup with its refCode
	if user.UserType == constants.UserTypeClub && user.Status == constants.UserStatusPending {
		return nil, ValidationError(constants.ErrCodeInvitationRequired, constants.MsgClubInvitation)
	}

	if !user.UsesFederatedAuth {
		if err := s.users.MarkFederated(ctx, user.ID); err != nil {
			return nil, err
		}
		user.UsesFederatedAuth = true
	}

	return s.signIn(ctx, user, LoginMethodGoogle)
}

func (s *AccountService) signIn(ctx context.Context, user *gormModels.User, method string) (*AuthResult, error) {
	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	res, err := s.startSession(ctx, user, profile)
	if err != nil {
		return nil, err
	}

	logging.Info("User logged in", "user_id", user.ID, "method", method, "session_id", res.Tokens.SessionID)
	s.notifyLogin(user, method, res.Tokens.SessionID)
	return res, nil
}

// dummyPasswordHash is compared against when no account matches the address.
func (s *AccountService) dummyPasswordHash() string {
	s.dummyHashOnce.Do(func() {
		h, err := auth.HashPassword("clubhouse-timing-guard", s.bcryptCost)
		if err != nil {
			logging.Warn("Failed to build timing guard hash", "error", err.Error())
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
