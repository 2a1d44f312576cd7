package services

import (
	"context"
	"strings"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
)

type SignupInput struct {
	Name     string
	UserType constants.UserType
	Email    string
	Password string
	RefCode  string
}

// signupRequest is the common shape of password and federated signups
type signupRequest struct {
	name         string
	userType     constants.UserType
	email        string
	refCode      string
	passwordHash *string
	avatar       *string
	federated    bool
}

// Signup registers a password account, or claims an invited club account.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	res, err := s.signupWithPassword(ctx, in)
	s.metrics.ObserveSignup(string(in.UserType), resultLabel(err))
	if err != nil {
		return nil, wrapFault("signup", err)
	}
	return res, nil
}

func (s *AccountService) signupWithPassword(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repositories.NormalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ValidationError(constants.ErrCodeValidation, "Name, email and password are required")
	}
	if !in.UserType.IsValid() {
		return nil, ValidationError(constants.ErrCodeValidation, "Unknown user type")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	return s.signup(ctx, signupRequest{
		name:         in.Name,
		userType:     in.UserType,
		email:        in.Email,
		refCode:      in.RefCode,
		passwordHash: &hash,
	})
}

// FederatedSignup registers an account from a verified identity token.
func (s *AccountService) FederatedSignup(ctx context.Context, idToken string, userType constants.UserType, refCode string) (*AuthResult, error) {
	res, err := s.federatedSignup(ctx, idToken, userType, refCode)
	s.metrics.ObserveSignup(string(userType), resultLabel(err))
	if err != nil {
		return nil, wrapFault("google signup", err)
	}
	return res, nil
}

func (s *AccountService) federatedSignup(ctx context.Context, idToken string, userType constants.UserType, refCode string) (*AuthResult, error) {
	if !userType.IsValid() {
		return nil, ValidationError(constants.ErrCodeValidation, "Unknown user type")
	}
	identity, err := s.verifyIdentity(ctx, idToken)
	if err != nil {
		return nil, err
	}

	req := signupRequest{
		name:      identity.Name,
		userType:  userType,
		email:     repositories.NormalizeEmail(identity.Email),
		refCode:   refCode,
		federated: true,
	}
	if identity.Picture != "" {
		pic := identity.Picture
		req.avatar = &pic
	}
	return s.signup(ctx, req)
}

func (s *AccountService) signup(ctx context.Context, req signupRequest) (*AuthResult, error) {
	existing, err := s.users.FindByEmail(ctx, req.email)
	if err != nil {
		return nil, err
	}

	var invited *gormModels.User
	if req.userType == constants.UserTypeClub {
		if existing == nil || existing.UserType != constants.UserTypeClub || existing.Status != constants.UserStatusPending {
			return nil, ValidationError(constants.ErrCodeInvitationRequired, constants.MsgClubInvitation)
		}
		invited = existing
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	club, err := s.checkRefCode(ctx, req.userType, req.email, req.refCode, invited)
	if err != nil {
		return nil, err
	}

	var (
		user    *gormModels.User
		profile *repositories.ProfileRecord
		code    string
	)

	err = repositories.InTx(ctx, s.db, func(txCtx context.Context) error {
		if req.userType == constants.UserTypeClub {
			user, profile, err = s.claimClub(txCtx, invited, req)
		} else {
			user, profile, err = s.createAccount(txCtx, req)
		}
		if err != nil {
			return err
		}

		code, err = s.otp.GenerateAndSave(txCtx, user.Email, constants.OTPTypeEmailVerification, &user.ID)
		if err != nil {
			return err
		}

		if req.userType != constants.UserTypeClub {
			return s.affiliate(txCtx, user, club, req.refCode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Account signed up",
		"user_id", user.ID,
		"user_type", user.UserType,
		"federated", req.federated,
		"club_id", club.ID,
	)

	if code != "" {
		s.sendActivation(user.Email, code)
	}

	return s.startSession(ctx, user, profile)
}

// claimClub completes the user and profile rows the invitation flow created.
func (s *AccountService) claimClub(ctx context.Context, invited *gormModels.User, req signupRequest) (*gormModels.User, *repositories.ProfileRecord, error) {
	if err := s.users.ClaimInvitedClub(ctx, invited.ID, req.name, req.passwordHash, req.federated); err != nil {
		return nil, nil, err
	}

	club, err := s.profiles.FindClubByUserID(ctx, invited.ID)
	if err != nil {
		return nil, nil, err
	}
	if club == nil {
		return nil, nil, ErrProfileNotFound
	}
	if err := s.profiles.UpdateClub(ctx, club.ID, req.name, req.avatar); err != nil {
		return nil, nil, err
	}

	user := *invited
	user.Name = req.name
	user.PasswordHash = req.passwordHash
	user.Status = constants.UserStatusActive
	user.UsesFederatedAuth = req.federated

	avatar := club.Avatar
	if req.avatar != nil {
		avatar = req.avatar
	}
	clubID := club.ID
	return &user, &repositories.ProfileRecord{
		ID:             club.ID,
		UserID:         user.ID,
		Name:           req.name,
		Avatar:         avatar,
		ClubID:         &clubID,
		OnboardingStep: club.OnboardingStep,
	}, nil
}

// createAccount inserts the user and provisions its profile.
func (s *AccountService) createAccount(ctx context.Context, req signupRequest) (*gormModels.User, *repositories.ProfileRecord, error) {
	user := &gormModels.User{
		Email:             req.email,
		Name:              req.name,
		PasswordHash:      req.passwordHash,
		UserType:          req.userType,
		Status:            constants.UserStatusPending,
		UsesFederatedAuth: req.federated,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	profile, err := s.provision(ctx, user, ProvisionInput{Name: req.name, Avatar: req.avatar})
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

func (s *AccountService) verifyIdentity(ctx context.Context, idToken string) (*FederatedIdentity, error) {
	if s.identity == nil || strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidFederatedToken
	}
	identity, err := s.identity.VerifyIdentityToken(ctx, idToken, s.googleAudience)
	if err != nil {
		logging.Warn("Federated token rejected", "error", err.Error())
		return nil, ErrInvalidFederatedToken
	}
	if identity.Email == "" || strings.TrimSpace(identity.Name) == "" {
		return nil, ErrInvalidFederatedToken
	}
	return identity, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return rotationResult(err)
}
