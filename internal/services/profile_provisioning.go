package services

import (
	"context"

	"infinite-experiment/clubhouse/internal/constants"
	"infinite-experiment/clubhouse/internal/db/repositories"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
)

type ProvisionInput struct {
	Name   string
	Avatar *string
}

// ProfileProvisioner creates the profile row for a freshly created user. A nil
// record with a nil error means nothing was created.
type ProfileProvisioner func(ctx context.Context, profiles *repositories.ProfileRepository, user *gormModels.User, in ProvisionInput) (*repositories.ProfileRecord, error)

// CLUB is absent: club profiles come from the invitation flow and are claimed.
func defaultProvisioners() map[constants.UserType]ProfileProvisioner {
	return map[constants.UserType]ProfileProvisioner{
		constants.UserTypePlayer:    provisionPlayer,
		constants.UserTypeSupporter: provisionPlayer,
		constants.UserTypeCompany:   provisionCompany,
		constants.UserTypeAdmin:     provisionAdmin,
	}
}

func provisionPlayer(ctx context.Context, profiles *repositories.ProfileRepository, user *gormModels.User, in ProvisionInput) (*repositories.ProfileRecord, error) {
	p := &gormModels.PlayerProfile{UserID: user.ID, UserType: user.UserType, Name: in.Name, Avatar: in.Avatar}
	if err := profiles.CreatePlayer(ctx, p); err != nil {
		return nil, err
	}
	return &repositories.ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar}, nil
}

func provisionCompany(ctx context.Context, profiles *repositories.ProfileRepository, user *gormModels.User, in ProvisionInput) (*repositories.ProfileRecord, error) {
	p := &gormModels.CompanyProfile{UserID: user.ID, Name: in.Name, Avatar: in.Avatar}
	if err := profiles.CreateCompany(ctx, p); err != nil {
		return nil, err
	}
	return &repositories.ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar}, nil
}

func provisionAdmin(ctx context.Context, profiles *repositories.ProfileRepository, user *gormModels.User, in ProvisionInput) (*repositories.ProfileRecord, error) {
	p := &gormModels.AdminProfile{UserID: user.ID, Name: in.Name, Avatar: in.Avatar}
	if err := profiles.CreateAdmin(ctx, p); err != nil {
		return nil, err
	}
	return &repositories.ProfileRecord{ID: p.ID, UserID: p.UserID, Name: p.Name, Avatar: p.Avatar}, nil
}

// provision runs the strategy for the user's type.
func (s *AccountService) provision(ctx context.Context, user *gormModels.User, in ProvisionInput) (*repositories.ProfileRecord, error) {
	p, ok := s.provisioners[user.UserType]
	if !ok {
		return nil, ErrProfileCreationFailed
	}
	rec, err := p(ctx, s.profiles, user, in)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrProfileCreationFailed
	}
	return rec, nil
}
