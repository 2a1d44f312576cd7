package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"infinite-experiment/clubhouse/internal/constants"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
)

const clubCacheTTL = 10 * time.Minute

var errUnknownRefCode = errors.New("unknown ref code")

// checkRefCode applies the per-type referral rules and returns the sponsoring
// club. For CLUB signups the club is the invited user's own profile.
func (s *AccountService) checkRefCode(ctx context.Context, userType constants.UserType, email, refCode string, invited *gormModels.User) (*gormModels.ClubProfile, error) {
	refCode = strings.TrimSpace(refCode)
	if refCode == "" {
		return nil, ValidationError(constants.ErrCodeInvalidRefCode, constants.MsgRefCodeRequired)
	}

	if userType == constants.UserTypeClub {
		club, err := s.profiles.FindClubByUserID(ctx, invited.ID)
		if err != nil {
			return nil, err
		}
		if club == nil {
			return nil, ErrProfileNotFound
		}
		if club.RefCode != refCode {
			return nil, ValidationError(constants.ErrCodeInvitationRequired, constants.MsgClubInvitation)
		}
		return club, nil
	}

	club, err := s.findClub(ctx, refCode)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, ValidationError(constants.ErrCodeInvalidRefCode, constants.MsgInvalidRefCode)
	}

	if userType == constants.UserTypePlayer {
		invite, err := s.affiliates.FindPendingInvitation(ctx, email, club.ID, constants.UserTypePlayer)
		if err != nil {
			return nil, err
		}
		if invite == nil {
			return nil, ValidationError(constants.ErrCodeInvitationRequired, constants.MsgPlayerInvitation)
		}
	}
	return club, nil
}

// findClub resolves a referral code, caching hits.
func (s *AccountService) findClub(ctx context.Context, refCode string) (*gormModels.ClubProfile, error) {
	if s.clubCache == nil {
		return s.profiles.FindClubByRefCode(ctx, refCode)
	}

	key := string(constants.CachePrefixClubRefCode) + refCode
	v, err := s.clubCache.GetOrSet(key, clubCacheTTL, func() (any, error) {
		club, err := s.profiles.FindClubByRefCode(ctx, refCode)
		if err != nil {
			return nil, err
		}
		if club == nil {
			// misses stay uncached so a new club is visible at once
			return nil, errUnknownRefCode
		}
		return club, nil
	})
	if errors.Is(err, errUnknownRefCode) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	club, _ := v.(*gormModels.ClubProfile)
	return club, nil
}

// affiliate upserts the ACTIVE link between a new non-club user and its club.
func (s *AccountService) affiliate(ctx context.Context, user *gormModels.User, club *gormModels.ClubProfile, refCode string) error {
	clubID := club.ID
	userID := user.ID
	return s.affiliates.Upsert(ctx, &gormModels.Affiliate{
		Email:   user.Email,
		UserID:  &userID,
		ClubID:  &clubID,
		Type:    user.UserType,
		Status:  constants.AffiliateStatusActive,
		RefCode: strings.TrimSpace(refCode),
	})
}
