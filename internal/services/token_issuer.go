package services

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/db/repositories"
	gormModels "infinite-experiment/clubhouse/internal/models/gorm"
)

// TokenPair is returned to clients after login, signup, activation and rotation
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	SessionID             string    `json:"session_id"`
}

// TokenIssuer mints access/refresh pairs and stores the refresh token hash.
type TokenIssuer struct {
	signer *auth.TokenSigner
	tokens *repositories.RefreshTokenRepository
}

func NewTokenIssuer(signer *auth.TokenSigner, tokens *repositories.RefreshTokenRepository) *TokenIssuer {
	return &TokenIssuer{signer: signer, tokens: tokens}
}

// Issue continues session jti, or starts a new one when jti is empty. The
// refresh row joins the transaction carried by ctx.
func (i *TokenIssuer) Issue(ctx context.Context, userID, profileID, jti string) (*TokenPair, error) {
	if jti == "" {
		jti = auth.NewSessionID()
	}

	access, err := i.signer.SignAccess(userID, profileID, jti)
	if err != nil {
		return nil, err
	}
	refresh, err := i.signer.SignRefresh(userID, profileID, jti)
	if err != nil {
		return nil, err
	}

	row := &gormModels.RefreshToken{
		UserID:    userID,
		JTI:       jti,
		TokenHash: auth.HashToken(refresh.Token),
		ExpiresAt: refresh.ExpiresAt.UTC(),
	}
	if err := i.tokens.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:           access.Token,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Token,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		SessionID:             jti,
	}, nil
}
