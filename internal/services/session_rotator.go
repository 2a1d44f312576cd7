package services

import (
	"context"
	"errors"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"

	"gorm.io/gorm"
)

// SessionRotator exchanges a live refresh token for a new pair in the same
// session. The database transaction is the only guard against two rotations
// of one token both succeeding.
type SessionRotator struct {
	db        *gorm.DB
	users     *repositories.UserRepositoryGORM
	tokens    *repositories.RefreshTokenRepository
	signer    *auth.TokenSigner
	issuer    *TokenIssuer
	retention *TokenRetention
	tasks     TaskRunner
	metrics   *metrics.MetricsRegistry
	now       func() time.Time
}

func NewSessionRotator(
	db *gorm.DB,
	users *repositories.UserRepositoryGORM,
	tokens *repositories.RefreshTokenRepository,
	signer *auth.TokenSigner,
	issuer *TokenIssuer,
	retention *TokenRetention,
	tasks TaskRunner,
	m *metrics.MetricsRegistry,
) *SessionRotator {
	return &SessionRotator{
		db:        db,
		users:     users,
		tokens:    tokens,
		signer:    signer,
		issuer:    issuer,
		retention: retention,
		tasks:     tasks,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Rotate revokes the presented refresh token and issues a replacement pair
// with the same JTI. session carries the identity the caller authenticated
// with; its JTI must match the stored row.
func (r *SessionRotator) Rotate(ctx context.Context, rawToken string, session auth.SessionClaims) (*TokenPair, error) {
	pair, err := r.rotate(ctx, rawToken, session)
	if err != nil {
		r.metrics.ObserveRotation(rotationResult(err))
		return nil, wrapFault("token refresh", err)
	}
	r.metrics.ObserveRotation("ok")
	return pair, nil
}

func (r *SessionRotator) rotate(ctx context.Context, rawToken string, session auth.SessionClaims) (*TokenPair, error) {
	user, err := r.users.FindByID(ctx, session.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	claims, err := r.signer.ParseRefresh(rawToken)
	if err != nil {
		return nil, ErrInvalidOrRevokedToken
	}
	if claims.Subject != user.ID {
		return nil, ErrSessionMismatch
	}

	// issue times carry milliseconds, so a token from the reset's own
	// millisecond is treated as older
	if user.PasswordChangedAt != nil && !claims.IssuedAtTime().After(user.PasswordChangedAt.Truncate(time.Millisecond)) {
		return nil, ErrTokenInvalidatedByPasswordChange
	}

	stored, err := r.tokens.FindActive(ctx, auth.HashToken(rawToken), user.ID, r.now())
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrInvalidOrRevokedToken
	}

	if stored.JTI != session.JTI {
		logging.Warn("Refresh token presented under a different session",
			"user_id", user.ID,
			"stored_jti", stored.JTI,
			"session_jti", session.JTI,
		)
		return nil, ErrSessionMismatch
	}

	var pair *TokenPair
	err = repositories.InTx(ctx, r.db, func(txCtx context.Context) error {
		revoked, err := r.tokens.Revoke(txCtx, stored.ID)
		if err != nil {
			return err
		}
		if !revoked {
			// a concurrent rotation consumed this row first
			return ErrInvalidOrRevokedToken
		}

		pair, err = r.issuer.Issue(txCtx, user.ID, claims.ProfileID, stored.JTI)
		return err
	})
	if err != nil {
		return nil, err
	}

	scheduleCleanup(r.tasks, r.retention, user.ID)
	return pair, nil
}

func rotationResult(err error) string {
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return accErr.Code
	}
	return "error"
}
