package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"infinite-experiment/clubhouse/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenClaims are carried by both access and refresh tokens. The registered
// ID claim is the session JTI and stays the same across rotations.
type TokenClaims struct {
	ProfileID  string `json:"profileId"`
	TokenType  string `json:"typ"`
	IssuedAtMs int64  `json:"iat_ms"`
	Nonce      string `json:"nonce,omitempty"`
	jwt.RegisteredClaims
}

// IssuedAtTime is the millisecond issue time, used against password_changed_at.
func (c *TokenClaims) IssuedAtTime() time.Time {
	if c.IssuedAtMs > 0 {
		return time.UnixMilli(c.IssuedAtMs)
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// ResetClaims bind a password-reset token to one consumed OTP row.
type ResetClaims struct {
	OTPID   string `json:"otpId"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// SignedToken is a serialized JWT and its expiry.
type SignedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenSigner mints and verifies HS256 tokens. Access, refresh and reset
// tokens each use their own secret.
type TokenSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	resetSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	now           func() time.Time
}

type SignerConfig struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

func NewTokenSigner(cfg SignerConfig) *TokenSigner {
	resetSecret := cfg.ResetSecret
	if resetSecret == "" {
		resetSecret = cfg.AccessSecret
	}
	return &TokenSigner{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		resetSecret:   []byte(resetSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		resetTTL:      cfg.ResetTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *TokenSigner) WithClock(now func() time.Time) *TokenSigner {
	s.now = now
	return s
}

func (s *TokenSigner) RefreshTTL() time.Duration { return s.refreshTTL }

// NewSessionID returns a fresh JTI for a new login session.
func NewSessionID() string {
	return uuid.NewString()
}

func (s *TokenSigner) SignAccess(userID, profileID, jti string) (SignedToken, error) {
	return s.sign(s.accessSecret, s.accessTTL, constants.TokenTypeAccess, userID, profileID, jti)
}

func (s *TokenSigner) SignRefresh(userID, profileID, jti string) (SignedToken, error) {
	return s.sign(s.refreshSecret, s.refreshTTL, constants.TokenTypeRefresh, userID, profileID, jti)
}

func (s *TokenSigner) sign(secret []byte, ttl time.Duration, typ, userID, profileID, jti string) (SignedToken, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := TokenClaims{
		ProfileID:  profileID,
		TokenType:  typ,
		IssuedAtMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if typ == constants.TokenTypeRefresh {
		claims.Nonce = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return SignedToken{Token: signed, ExpiresAt: exp}, nil
}

func (s *TokenSigner) ParseAccess(raw string) (*TokenClaims, error) {
	return s.parse(raw, s.accessSecret, constants.TokenTypeAccess)
}

func (s *TokenSigner) ParseRefresh(raw string) (*TokenClaims, error) {
	return s.parse(raw, s.refreshSecret, constants.TokenTypeRefresh)
}

func (s *TokenSigner) parse(raw string, secret []byte, typ string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.TokenType != typ {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrTokenInvalid)
	}
	return claims, nil
}

// SignReset mints the short-lived token handed out after a reset code is verified.
func (s *TokenSigner) SignReset(userID, otpID string) (SignedToken, error) {
	now := s.now()
	exp := now.Add(s.resetTTL)
	claims := ResetClaims{
		OTPID:   otpID,
		Purpose: constants.PurposeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.resetSecret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("failed to sign reset token: %w", err)
	}
	return SignedToken{Token: signed, ExpiresAt: exp}, nil
}

// ParseReset verifies a reset token. Expiry is reported as ErrTokenExpired.
func (s *TokenSigner) ParseReset(raw string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.resetSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Purpose != constants.PurposeReset {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" || claims.OTPID == "" {
		return nil, fmt.Errorf("%w: missing sub or otpId", ErrTokenInvalid)
	}
	return claims, nil
}

// HashToken returns the SHA-256 hex digest stored in place of a raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
