package providers

import (
	"context"
	"fmt"
	"slices"
	"time"

	"infinite-experiment/clubhouse/internal/services"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleIdentityVerifier checks Google ID tokens against Google's published
// signing keys. keyfunc keeps the key set fresh in the background and refetches
// once when a token names an unknown kid.
type GoogleIdentityVerifier struct {
	keys    keyfunc.Keyfunc
	issuers []string
	now     func() time.Time
}

var _ services.IdentityVerifier = (*GoogleIdentityVerifier)(nil)

// NewGoogleIdentityVerifier starts the key set refresh for jwksURL. The refresh
// stops when ctx ends.
func NewGoogleIdentityVerifier(ctx context.Context, jwksURL string) (*GoogleIdentityVerifier, error) {
	if jwksURL == "" {
		jwksURL = GoogleJWKSURL
	}
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load identity signing keys: %w", err)
	}
	return &GoogleIdentityVerifier{
		keys:    keys,
		issuers: googleIssuers,
		now:     time.Now,
	}, nil
}

func (g *GoogleIdentityVerifier) VerifyIdentityToken(ctx context.Context, token, audience string) (*services.FederatedIdentity, error) {
	if audience == "" {
		return nil, fmt.Errorf("no audience configured for identity tokens")
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(token, claims, g.keys.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("identity token rejected: %w", err)
	}

	if !slices.Contains(g.issuers, claims.Issuer) {
		return nil, fmt.Errorf("identity token from untrusted issuer %q", claims.Issuer)
	}
	if !emailVerified(claims.EmailVerified) {
		return nil, fmt.Errorf("identity token email is not verified")
	}

	return &services.FederatedIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// Google sends email_verified as a bool, older tokens as the string "true".
func emailVerified(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}
