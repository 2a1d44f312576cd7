package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/constants"
)

type tokenParser func(raw string) (*auth.TokenClaims, error)

// AccessTokenMiddleware admits requests bearing a valid access token.
func AccessTokenMiddleware(signer *auth.TokenSigner) func(http.Handler) http.Handler {
	return bearerMiddleware(signer.ParseAccess)
}

// RefreshTokenMiddleware admits requests bearing a valid refresh token. The
// raw token stays on the context so the rotator can hash it.
func RefreshTokenMiddleware(signer *auth.TokenSigner) func(http.Handler) http.Handler {
	return bearerMiddleware(signer.ParseRefresh)
}

func bearerMiddleware(parse tokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			initTime := time.Now()

			authHeader := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(authHeader, "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				common.RespondCodedError(w, initTime, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
				return
			}

			claims, err := parse(raw)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "Token expired"
				}
				common.RespondCodedError(w, initTime, http.StatusUnauthorized, "UNAUTHORIZED", msg)
				return
			}

			session := &auth.SessionClaims{
				Subject:   claims.Subject,
				Profile:   claims.ProfileID,
				JTI:       claims.ID,
				TokenType: claims.TokenType,
			}

			ctx := auth.SetUserClaims(r.Context(), session)
			if session.Source() == constants.RequestSourceRefreshToken {
				ctx = auth.SetRawToken(ctx, raw)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
