package auth

import (
	"context"
)

type contextKey string

var userClaimsKey contextKey = "user_claims"
var rawTokenKey contextKey = "raw_token"

func SetUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) UserClaims {
	val := ctx.Value(userClaimsKey)
	if claims, ok := val.(UserClaims); ok {
		return claims
	}
	return nil
}

// SetRawToken keeps the presented bearer token for handlers that must hash it
func SetRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey, token)
}

func GetRawToken(ctx context.Context) string {
	if v, ok := ctx.Value(rawTokenKey).(string); ok {
		return v
	}
	return ""
}
