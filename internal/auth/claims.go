package auth

import "infinite-experiment/clubhouse/internal/constants"

// UserClaims is what the auth middleware stores on the request context.
type UserClaims interface {
	UserID() string
	ProfileID() string
	SessionID() string
	Source() constants.RequestSource
}

// SessionClaims are decoded from a verified access or refresh token.
type SessionClaims struct {
	Subject   string
	Profile   string
	JTI       string
	TokenType string
}

func (c *SessionClaims) UserID() string    { return c.Subject }
func (c *SessionClaims) ProfileID() string { return c.Profile }
func (c *SessionClaims) SessionID() string { return c.JTI }
func (c *SessionClaims) Source() constants.RequestSource {
	if c.TokenType == constants.TokenTypeRefresh {
		return constants.RequestSourceRefreshToken
	}
	return constants.RequestSourceAccessToken
}
