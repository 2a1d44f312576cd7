package constants

const (
	DeleteExpiredRefreshTokens = `
	DELETE FROM refresh_tokens WHERE expires_at < ?
	`

	CountActiveRefreshTokens = `
	SELECT COUNT(*) FROM refresh_tokens WHERE revoked = false AND expires_at > ?
	`
)
