package constants

// Error codes returned to API clients
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeEmailTaken           = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidRefCode       = "INVALID_REF_CODE"
	ErrCodeInvitationRequired   = "INVITATION_REQUIRED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUseFederatedAuth     = "USE_FEDERATED_AUTH"
	ErrCodeInvalidFederated     = "INVALID_FEDERATED_TOKEN"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeAlreadyActive        = "ACCOUNT_ALREADY_ACTIVE"
	ErrCodeInvalidOTP           = "INVALID_OTP"
	ErrCodeGoogleCannotReset    = "GOOGLE_ACCOUNT_CANNOT_RESET"
	ErrCodeResetTokenExpired    = "RESET_TOKEN_EXPIRED"
	ErrCodeResetTokenInvalid    = "RESET_TOKEN_INVALID"
	ErrCodeResetTokenUsed       = "RESET_TOKEN_USED"
	ErrCodeTokenPasswordChanged = "TOKEN_INVALIDATED_BY_PASSWORD_CHANGE"
	ErrCodeInvalidRefreshToken  = "INVALID_OR_REVOKED_TOKEN"
	ErrCodeSessionMismatch      = "SESSION_MISMATCH"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeProfileCreation      = "PROFILE_CREATION_FAILED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

const (
	MsgInvalidCredentials   = "Invalid email or password"
	MsgUseFederatedAuth     = "This account signs in with Google"
	MsgEmailTaken           = "An account with this email already exists"
	MsgRefCodeRequired      = "Referral code is required"
	MsgInvalidRefCode       = "Referral code is not valid"
	MsgPlayerInvitation     = "No pending invitation found for this player"
	MsgClubInvitation       = "No pending club invitation found for this email"
	MsgUserNotFound         = "User not found"
	MsgAlreadyActive        = "Account is already active"
	MsgGoogleCannotReset    = "Google accounts cannot reset a password"
	MsgResetTokenExpired    = "Reset token has expired"
	MsgResetTokenInvalid    = "Reset token is not valid"
	MsgResetTokenUsed       = "Reset token is expired or already used"
	MsgTokenPasswordChanged = "Session ended because the password was changed"
	MsgInvalidRefreshToken  = "Refresh token is invalid or revoked"
	MsgSessionMismatch      = "Refresh token does not belong to this session"
	MsgProfileNotFound      = "Profile for invited club is missing"
	MsgProfileCreation      = "Profile could not be created"
)
