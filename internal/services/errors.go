package services

import (
	"errors"
	"fmt"

	"infinite-experiment/clubhouse/internal/constants"
)

// ErrorKind decides how an AccountError is surfaced to API clients
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindConflict       ErrorKind = "conflict"
	KindNotFound       ErrorKind = "not_found"
	KindIntegrity      ErrorKind = "integrity"
	KindInternal       ErrorKind = "internal"
)

// AccountError is the only error type the account services return to callers.
// Two AccountErrors match under errors.Is when their codes are equal.
type AccountError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AccountError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AccountError) Unwrap() error { return e.Err }

func (e *AccountError) Is(target error) bool {
	var t *AccountError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func newError(kind ErrorKind, code, msg string) *AccountError {
	return &AccountError{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidCredentials               = newError(KindAuthentication, constants.ErrCodeInvalidCredentials, constants.MsgInvalidCredentials)
	ErrUseFederatedAuth                 = newError(KindAuthentication, constants.ErrCodeUseFederatedAuth, constants.MsgUseFederatedAuth)
	ErrInvalidFederatedToken            = newError(KindAuthentication, constants.ErrCodeInvalidFederated, "Federated identity token is not valid")
	ErrUserNotFound                     = newError(KindNotFound, constants.ErrCodeUserNotFound, constants.MsgUserNotFound)
	ErrEmailTaken                       = newError(KindConflict, constants.ErrCodeEmailTaken, constants.MsgEmailTaken)
	ErrAlreadyActive                    = newError(KindValidation, constants.ErrCodeAlreadyActive, constants.MsgAlreadyActive)
	ErrInvalidOTP                       = newError(KindAuthentication, constants.ErrCodeInvalidOTP, "Verification code is invalid or expired")
	ErrGoogleAccountCannotReset         = newError(KindValidation, constants.ErrCodeGoogleCannotReset, constants.MsgGoogleCannotReset)
	ErrResetTokenExpired                = newError(KindAuthentication, constants.ErrCodeResetTokenExpired, constants.MsgResetTokenExpired)
	ErrResetTokenInvalid                = newError(KindAuthentication, constants.ErrCodeResetTokenInvalid, constants.MsgResetTokenInvalid)
	ErrResetTokenUsed                   = newError(KindAuthentication, constants.ErrCodeResetTokenUsed, constants.MsgResetTokenUsed)
	ErrTokenInvalidatedByPasswordChange = newError(KindAuthentication, constants.ErrCodeTokenPasswordChanged, constants.MsgTokenPasswordChanged)
	ErrInvalidOrRevokedToken            = newError(KindAuthentication, constants.ErrCodeInvalidRefreshToken, constants.MsgInvalidRefreshToken)
	ErrSessionMismatch                  = newError(KindAuthentication, constants.ErrCodeSessionMismatch, constants.MsgSessionMismatch)
	ErrProfileNotFound                  = newError(KindIntegrity, constants.ErrCodeProfileNotFound, constants.MsgProfileNotFound)
	ErrProfileCreationFailed            = newError(KindIntegrity, constants.ErrCodeProfileCreation, constants.MsgProfileCreation)
)

// ValidationError reports a business-rule violation with a caller-facing message
func ValidationError(code, msg string) *AccountError {
	return newError(KindValidation, code, msg)
}

// wrapFault passes AccountErrors through and hides everything else behind a
// generic operation fault.
func wrapFault(op string, err error) error {
	if err == nil {
		return nil
	}
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return accErr
	}
	return &AccountError{
		Kind:    KindInternal,
		Code:    constants.ErrCodeInternal,
		Message: op + " failed",
		Err:     err,
	}
}
