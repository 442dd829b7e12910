package domain

import "errors"

var (
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidState      = errors.New("invalid order state")
	ErrAlreadyAccepted   = errors.New("order already accepted")
	ErrActiveOrderExists = errors.New("an active order already exists")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrNoRecipient       = errors.New("no recipient found")
	ErrEmptyMessage      = errors.New("message content is empty")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrNotVerified        = errors.New("account not verified")
	ErrNothingToUpdate    = errors.New("no fields to update")
	ErrValidation         = errors.New("validation failed")

	// ErrTransitionConflict is returned by the ledger when a conditioned write
	// found the row no longer in the expected state. Services translate it.
	ErrTransitionConflict = errors.New("order changed concurrently")
)

// Wire codes returned to API callers alongside the error message.
const (
	CodeNotAuthorized     = "NOT_AUTHORIZED"
	CodeInvalidState      = "INVALID_STATE"
	CodeAlreadyAccepted   = "ALREADY_ACCEPTED"
	CodeActiveOrderExists = "ACTIVE_ORDER_EXISTS"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidCode       = "INVALID_CODE"
	CodeNoRecipient       = "NO_RECIPIENT"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeExpired           = "EXPIRED"
	CodeNotVerified       = "NOT_VERIFIED"
	CodeUserExists        = "USER_EXISTS"
	CodeNothingToUpdate   = "NOTHING_TO_UPDATE"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInternal          = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotAuthorized, CodeNotAuthorized},
	{ErrInvalidState, CodeInvalidState},
	{ErrTransitionConflict, CodeInvalidState},
	{ErrAlreadyAccepted, CodeAlreadyAccepted},
	{ErrActiveOrderExists, CodeActiveOrderExists},
	{ErrOrderNotFound, CodeNotFound},
	{ErrUserNotFound, CodeNotFound},
	{ErrInvalidCode, CodeInvalidCode},
	{ErrNoRecipient, CodeNoRecipient},
	{ErrInvalidCredentials, CodeInvalidCredential},
	{ErrTokenExpired, CodeExpired},
	{ErrNotVerified, CodeNotVerified},
	{ErrUserExists, CodeUserExists},
	{ErrNothingToUpdate, CodeNothingToUpdate},
	{ErrEmptyMessage, CodeValidationFailed},
	{ErrValidation, CodeValidationFailed},
}

// ErrorCode returns the wire code for a known domain error, or CodeInternal.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
