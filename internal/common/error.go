// Package common defines shared constants, sentinel errors and error types
// used across mxkeeper components. Callers should use errors.Is / errors.As
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// ErrNukePasswordEntered signals that the duress password was entered at
	// the application-password prompt. The caller must treat this as a wipe
	// trigger, never as an ordinary failed unlock.
	ErrNukePasswordEntered = errors.New("nuke password entered")
)

// ServerError is a well-formed error response from a Matrix homeserver.
// It is always propagated to the caller unchanged so the UI can render the
// server-provided message; it is never downgraded to a boolean result.
type ServerError struct {
	Code       string // Matrix error code, e.g. "M_FORBIDDEN"
	Message    string
	HTTPStatus int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// AsServerError unwraps err into a *ServerError if one is present in the chain.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// PasswordReason identifies which application-password policy rule failed.
type PasswordReason string

const (
	ReasonWrongLength PasswordReason = "wrong_length"
	ReasonNoDigit     PasswordReason = "no_digit"
	ReasonNoSymbol    PasswordReason = "no_symbol"
	ReasonNoLowercase PasswordReason = "no_lowercase"
	ReasonNoUppercase PasswordReason = "no_uppercase"
)

// InvalidPasswordError is a local validation failure of the application
// password policy. It wraps ErrorValidation so callers can match the class
// with errors.Is and inspect the exact reason with errors.As.
type InvalidPasswordError struct {
	Reason PasswordReason
}

func (e *InvalidPasswordError) Error() string {
	return fmt.Sprintf("invalid password: %s", e.Reason)
}

func (e *InvalidPasswordError) Unwrap() error {
	return ErrorValidation
}
