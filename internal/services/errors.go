// Package services defines the business logic for accounts, login sessions,
// conversation history and chat turns. This file centralizes service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Persistence failures are returned as raw database errors.
package services

import "errors"

// Validation errors (HTTP 400).
var (
	// ErrEmptyPrompt is returned when a chat turn carries no text.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrPromptTooLong is returned when a chat turn exceeds the configured
	// rune limit.
	ErrPromptTooLong = errors.New("prompt too long")

	// ErrInvalidSession is returned when the conversation key is empty or
	// longer than domain.MaxSessionIDLen.
	ErrInvalidSession = errors.New("invalid session id")

	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidEmail is returned for addresses that do not look like one.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidName is returned when the display name is too long.
	ErrInvalidName = errors.New("name too long")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash (> 72 bytes).
	ErrPasswordTooLong = errors.New("password too long")

	// ErrInvalidRole is returned when a message role is not human or ai.
	ErrInvalidRole = errors.New("invalid message role")
)

// Account errors.
var (
	// ErrEmailExists is returned on signup with an already registered email (409).
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials is returned when email/password do not match (401).
	// Unknown email and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned when a session token is missing, invalid,
	// expired or revoked (401).
	ErrUnauthenticated = errors.New("authentication required")
)

// ErrModel wraps every failure of the upstream language model (502).
var ErrModel = errors.New("model error")

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrEmptyPrompt, ErrPromptTooLong, ErrInvalidSession,
		ErrMissingCredentials, ErrInvalidEmail, ErrInvalidName, ErrPasswordTooLong,
		ErrInvalidRole,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
