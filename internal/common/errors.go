// Package common defines sentinel errors shared by the storage, service and
// CLI layers of gophmsg. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrTooManyAttempts = errors.New("too many attempts")

	// Messaging errors.
	ErrRecipientUnknown    = errors.New("recipient unknown")
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
