package cryptox

import "errors"

var (
	// Key storage errors.
	ErrKeyNotFound     = errors.New("private key not found")
	ErrKeyCorrupt      = errors.New("private key corrupt or passphrase wrong")
	ErrKeyExists       = errors.New("private key already exists")
	ErrEmptyPassphrase = errors.New("empty passphrase")

	// Key wrapping errors.
	ErrRecipientKeyInvalid = errors.New("recipient public key invalid")
	ErrPlaintextTooLarge   = errors.New("plaintext too large for key wrapping")
	ErrUnwrapFailed        = errors.New("symmetric key unwrap failed")

	// Payload errors.
	ErrAuthenticationFailed = errors.New("message authentication failed")
	ErrInvalidKeySize       = errors.New("invalid key size")

	ErrEntropyUnavailable = errors.New("secure random source unavailable")
)
