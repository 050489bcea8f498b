package cryptox

import (
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// MaxWrapSize returns the largest payload OAEP-SHA256 can carry under pub.
func MaxWrapSize(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

// WrapKey encrypts symmetricKey for the holder of the PEM encoded public key
// using RSA-OAEP with SHA-256 (hash and MGF1) and an empty label.
func WrapKey(symmetricKey, recipientPublicKey []byte) ([]byte, error) {
	pub, err := ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, err
	}
	return WrapKeyFor(symmetricKey, pub)
}

// WrapKeyFor is WrapKey for an already parsed key.
func WrapKeyFor(symmetricKey []byte, pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil key", ErrRecipientKeyInvalid)
	}

	if limit := MaxWrapSize(pub); len(symmetricKey) > limit {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrPlaintextTooLarge, len(symmetricKey), limit)
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), randReader, pub, symmetricKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: oaep: %v", ErrEntropyUnavailable, err)
	}

	return wrapped, nil
}

// UnwrapKey recovers the symmetric key wrapped by WrapKey. Every failure,
// including a blob whose length differs from the key size, is reported as
// ErrUnwrapFailed without further detail.
func UnwrapKey(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil || len(wrapped) != priv.Size() {
		return nil, ErrUnwrapFailed
	}

	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}

	return key, nil
}
