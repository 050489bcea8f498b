package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// SymmetricKeySize is the AES-256 key length in bytes.
	SymmetricKeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
)

// GenerateSymmetricKey returns a fresh random AES-256 key. Every message gets
// its own key; keys are never reused.
func GenerateSymmetricKey() ([]byte, error) {
	return randomBytes(SymmetricKeySize)
}

// Encrypt seals plaintext with AES-256-GCM under key using a fresh random
// 12-byte nonce. No associated data is used. The returned ciphertext carries
// the 16-byte authentication tag at its end.
//
// Example:
//
//	key, _ := cryptox.GenerateSymmetricKey()
//	nonce, ct, err := cryptox.Encrypt(key, []byte("Subject:Hi\nContent:Hello"))
//	if err != nil {
//	    return err
//	}
//	pt, err := cryptox.Decrypt(key, nonce, ct)
func Encrypt(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = randomBytes(NonceSize)
	if err != nil {
		return nil, nil, err
	}

	return nonce, seal(aead, nonce, plaintext), nil
}

// Decrypt opens ciphertext produced by Encrypt. A wrong key, a modified
// nonce or ciphertext, or a nonce of the wrong length all yield
// ErrAuthenticationFailed.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != aead.NonceSize() {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

func seal(aead cipher.AEAD, nonce, plaintext []byte) []byte {
	return aead.Seal(nil, nonce, plaintext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != SymmetricKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SymmetricKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
