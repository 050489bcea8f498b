package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const (
	// KeyBits is the modulus size of every generated key pair.
	KeyBits = 2048

	publicKeyBlockType = "PUBLIC KEY"
)

// GenerateKeyPair creates a new RSA key pair from the system entropy source.
// It is called exactly once per identity, at registration.
func GenerateKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate rsa key: %v", ErrEntropyUnavailable, err)
	}
	return priv, &priv.PublicKey, nil
}

// MarshalPublicKey encodes pub as a PEM "PUBLIC KEY" block (SubjectPublicKeyInfo).
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyBlockType, Bytes: der}), nil
}

// ParsePublicKey is the inverse of MarshalPublicKey. Anything that is not a PEM
// encoded RSA public key of at least KeyBits bits is rejected with
// ErrRecipientKeyInvalid.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicKeyBlockType {
		return nil, fmt.Errorf("%w: no %s block", ErrRecipientKeyInvalid, publicKeyBlockType)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecipientKeyInvalid, err)
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa key", ErrRecipientKeyInvalid)
	}

	if pub.N.BitLen() < KeyBits {
		return nil, fmt.Errorf("%w: got %d bits, want at least %d", ErrRecipientKeyInvalid, pub.N.BitLen(), KeyBits)
	}

	return pub, nil
}
