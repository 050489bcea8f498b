package cryptox

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt verifier stored with an identity.
func HashPassword(password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassphrase
	}
	return bcrypt.GenerateFromPassword(password, bcryptCost)
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(hash, password []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, password) == nil
}
