package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken(5551234567, secret, time.Hour)
	require.NoError(t, err)

	got, err := GetIdentifierFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(5551234567), got)
}

func TestGetIdentifierFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken(5551234567, secret, -1*time.Minute)
	require.NoError(t, err)

	_, err = GetIdentifierFromToken(tok, secret)
	assert.True(t, errors.Is(err, common.ErrTokenExpired), "got %v", err)
}

func TestGetIdentifierFromToken_Invalid(t *testing.T) {
	t.Parallel()

	good, err := GenerateToken(5551234567, []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Identifier:       5551234567,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Identifier: 5551234567}).
		SignedString([]byte("right-secret"))
	require.NoError(t, err)

	noIdentifier, err := GenerateToken(0, []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"wrong secret":  good,
		"garbage":       "not.a.token",
		"none alg":      noneAlg,
		"no expiry":     noExpiry,
		"no identifier": noIdentifier,
	}

	for name, tok := range cases {
		secret := []byte("right-secret")
		if name == "wrong secret" {
			secret = []byte("other-secret")
		}
		_, err := GetIdentifierFromToken(tok, secret)
		assert.True(t, errors.Is(err, common.ErrInvalidToken), "%s: got %v", name, err)
	}
}
