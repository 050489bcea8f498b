package cryptox

import (
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastKDF = KDFParams{Time: 1, MemoryKB: 1024, Threads: 1}

var (
	keysOnce sync.Once
	keyA     *rsa.PrivateKey
	keyB     *rsa.PrivateKey
	keysErr  error
)

// testKeys returns two distinct 2048-bit keys generated once per test binary.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		keyA, _, keysErr = GenerateKeyPair()
		if keysErr != nil {
			return
		}
		keyB, _, keysErr = GenerateKeyPair()
	})
	require.NoError(t, keysErr)
	return keyA, keyB
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func withRandReader(t *testing.T, r interface{ Read([]byte) (int, error) }) {
	t.Helper()
	old := randReader
	randReader = r
	t.Cleanup(func() { randReader = old })
}

func init() {
	bcryptCost = bcrypt.MinCost
}
