package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"
)

// randReader is the entropy source for symmetric keys, nonces, salts and
// OAEP padding. Replaced in tests.
var randReader io.Reader = rand.Reader

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return b, nil
}
