package cryptox

import (
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealedKeyBlockType = "SEALED PRIVATE KEY"
	sealVersion        = "1"
	sealKDF            = "argon2id"
	sealSaltSize       = 16

	// Ceilings on header-supplied KDF costs. Files above them are corrupt.
	maxKDFTime     = 16
	maxKDFMemoryKB = 1 << 20
	maxKDFThreads  = 64
)

// KDFParams are the argon2id cost parameters used to derive the key that
// seals a private key at rest.
type KDFParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// DefaultKDFParams is used unless a KeyStore is built WithKDFParams.
var DefaultKDFParams = KDFParams{Time: 2, MemoryKB: 64 * 1024, Threads: 1}

func deriveSealKey(passphrase, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKB, p.Threads, chacha20poly1305.KeySize)
}

// sealPEM encrypts plaintext under a passphrase-derived key and returns a PEM
// block whose headers carry everything needed to reverse it except the
// passphrase. aad binds the blob to its owner.
func sealPEM(plaintext, passphrase, aad []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	salt, err := randomBytes(sealSaltSize)
	if err != nil {
		return nil, err
	}

	key := deriveSealKey(passphrase, salt, p)
	defer common.WipeByteArray(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}

	block := &pem.Block{
		Type: sealedKeyBlockType,
		Headers: map[string]string{
			"Version":     sealVersion,
			"KDF":         sealKDF,
			"KDF-Time":    strconv.FormatUint(uint64(p.Time), 10),
			"KDF-Memory":  strconv.FormatUint(uint64(p.MemoryKB), 10),
			"KDF-Threads": strconv.FormatUint(uint64(p.Threads), 10),
			"Salt":        hex.EncodeToString(salt),
			"Nonce":       hex.EncodeToString(nonce),
		},
		Bytes: aead.Seal(nil, nonce, plaintext, aad),
	}

	return pem.EncodeToMemory(block), nil
}

// openPEM reverses sealPEM. Every failure is ErrKeyCorrupt: a wrong
// passphrase cannot be told apart from a damaged file.
func openPEM(data, passphrase, aad []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != sealedKeyBlockType {
		return nil, fmt.Errorf("%w: no %s block", ErrKeyCorrupt, sealedKeyBlockType)
	}

	h := block.Headers
	if h["Version"] != sealVersion || h["KDF"] != sealKDF {
		return nil, fmt.Errorf("%w: unsupported envelope %q/%q", ErrKeyCorrupt, h["Version"], h["KDF"])
	}

	p, err := parseKDFHeaders(h)
	if err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(h["Salt"])
	if err != nil || len(salt) != sealSaltSize {
		return nil, fmt.Errorf("%w: bad salt", ErrKeyCorrupt)
	}
	nonce, err := hex.DecodeString(h["Nonce"])
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: bad nonce", ErrKeyCorrupt)
	}

	key := deriveSealKey(passphrase, salt, p)
	defer common.WipeByteArray(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, block.Bytes, aad)
	if err != nil {
		return nil, ErrKeyCorrupt
	}

	return plaintext, nil
}

func parseKDFHeaders(h map[string]string) (KDFParams, error) {
	t, err1 := strconv.ParseUint(h["KDF-Time"], 10, 32)
	m, err2 := strconv.ParseUint(h["KDF-Memory"], 10, 32)
	th, err3 := strconv.ParseUint(h["KDF-Threads"], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil || t == 0 || th == 0 {
		return KDFParams{}, fmt.Errorf("%w: bad kdf parameters", ErrKeyCorrupt)
	}
	if t > maxKDFTime || m > maxKDFMemoryKB || th > maxKDFThreads {
		return KDFParams{}, fmt.Errorf("%w: kdf parameters out of range", ErrKeyCorrupt)
	}
	return KDFParams{Time: uint32(t), MemoryKB: uint32(m), Threads: uint8(th)}, nil
}
