package cryptox

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/filex"
)

const (
	keyFileSuffix = "_private_key.pem.enc"
	keyDirPerm    = 0o700
	keyFilePerm   = 0o600
)

// KeyStore keeps sealed private keys on local disk, one file per identity.
// Access to a given identity's file is serialized; different identities
// proceed in parallel.
type KeyStore struct {
	dir    string
	params KDFParams

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

type KeyStoreOption func(*KeyStore)

// WithKDFParams overrides DefaultKDFParams for newly sealed keys. Existing
// files always open with the parameters recorded in their headers.
func WithKDFParams(p KDFParams) KeyStoreOption {
	return func(s *KeyStore) { s.params = p }
}

func NewKeyStore(dir string, opts ...KeyStoreOption) *KeyStore {
	s := &KeyStore{
		dir:    dir,
		params: DefaultKDFParams,
		locks:  make(map[int64]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the file that holds id's sealed private key.
func (s *KeyStore) Path(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+keyFileSuffix)
}

func (s *KeyStore) lock(id int64) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// PersistPrivateKey seals key under passphrase and writes it for id. The
// directory is created on first use. An existing key is never overwritten.
func (s *KeyStore) PersistPrivateKey(id int64, key *rsa.PrivateKey, passphrase []byte) error {
	if key == nil {
		return errors.New("persist private key: nil key")
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	defer common.WipeByteArray(der)

	sealed, err := sealPEM(der, passphrase, ownerAAD(id), s.params)
	if err != nil {
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	if _, err := filex.EnsureDir(s.dir, keyDirPerm); err != nil {
		return fmt.Errorf("key dir: %w", err)
	}

	if err := filex.WriteFileExclusive(s.Path(id), sealed, keyFilePerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrKeyExists
		}
		return fmt.Errorf("write private key: %w", err)
	}

	return nil
}

// LoadPrivateKey reads and unseals id's private key.
func (s *KeyStore) LoadPrivateKey(id int64, passphrase []byte) (*rsa.PrivateKey, error) {
	unlock := s.lock(id)
	data, err := os.ReadFile(s.Path(id))
	unlock()

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("read private key: %w", err)
	}

	der, err := openPEM(data, passphrase, ownerAAD(id))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(der)

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: pkcs8: %v", ErrKeyCorrupt, err)
	}

	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa key", ErrKeyCorrupt)
	}

	return priv, nil
}

// HasPrivateKey reports whether a key file exists for id.
func (s *KeyStore) HasPrivateKey(id int64) (bool, error) {
	unlock := s.lock(id)
	defer unlock()

	_, err := os.Stat(s.Path(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// RemovePrivateKey deletes id's key file. Removing a missing key is not an error.
func (s *KeyStore) RemovePrivateKey(id int64) error {
	unlock := s.lock(id)
	defer unlock()

	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove private key: %w", err)
	}
	return nil
}

func ownerAAD(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}
