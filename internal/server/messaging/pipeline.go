// Package messaging turns plaintext into encrypted envelopes and back.
//
// Each envelope carries a fresh AES-256-GCM key wrapped under the
// recipient's RSA public key. Only the recipient's sealed private key, opened
// with their passphrase, can recover the body. The pipeline never persists
// anything; callers store the returned envelope themselves.
package messaging

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/cryptox"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

// Directory resolves an identifier to its PEM encoded public key.
// Implementations return common.ErrRecipientUnknown (or common.ErrorNotFound)
// when the identity does not exist.
type Directory interface {
	LookupPublicKey(ctx context.Context, id int64) ([]byte, error)
}

// PrivateKeySource opens an identity's private key. *cryptox.KeyStore
// satisfies it.
type PrivateKeySource interface {
	LoadPrivateKey(id int64, passphrase []byte) (*rsa.PrivateKey, error)
}

type Pipeline struct {
	dir  Directory
	keys PrivateKeySource
	now  func() time.Time
}

type Option func(*Pipeline)

// WithClock replaces time.Now as the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(dir Directory, keys PrivateKeySource, opts ...Option) *Pipeline {
	p := &Pipeline{dir: dir, keys: keys, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Send encrypts plaintext for recipient and returns the envelope with both
// delivery flags cleared. Identifiers are validated before any key work.
func (p *Pipeline) Send(ctx context.Context, sender, recipient int64, plaintext []byte) (*models.Envelope, error) {
	if err := models.ValidateIdentifier(sender); err != nil {
		return nil, err
	}
	if err := models.ValidateIdentifier(recipient); err != nil {
		return nil, err
	}

	pubPEM, err := p.dir.LookupPublicKey(ctx, recipient)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %d", common.ErrRecipientUnknown, recipient)
		}
		return nil, err
	}
	if len(pubPEM) == 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrRecipientUnknown, recipient)
	}

	pub, err := cryptox.ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	nonce, ciphertext, err := cryptox.Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	wrapped, err := cryptox.WrapKeyFor(key, pub)
	if err != nil {
		return nil, err
	}

	return &models.Envelope{
		Version:     models.EnvelopeSchemaVersion,
		SenderID:    sender,
		RecipientID: recipient,
		WrappedKey:  wrapped,
		Nonce:       nonce,
		Ciphertext:  ciphertext,
		CreatedAt:   p.now().UTC(),
	}, nil
}

// Open recovers the plaintext of env for owner. The first failure in the
// load, unwrap, decrypt chain is returned unchanged.
func (p *Pipeline) Open(ctx context.Context, env *models.Envelope, owner int64, passphrase []byte) ([]byte, error) {
	if err := p.checkOwner(env, owner); err != nil {
		return nil, err
	}

	priv, err := p.keys.LoadPrivateKey(owner, passphrase)
	if err != nil {
		return nil, err
	}

	return openWith(env, priv)
}

// Opened is one result of OpenBatch.
type Opened struct {
	Envelope  *models.Envelope
	Plaintext []byte
	Err       error
}

// OpenBatch opens every envelope with owner's key, loaded once. Failures of
// individual envelopes are reported in Opened.Err; a key that cannot be
// loaded fails the whole batch.
func (p *Pipeline) OpenBatch(ctx context.Context, envs []*models.Envelope, owner int64, passphrase []byte) ([]Opened, error) {
	if err := models.ValidateIdentifier(owner); err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, nil
	}

	priv, err := p.keys.LoadPrivateKey(owner, passphrase)
	if err != nil {
		return nil, err
	}

	result := make([]Opened, 0, len(envs))
	for _, env := range envs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		o := Opened{Envelope: env}
		if err := p.checkOwner(env, owner); err != nil {
			o.Err = err
		} else {
			o.Plaintext, o.Err = openWith(env, priv)
		}
		result = append(result, o)
	}

	return result, nil
}

func (p *Pipeline) checkOwner(env *models.Envelope, owner int64) error {
	if err := models.ValidateIdentifier(owner); err != nil {
		return err
	}
	if env == nil {
		return errors.New("open: nil envelope")
	}
	return env.CheckVersion()
}

func openWith(env *models.Envelope, priv *rsa.PrivateKey) ([]byte, error) {
	key, err := cryptox.UnwrapKey(env.WrappedKey, priv)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	return cryptox.Decrypt(key, env.Nonce, env.Ciphertext)
}
