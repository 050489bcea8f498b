package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/cryptox"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/auth"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/identities"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_PersistsKeyAndIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	identity, err := env.identity.Register(ctx, alice, []byte("pw-alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(5551234567), identity.ID)

	pub, err := cryptox.ParsePublicKey(identity.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, cryptox.KeyBits, pub.N.BitLen())
	assert.NotEqual(t, []byte("pw-alice"), identity.PasswordHash)

	fi, err := os.Stat(env.keys.Path(identity.ID))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	priv, err := env.keys.LoadPrivateKey(identity.ID, []byte("pw-alice"))
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(pub), "stored public key matches the sealed private key")

	exists, err := env.identity.IdentityExists(ctx, identity.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	got := env.rec.ops(events.OpRegister)
	require.Len(t, got, 1)
	assert.Equal(t, events.OutcomeOK, got[0].Outcome)
	assert.Equal(t, identity.ID, got[0].Actor)
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.identity.Register(ctx, "1234", []byte("pw"))
	assert.True(t, errors.Is(err, common.ErrMalformedIdentifier))

	_, err = env.identity.Register(ctx, alice, nil)
	assert.True(t, errors.Is(err, cryptox.ErrEmptyPassphrase))

	env.register(t, alice, "pw-alice")
	_, err = env.identity.Register(ctx, alice, []byte("other"))
	assert.True(t, errors.Is(err, common.ErrorAlreadyExists))

	_, err = env.keys.LoadPrivateKey(5551234567, []byte("pw-alice"))
	assert.NoError(t, err, "existing key untouched by a duplicate registration")

	failed := 0
	for _, e := range env.rec.ops(events.OpRegister) {
		if e.Outcome == events.OutcomeError {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
}

func TestRegister_RemovesOrphanedKeyFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.identity.Register(context.Background(), bob, []byte("first"))
	require.NoError(t, err)

	// Simulate a crash between key write and insert: key file, no row.
	_, err = env.db.Exec(`DELETE FROM identities WHERE id = ?`, 5557654321)
	require.NoError(t, err)

	_, err = env.identity.Register(context.Background(), bob, []byte("second"))
	require.NoError(t, err)

	_, err = env.keys.LoadPrivateKey(5557654321, []byte("second"))
	assert.NoError(t, err)
	_, err = env.keys.LoadPrivateKey(5557654321, []byte("first"))
	assert.True(t, errors.Is(err, cryptox.ErrKeyCorrupt))
}

type failingIdentities struct {
	identities.Repository
	err error
}

func (f *failingIdentities) Create(context.Context, *models.Identity) error { return f.err }

type failingCreateManager struct {
	repomanager.RepositoryManager
	err error
}

func (m *failingCreateManager) Identities(db dbx.DBTX) identities.Repository {
	return &failingIdentities{Repository: m.RepositoryManager.Identities(db), err: m.err}
}

func TestRegister_RollsBackKeyOnInsertFailure(t *testing.T) {
	for _, insertErr := range []error{errors.New("disk full"), common.ErrorAlreadyExists} {
		t.Run(insertErr.Error(), func(t *testing.T) {
			env := newTestEnvWith(t, func(rm repomanager.RepositoryManager) repomanager.RepositoryManager {
				return &failingCreateManager{RepositoryManager: rm, err: insertErr}
			})

			_, err := env.identity.Register(context.Background(), alice, []byte("pw"))
			assert.ErrorIs(t, err, insertErr)

			has, err := env.keys.HasPrivateKey(5551234567)
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "pw-alice")

	s, err := env.identity.Login(ctx, alice, []byte("pw-alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(5551234567), s.Identifier)

	id, err := env.identity.Authenticate(s.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(5551234567), id)

	_, err = env.identity.Login(ctx, alice, []byte("wrong"))
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))

	_, err = env.identity.Login(ctx, bob, []byte("pw"))
	assert.True(t, errors.Is(err, common.ErrorUnauthorized), "unknown identity looks like a bad password")

	_, err = env.identity.Login(ctx, "abc", []byte("pw"))
	assert.True(t, errors.Is(err, common.ErrMalformedIdentifier))
}

func TestLogin_Throttled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "pw-alice")

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.identity.now = func() time.Time { return now }

	for i := 0; i < env.cfg.LoginAttempts; i++ {
		_, err := env.identity.Login(ctx, alice, []byte("wrong"))
		require.True(t, errors.Is(err, common.ErrorUnauthorized))
	}

	_, err := env.identity.Login(ctx, alice, []byte("pw-alice"))
	assert.True(t, errors.Is(err, common.ErrTooManyAttempts), "correct password still refused while throttled")

	now = now.Add(env.cfg.LoginAttemptInterval)
	_, err = env.identity.Login(ctx, alice, []byte("pw-alice"))
	require.NoError(t, err)

	for i := 0; i < env.cfg.LoginAttempts; i++ {
		_, err := env.identity.Login(ctx, alice, []byte("wrong"))
		require.True(t, errors.Is(err, common.ErrorUnauthorized), "success restored the full burst")
	}
}

func TestAuthenticate_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.identity.Authenticate("garbage")
	assert.True(t, errors.Is(err, common.ErrInvalidToken))

	expired, err := auth.GenerateToken(5551234567, []byte(env.cfg.SecretKey), -time.Minute)
	require.NoError(t, err)
	_, err = env.identity.Authenticate(expired)
	assert.True(t, errors.Is(err, common.ErrTokenExpired))

	foreign, err := auth.GenerateToken(5551234567, []byte("another-secret"), time.Minute)
	require.NoError(t, err)
	_, err = env.identity.Authenticate(foreign)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestVerifyCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "pw-alice")

	ok, err := env.identity.VerifyCredentials(ctx, 5551234567, []byte("pw-alice"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.identity.VerifyCredentials(ctx, 5551234567, []byte("nope"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.identity.VerifyCredentials(ctx, 5557654321, []byte("pw-alice"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupPublicKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "pw-alice")

	key, err := env.identity.LookupPublicKey(ctx, 5551234567)
	require.NoError(t, err)
	_, err = cryptox.ParsePublicKey(key)
	assert.NoError(t, err)

	_, err = env.identity.LookupPublicKey(ctx, 5557654321)
	assert.True(t, errors.Is(err, common.ErrRecipientUnknown))
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.AuditLogPath = filepath.Join(t.TempDir(), "audit.jsonl")
	audit, err := events.NewAuditRecorder(cfg.AuditLogPath, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = audit.Close() })

	svc := NewIdentityService(env.db, env.rm, env.keys, cfg, audit, logging.Discard())

	aliceID, err := models.ParseIdentifier(alice)
	require.NoError(t, err)

	_, err = svc.Register(ctx, alice, []byte("pw-alice"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, bob, []byte("pw-bob"))
	require.NoError(t, err)
	_, err = svc.Login(ctx, alice, []byte("wrong"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	session, err := svc.Login(ctx, alice, []byte("pw-alice"))
	require.NoError(t, err)

	all, err := svc.History(ctx, session.Token, 0)
	require.NoError(t, err)
	ops := make([]string, 0, len(all))
	for _, e := range all {
		assert.Equal(t, aliceID, e.Actor, "only the caller's events")
		ops = append(ops, e.Operation+"/"+e.Outcome)
	}
	assert.Equal(t, []string{"register/ok", "login/error", "login/ok"}, ops)

	last, err := svc.History(ctx, session.Token, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, all[1:], last)

	_, err = svc.History(ctx, "bad-token", 0)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestHistory_DisabledOrMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "pw-alice")
	token := env.login(t, alice, "pw-alice")

	_, err := env.identity.History(ctx, token, 0)
	assert.ErrorIs(t, err, ErrAuditDisabled)

	cfg := testConfig()
	cfg.AuditLogPath = filepath.Join(t.TempDir(), "never-written.jsonl")
	svc := NewIdentityService(env.db, env.rm, env.keys, cfg, nil, logging.Discard())

	got, err := svc.History(ctx, token, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
