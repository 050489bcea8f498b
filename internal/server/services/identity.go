// Package services contains the business logic behind the CLI. This file
// implements IdentityService: registration with key generation, credential
// checks, throttled login issuing session tokens, and public key lookup for
// the message pipeline.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/cryptox"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/auth"
	"github.com/dmitrijs2005/gophmsg/internal/server/config"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
)

// ErrAuditDisabled is returned by History when no audit log is configured.
var ErrAuditDisabled = errors.New("audit log is disabled")

// Session is the result of a successful login.
type Session struct {
	Identifier int64
	Token      string
}

type IdentityService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	keys                         *cryptox.KeyStore
	limiter                      *auth.LoginLimiter
	jwtSecret                    []byte
	sessionTokenValidityDuration time.Duration
	recorder                     events.Recorder
	auditPath                    string
	log                          logging.Logger
	now                          func() time.Time

	// registration is check-then-create across the key file and the
	// database, so it runs one at a time.
	registerMu sync.Mutex
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, keys *cryptox.KeyStore, cfg *config.Config,
	rec events.Recorder, log logging.Logger) *IdentityService {
	if rec == nil {
		rec = events.Nop{}
	}
	return &IdentityService{
		db:                           db,
		repomanager:                  m,
		keys:                         keys,
		limiter:                      auth.NewLoginLimiter(cfg.LoginAttempts, cfg.LoginAttemptInterval),
		jwtSecret:                    []byte(cfg.SecretKey),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
		recorder:                     rec,
		auditPath:                    cfg.AuditLogPath,
		log:                          log.With("module", "identity"),
		now:                          time.Now,
	}
}

// Register creates an identity for rawID. A fresh key pair is generated, the
// private key is sealed under password and written to disk before the
// identity row exists, and removed again if the row cannot be inserted.
func (s *IdentityService) Register(ctx context.Context, rawID string, password []byte) (identity *models.Identity, err error) {
	ev := events.Start(events.OpRegister, 0)
	defer func() { s.recorder.Record(ctx, ev.Finish(err)) }()

	id, err := models.ParseIdentifier(rawID)
	if err != nil {
		return nil, err
	}
	ev.Actor = id

	if len(password) == 0 {
		return nil, cryptox.ErrEmptyPassphrase
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	repo := s.repomanager.Identities(s.db)

	exists, err := repo.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error checking identity: %w", err)
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	orphan, err := s.keys.HasPrivateKey(id)
	if err != nil {
		return nil, fmt.Errorf("error checking key file: %w", err)
	}
	if orphan {
		s.log.Warn(ctx, "removing orphaned private key", "identifier", id)
		if err := s.keys.RemovePrivateKey(id); err != nil {
			return nil, err
		}
	}

	priv, pub, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	pubPEM, err := cryptox.MarshalPublicKey(pub)
	if err != nil {
		return nil, err
	}

	if err := s.keys.PersistPrivateKey(id, priv, password); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		s.rollbackKey(ctx, id)
		return nil, err
	}

	identity = &models.Identity{
		ID:           id,
		PublicKey:    pubPEM,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := repo.Create(ctx, identity); err != nil {
		s.rollbackKey(ctx, id)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating identity: %w", err)
	}

	return identity, nil
}

func (s *IdentityService) rollbackKey(ctx context.Context, id int64) {
	if err := s.keys.RemovePrivateKey(id); err != nil {
		s.log.Error(ctx, "rollback of private key failed", "identifier", id, "error", err)
	}
}

func (s *IdentityService) IdentityExists(ctx context.Context, id int64) (bool, error) {
	return s.repomanager.Identities(s.db).Exists(ctx, id)
}

// VerifyCredentials checks password against id's bcrypt hash. Unknown
// identifiers cost one hash comparison too so they are not told apart by
// timing.
func (s *IdentityService) VerifyCredentials(ctx context.Context, id int64, password []byte) (bool, error) {
	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(dummyHash(), password)
			return false, nil
		}
		return false, err
	}
	return cryptox.VerifyPassword(identity.PasswordHash, password), nil
}

// Login verifies credentials and returns a session token. Attempts are
// throttled per identifier; a success restores the full allowance.
func (s *IdentityService) Login(ctx context.Context, rawID string, password []byte) (session *Session, err error) {
	ev := events.Start(events.OpLogin, 0)
	defer func() { s.recorder.Record(ctx, ev.Finish(err)) }()

	id, err := models.ParseIdentifier(rawID)
	if err != nil {
		return nil, err
	}
	ev.Actor = id

	if !s.limiter.Allow(id, s.now()) {
		return nil, common.ErrTooManyAttempts
	}

	ok, err := s.VerifyCredentials(ctx, id, password)
	if err != nil {
		s.log.Error(ctx, "credential check failed", "identifier", id, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	s.limiter.Reset(id)

	token, err := auth.GenerateToken(id, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &Session{Identifier: id, Token: token}, nil
}

// Authenticate returns the identifier a session token was issued to.
func (s *IdentityService) Authenticate(token string) (int64, error) {
	return auth.GetIdentifierFromToken(token, s.jwtSecret)
}

// History returns the most recent audit events performed by the session's
// identity, oldest first. limit <= 0 returns all of them.
func (s *IdentityService) History(_ context.Context, token string, limit int) ([]events.Event, error) {
	id, err := s.Authenticate(token)
	if err != nil {
		return nil, err
	}

	if s.auditPath == "" {
		return nil, ErrAuditDisabled
	}

	all, err := events.ReadAudit(s.auditPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	var own []events.Event
	for _, e := range all {
		if e.Actor == id {
			own = append(own, e)
		}
	}
	if limit > 0 && len(own) > limit {
		own = own[len(own)-limit:]
	}

	return own, nil
}

// LookupPublicKey returns id's PEM public key, or common.ErrRecipientUnknown.
func (s *IdentityService) LookupPublicKey(ctx context.Context, id int64) ([]byte, error) {
	key, err := s.repomanager.Identities(s.db).GetPublicKey(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %d", common.ErrRecipientUnknown, id)
		}
		return nil, err
	}
	return key, nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = cryptox.HashPassword([]byte("gophmsg-unknown-identity"))
	})
	return dummy
}
