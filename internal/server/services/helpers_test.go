package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/cryptox"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/config"
	"github.com/dmitrijs2005/gophmsg/internal/server/delivery"
	"github.com/dmitrijs2005/gophmsg/internal/server/messaging"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

const (
	alice = "5551234567"
	bob   = "5557654321"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureRecorder) Record(_ context.Context, e events.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *captureRecorder) ops(op string) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.Operation == op {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	keys     *cryptox.KeyStore
	cfg      *config.Config
	rec      *captureRecorder
	identity *IdentityService
	messages *MessageService
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret-key"
	cfg.SessionTokenValidityDuration = time.Hour
	cfg.AuditLogPath = ""
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds the services over a temporary SQLite file. wrap, if
// set, decorates the repository manager the identity service sees.
func newTestEnvWith(t *testing.T, wrap func(repomanager.RepositoryManager) repomanager.RepositoryManager) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	dsn := "file:" + filepath.Join(dir, "gophmsg.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := dbx.Open(ctx, dbx.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(ctx, db))

	idRM := repomanager.RepositoryManager(rm)
	if wrap != nil {
		idRM = wrap(rm)
	}

	keys := cryptox.NewKeyStore(filepath.Join(dir, "keys"),
		cryptox.WithKDFParams(cryptox.KDFParams{Time: 1, MemoryKB: 1024, Threads: 1}))
	cfg := testConfig()
	rec := &captureRecorder{}

	identity := NewIdentityService(db, idRM, keys, cfg, rec, logging.Discard())
	pipeline := messaging.NewPipeline(identity, keys)
	tracker := delivery.NewTracker(db, rm)
	messages := NewMessageService(db, rm, pipeline, tracker, identity, rec)

	return &testEnv{db: db, rm: rm, keys: keys, cfg: cfg, rec: rec, identity: identity, messages: messages}
}

func (e *testEnv) register(t *testing.T, id, password string) {
	t.Helper()
	_, err := e.identity.Register(context.Background(), id, []byte(password))
	require.NoError(t, err)
}

func (e *testEnv) login(t *testing.T, id, password string) string {
	t.Helper()
	s, err := e.identity.Login(context.Background(), id, []byte(password))
	require.NoError(t, err)
	return s.Token
}
