// Package server wires gophmsg together: structured logging, the database
// and its migrations, the private key store, event sinks and the identity
// and message services. Run drives them from the interactive CLI.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/gophmsg/internal/client/cli"
	"github.com/dmitrijs2005/gophmsg/internal/cryptox"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/dmitrijs2005/gophmsg/internal/filex"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/config"
	"github.com/dmitrijs2005/gophmsg/internal/server/delivery"
	"github.com/dmitrijs2005/gophmsg/internal/server/messaging"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophmsg/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	logFile io.Closer
	db      *sql.DB
	audit   *events.AuditRecorder
	metrics *events.MetricsRecorder

	Identity *services.IdentityService
	Messages *services.MessageService
}

// NewApp opens storage, applies migrations and builds the services. The
// returned App must be closed.
func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close(ctx)
		}
	}()

	if err := app.initLogger(); err != nil {
		return nil, err
	}

	app.db, err = dbx.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.New(cfg.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	recorders := events.Multi{events.NewLogRecorder(app.logger)}
	if cfg.AuditLogPath != "" {
		app.audit, err = events.NewAuditRecorder(cfg.AuditLogPath, app.logger)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, app.audit)
	}
	if cfg.MetricsTextfile != "" {
		app.metrics = events.NewMetricsRecorder()
		recorders = append(recorders, app.metrics)
	}

	keys := cryptox.NewKeyStore(cfg.KeysDir)

	app.Identity = services.NewIdentityService(app.db, rm, keys, cfg, recorders, app.logger)
	pipeline := messaging.NewPipeline(app.Identity, keys)
	tracker := delivery.NewTracker(app.db, rm)
	app.Messages = services.NewMessageService(app.db, rm, pipeline, tracker, app.Identity, recorders)

	app.logger.Info(ctx, "app initialized",
		"driver", cfg.DatabaseDriver,
		"keys_dir", cfg.KeysDir,
		"audit", cfg.AuditLogPath != "",
		"metrics", cfg.MetricsTextfile != "")

	return app, nil
}

func (app *App) initLogger() error {
	var w io.Writer = os.Stderr
	if app.config.LogFile != "" {
		if _, err := filex.EnsureDir(filepath.Dir(app.config.LogFile), 0o700); err != nil {
			return err
		}
		f, err := os.OpenFile(app.config.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		app.logFile = f
		w = f
	}

	logger, err := logging.New(app.config.LogLevel, w)
	if err != nil {
		return err
	}
	app.logger = logger
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run starts the interactive client on in/out and blocks until the user
// exits or a termination signal arrives.
func (app *App) Run(ctx context.Context, in io.Reader, out io.Writer) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	app.logger.Info(ctx, "Starting app...")
	cli.NewApp(app.Identity, app.Messages, in, out).Run(ctx)
	app.logger.Info(ctx, "Stopping app...")
}

// Close flushes metrics and releases the audit log, database and log file.
func (app *App) Close(ctx context.Context) error {
	var errs []error

	if app.metrics != nil {
		if err := app.metrics.WriteTextfile(app.config.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if app.audit != nil {
		if err := app.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.logFile != nil {
		if err := app.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
