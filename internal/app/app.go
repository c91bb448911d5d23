package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"ids-go/internal/baseline"
	"ids-go/internal/config"
	"ids-go/internal/database"
	"ids-go/internal/encryption"
	"ids-go/internal/fs"
	"ids-go/internal/ids"
	"ids-go/internal/mirror"
	"ids-go/internal/ports"
)

// App is the application layer between the CLI/API and ids.Service.
// It constructs all dependencies from config, expands the monitored path
// list, and manages the database and log lifecycle on Close.
type App struct {
	cfg       *config.Config
	fsmgr     ids.FilesystemManager
	reports   ids.ReportDatabase
	encryptor ids.Encryptor
	service   *ids.Service
	logger    *zap.Logger
	logCloser io.Closer
	inv       *Invocation
}

// NewApp creates a fully wired App from the given config.
// command identifies the CLI command being run (e.g. "build", "check").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, command string) (*App, error) {
	inv := NewInvocation(command, time.Now())

	logger, logCloser, err := newLogger(cfg.Log, inv.ID, command)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := newZapAdapter(logger)

	fail := func(err error, closers ...io.Closer) (*App, error) {
		for _, c := range closers {
			c.Close()
		}
		logger.Error("initialization failed", zap.Error(err))
		logCloser.Close()
		return nil, err
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	enumerator, err := ports.NewEnumeratorFromConfig(cfg.Ports, adapter)
	if err != nil {
		return fail(fmt.Errorf("creating port enumerator: %w", err))
	}

	reports, err := database.NewReportDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fail(fmt.Errorf("creating report database: %w", err))
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fail(fmt.Errorf("creating encryptor: %w", err), reports)
	}

	m, err := mirror.NewMirrorFromConfig(ctx, cfg.Mirror)
	if err != nil {
		return fail(fmt.Errorf("creating mirror: %w", err), reports)
	}

	store := baseline.NewFileStore(cfg.Baseline.Path)
	svc := ids.NewService(fsmgr, enumerator, store, reports, adapter, ids.RealClock{}, ids.UUIDGenerator{})
	if m != nil {
		svc.SetMirror(cfg.HostID, m, enc)
	}

	logger.Debug("application initialized",
		zap.String("baseline", store.Location()),
		zap.Bool("ports", enumerator != nil),
		zap.Bool("mirror", m != nil),
		zap.Bool("encrypted", enc != nil))

	return &App{
		cfg:       cfg,
		fsmgr:     fsmgr,
		reports:   reports,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		logCloser: logCloser,
		inv:       inv,
	}, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Service exposes the wired ids.Service, for the HTTP API.
func (a *App) Service() *ids.Service {
	return a.service
}

// Logger returns the invocation's logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Encryptor returns the configured encryptor, or nil when mirrored
// baselines are stored in plaintext.
func (a *App) Encryptor() ids.Encryptor {
	return a.encryptor
}

// MonitoredPaths returns the configured files followed by the regular files
// of every configured directory. Duplicates keep their first position.
func (a *App) MonitoredPaths() ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, p := range a.cfg.FilesToMonitor {
		add(p)
	}
	for _, dir := range a.cfg.Directories {
		found, err := a.fsmgr.FindFiles(dir.Path, dir.Recursive)
		if err != nil {
			return nil, fmt.Errorf("expanding directory %s: %w", dir.Path, err)
		}
		for _, p := range found {
			add(p)
		}
	}

	if len(paths) == 0 {
		return nil, ids.ErrConfigurationMissing
	}
	return paths, nil
}

// Build fingerprints the monitored paths and persists the result as the
// baseline. minify forces the compact format; otherwise the config decides.
func (a *App) Build(ctx context.Context, minify bool) (*ids.Snapshot, error) {
	paths, err := a.MonitoredPaths()
	if err != nil {
		return nil, err
	}
	return a.service.Build(ctx, paths, a.format(minify))
}

// Check compares the monitored files with the baseline and records the report.
func (a *App) Check(ctx context.Context) (*ids.Report, error) {
	return a.service.Check(ctx)
}

// Baseline returns the persisted baseline.
func (a *App) Baseline() (*ids.Snapshot, error) {
	return a.service.Baseline()
}

// ListReports returns the most recent check reports, newest first.
func (a *App) ListReports(limit int) ([]*ids.Report, error) {
	return a.service.ListReports(limit)
}

// GetReport returns one report, or nil if it does not exist.
func (a *App) GetReport(id int64) (*ids.Report, error) {
	return a.service.GetReport(id)
}

// PushBaseline uploads the current baseline to the mirror.
func (a *App) PushBaseline() error {
	return a.service.PushBaseline()
}

// PullBaseline restores the baseline from the mirror.
func (a *App) PullBaseline(passphrase string, minify bool) (*ids.Snapshot, error) {
	return a.service.PullBaseline(passphrase, a.format(minify))
}

// MirrorRequiresPassphrase reports whether PullBaseline needs a passphrase.
func (a *App) MirrorRequiresPassphrase() bool {
	return a.service.MirrorRequiresPassphrase()
}

func (a *App) format(minify bool) ids.Format {
	if minify || a.cfg.Baseline.Minify {
		return ids.FormatCompact
	}
	return ids.FormatReadable
}

// Finish records the outcome of the invocation in the log.
func (a *App) Finish(status string, err error) {
	a.inv.Finish(status, err)
	fields := []zap.Field{
		zap.String("status", a.inv.Status),
		zap.Duration("duration", time.Since(a.inv.StartedAt)),
	}
	if err != nil {
		a.logger.Error("invocation failed", append(fields, zap.Error(err))...)
		return
	}
	a.logger.Info("invocation finished", fields...)
}

// Close closes the report database and flushes the log.
func (a *App) Close() error {
	var firstErr error
	if a.reports != nil {
		if err := a.reports.Close(); err != nil {
			firstErr = fmt.Errorf("closing report database: %w", err)
		}
	}
	if err := a.logCloser.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing log: %w", err)
	}
	return firstErr
}
