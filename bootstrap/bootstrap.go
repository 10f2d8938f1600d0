// Package bootstrap wires all dependencies for the course sync engine and
// the reference authority server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/artpar/coursesync/adapters/clock"
	"github.com/artpar/coursesync/adapters/idgen"
	"github.com/artpar/coursesync/adapters/memory"
	"github.com/artpar/coursesync/adapters/metrics"
	"github.com/artpar/coursesync/adapters/random"
	"github.com/artpar/coursesync/adapters/redis"
	"github.com/artpar/coursesync/adapters/remote"
	"github.com/artpar/coursesync/adapters/sqlite"
	"github.com/artpar/coursesync/app"
	"github.com/artpar/coursesync/config"
	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App is a wired course sync engine: draft store, remote gateway, registry
// and autosave.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Metrics  *metrics.Collector
	Drafts   *app.DraftService
	Sync     *app.SyncService
	Registry *app.Registry
	Autosave *app.Autosave

	store   ports.DraftStore
	closers []io.Closer
}

// Options provides optional overrides for New.
type Options struct {
	// Registerer receives the metrics. Default: the global registry.
	Registerer prometheus.Registerer
	// Clock drives the debounce timers. Default: the wall clock.
	Clock ports.Clock
	// Logger replaces the logger built from cfg.Logging.
	Logger *zerolog.Logger
	// Seed replaces the sample catalogue.
	Seed []course.Document
	// OnNotice receives autosave outcomes.
	OnNotice func(app.Notice)
}

// New creates the application from cfg.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates the application from cfg with overrides.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(cfg.Logging)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	seed := opts.Seed
	if seed == nil {
		seed = course.SampleCourses()
	}

	logger.Info().
		Str("drafts", cfg.Drafts.Backend).
		Bool("remote", cfg.Remote.URL != "").
		Msg("initializing coursesync")

	a := &App{Logger: logger, Config: cfg}

	var syncMetrics ports.SyncMetrics
	if cfg.Metrics.Enabled {
		if opts.Registerer != nil {
			a.Metrics = metrics.NewWithRegistry(opts.Registerer)
		} else {
			a.Metrics = metrics.New()
		}
		syncMetrics = a.Metrics
	}

	store, err := a.openDraftStore(cfg.Drafts)
	if err != nil {
		return nil, fmt.Errorf("init draft store: %w", err)
	}
	a.store = store
	a.Drafts = app.NewDraftService(store, logger, app.DraftConfig{
		Prefix:  cfg.Drafts.KeyPrefix,
		Metrics: syncMetrics,
	})

	ids := idgen.UUID{}
	var gateway ports.CourseGateway
	if cfg.Remote.URL != "" {
		gateway = remote.NewCourseGateway(remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.Remote.URL,
			APIKey:  cfg.Remote.APIKey,
			Timeout: cfg.Remote.Timeout,
			Headers: cfg.Remote.Headers,
		}))
	}
	a.Sync = app.NewSyncService(app.SyncDeps{
		Gateway: gateway,
		IDs:     ids,
		Clock:   clk,
		Metrics: syncMetrics,
		Logger:  logger,
	}, app.SyncConfig{Timeout: cfg.Autosave.RemoteTimeout})

	a.Registry = app.NewRegistry(app.RegistryDeps{
		Sync:    a.Sync,
		IDs:     ids,
		Clock:   clk,
		Logger:  logger,
		Metrics: syncMetrics,
	}, app.RegistryConfig{Seed: seed})

	a.Autosave = app.NewAutosave(app.AutosaveDeps{
		Registry: a.Registry,
		Drafts:   a.Drafts,
		Sync:     a.Sync,
		Clock:    clk,
		Random:   random.Real{},
		Logger:   logger,
		Metrics:  syncMetrics,
	}, app.AutosaveConfig{
		LocalDelay:  cfg.Autosave.LocalDelay,
		RemoteDelay: cfg.Autosave.RemoteDelay,
		OnNotice:    opts.OnNotice,
	})

	return a, nil
}

func (a *App) openDraftStore(cfg config.DraftsConfig) (ports.DraftStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.closers = append(a.closers, db)
		a.Logger.Info().Str("dsn", cfg.DSN).Msg("sqlite draft store ready")
		return sqlite.NewDraftStore(db), nil

	case config.BackendRedis:
		store, err := redis.NewDraftStore(cfg.RedisURL, redis.Options{TTL: cfg.TTL})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		a.Logger.Info().Msg("redis draft store ready")
		return store, nil

	case config.BackendMemory, "":
		return memory.NewDraftStore(), nil
	}
	return nil, fmt.Errorf("unknown draft backend %q", cfg.Backend)
}

// Ready waits for the registry's initial hydration.
func (a *App) Ready(ctx context.Context) error {
	return a.Registry.Ready(ctx)
}

// Watch applies hot-reloadable settings from h: debounce delays (for
// timers armed afterwards) and the log level.
func (a *App) Watch(h *config.Holder) {
	h.OnChange(func(cfg *config.Config) {
		a.Autosave.SetDelays(cfg.Autosave.LocalDelay, cfg.Autosave.RemoteDelay)
		if level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
		}
	})
	h.OnReloadError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})
}

// Close stops the autosave, disposes the registry after its background
// remote work finished, and closes the draft backend.
func (a *App) Close() error {
	a.Autosave.Stop()
	a.Registry.Dispose()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.Logger.Info().Msg("coursesync stopped")
	return errors.Join(errs...)
}

// NewLogger builds a zerolog logger from cfg and sets the global level.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
