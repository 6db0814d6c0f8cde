// Package app assembles the progression service and its backends from
// configuration. It is shared by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kidventure/kidventure/internal/activity"
	"github.com/kidventure/kidventure/internal/api"
	"github.com/kidventure/kidventure/internal/curriculum"
	"github.com/kidventure/kidventure/internal/docstore"
	"github.com/kidventure/kidventure/internal/live"
	"github.com/kidventure/kidventure/internal/platform/cache"
	"github.com/kidventure/kidventure/internal/platform/config"
	"github.com/kidventure/kidventure/internal/platform/database"
	"github.com/kidventure/kidventure/internal/progress"
	"github.com/kidventure/kidventure/internal/progression"
	"github.com/kidventure/kidventure/internal/rewards"
)

// ActivityLog both records and reads activity.
type ActivityLog interface {
	activity.Logger
	activity.Reader
}

// App owns every backend connection opened for the service.
type App struct {
	Config   *config.Config
	Service  *progression.Service
	Hub      live.Hub // nil when live updates are disabled
	Activity ActivityLog

	docs    docstore.Store
	db      *database.DB
	cache   *cache.Cache
	logger  *slog.Logger
	closers []func() error
}

// New validates cfg, connects the configured backends and builds the service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	cur, err := LoadCurriculum(cfg.Curriculum)
	if err != nil {
		return err
	}
	var badges []rewards.Badge
	if cfg.Curriculum.BadgesPath != "" {
		if badges, err = rewards.LoadBadges(cfg.Curriculum.BadgesPath); err != nil {
			return err
		}
	}

	if cfg.Store.Backend == config.BackendPostgres {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
	}
	if cfg.UsesRedis() {
		c, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.Prefix)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		a.cache = c
		a.closers = append(a.closers, c.Close)
	}

	if err := a.openDocs(); err != nil {
		return err
	}
	a.Activity = a.activityLog()

	var store progress.Store = progress.NewDocStore(a.docs)
	if cfg.Live.Enabled {
		hub, err := a.openHub()
		if err != nil {
			return err
		}
		a.Hub = hub
		a.closers = append(a.closers, hub.Close)
		store = live.NewNotifyingStore(store, hub, a.logger)
	}

	svc, err := progression.NewService(progression.Config{
		Curriculum: cur,
		Store:      store,
		Badges:     badges,
		Activity:   a.Activity,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	a.Service = svc

	a.logger.Info("app initialized",
		"store", cfg.Store.Backend,
		"live", cfg.Live.Enabled,
		"live_backend", cfg.Live.Backend,
		"tracks", len(cur.Tracks()),
		"units", cur.Len(),
		"badges", len(svc.Badges()),
	)
	return nil
}

// LoadCurriculum loads authored content, or the built-in curriculum when no
// path is configured.
func LoadCurriculum(cfg config.CurriculumConfig) (*curriculum.Curriculum, error) {
	if cfg.Path == "" {
		return curriculum.Default(), nil
	}
	return curriculum.Load(cfg.Path)
}

func (a *App) openDocs() error {
	switch a.Config.Store.Backend {
	case config.BackendMemory:
		a.docs = docstore.NewMemory()
	case config.BackendPostgres:
		docs, err := docstore.NewPostgres(a.db.Pool)
		if err != nil {
			return err
		}
		a.docs = docs
	case config.BackendRedis:
		docs, err := docstore.NewRedis(a.cache.Client, a.cache.Prefix)
		if err != nil {
			return err
		}
		a.docs = docs
	case config.BackendSQLite:
		docs, err := docstore.OpenSQLite(a.Config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.docs = docs
		a.closers = append(a.closers, docs.Close)
	default:
		return fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}
	return nil
}

func (a *App) activityLog() ActivityLog {
	switch a.Config.Store.Backend {
	case config.BackendPostgres:
		return activity.NewPostgresLogger(a.db.Pool)
	case config.BackendRedis:
		return activity.NewRedisLogger(a.cache.Client, a.cache.Prefix, 0)
	case config.BackendMemory:
		return activity.NewMemoryLogger()
	default:
		return activity.NopLogger{}
	}
}

func (a *App) openHub() (live.Hub, error) {
	if a.Config.Live.Backend == config.BackendRedis {
		return live.NewRedisHub(a.cache.Client, a.cache.Prefix)
	}
	return live.NewMemoryHub(), nil
}

// ReadyChecks returns a health check per connected backend.
func (a *App) ReadyChecks() map[string]api.ReadyCheck {
	checks := map[string]api.ReadyCheck{}
	if a.db != nil {
		checks["database"] = a.db.HealthCheck
	}
	if a.cache != nil {
		checks["cache"] = a.cache.HealthCheck
	}
	if a.docs != nil {
		docs := a.docs
		checks["store"] = func(ctx context.Context) error {
			_, err := docs.Get(ctx, "health", "ping")
			if err != nil && !errors.Is(err, docstore.ErrNotFound) {
				return err
			}
			return nil
		}
	}
	return checks
}

// Handler builds the HTTP API for the app.
func (a *App) Handler() http.Handler {
	return api.New(api.Options{
		Service:      a.Service,
		Hub:          a.Hub,
		Activity:     a.Activity,
		AdminKeyHash: a.Config.Admin.KeyHash,
		ReadyChecks:  a.ReadyChecks(),
		Logger:       a.logger,
	}).Handler()
}

// Close releases every backend connection in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
