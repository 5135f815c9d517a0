package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_microassur/internal/apiclient"
	"github.com/bassista/go_microassur/internal/apperror"
	"github.com/bassista/go_microassur/internal/config"
	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/bassista/go_microassur/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const expiryCheckInterval = 30 * time.Second

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config    *config.Config
	Store     storage.Store
	API       *apiclient.Client
	Session   *session.Manager
	Cache     *query.Client
	Resources *resources.Service
	Errors    *apperror.Normalizer
	Registry  *prometheus.Registry

	BaseCtx context.Context
	Cancel  context.CancelFunc

	stopSessionFollow func()
}

// watchable is implemented by stores that can observe external changes.
type watchable interface {
	StartWatcher(ctx context.Context) error
}

// OpenStore returns the durable store named by the configuration.
func OpenStore(cfg config.StorageConfig) (storage.Store, error) {
	if cfg.FilePath == config.MemoryStoragePath {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewFileStore(cfg.FilePath)
}

// New wires storage, HTTP adapter, session, query cache and resource units.
// Nothing runs until Init.
func New(cfg *config.Config, store storage.Store) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}

	api, err := apiclient.New(cfg.API.BaseURL, store, apiclient.WithTimeout(cfg.API.Timeout))
	if err != nil {
		return nil, fmt.Errorf("cannot init api client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := prometheus.NewRegistry()
	cache := query.NewClient(
		query.WithStaleTime(cfg.Cache.StaleTime),
		query.WithGCTime(cfg.Cache.GCTime),
		query.WithBaseContext(ctx),
		query.WithMetrics(query.NewMetrics(registry)),
		query.WithErrorHandler(func(op string, err error) {
			logger.WithComponent("query").Warnf("%s failed: %v", op, err)
		}),
	)

	auth := resources.NewAuth(api)
	sess := session.NewManager(store, auth)

	return &App{
		Config:    cfg,
		Store:     store,
		API:       api,
		Session:   sess,
		Cache:     cache,
		Resources: resources.New(api, cache, sess),
		Errors:    apperror.New(cfg.Misc.Locale),
		Registry:  registry,
		BaseCtx:   ctx,
		Cancel:    cancel,
	}, nil
}

// Init hydrates the session and starts the background loops: storage
// watcher, cache garbage collector and token expiry checks. Cached data is
// dropped whenever the session ends or changes hands.
func (a *App) Init() error {
	a.stopSessionFollow = a.Session.OnChange(a.onSessionChange)
	a.Session.Hydrate()

	if w, ok := a.Store.(watchable); ok {
		if err := w.StartWatcher(a.BaseCtx); err != nil {
			return fmt.Errorf("cannot start storage watcher: %w", err)
		}
	}

	query.StartGarbageCollector(a.BaseCtx, a.Cache, a.Config.Cache.GCInterval)
	StartExpiryChecker(a.BaseCtx, a.Session, expiryCheckInterval)
	return nil
}

// Dispose stops the background loops and drops all cached data.
func (a *App) Dispose() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.stopSessionFollow != nil {
		a.stopSessionFollow()
		a.stopSessionFollow = nil
	}
	a.Session.Close()
	a.Cache.Clear()
}

func (a *App) onSessionChange(ch session.Change) {
	switch {
	case ch.Ended():
		logger.WithComponent("app").Info("session ended, clearing query cache")
		a.Cache.Clear()
	case ch.UserChanged():
		logger.WithComponent("app").Info("session changed user, clearing query cache")
		a.Cache.Clear()
	}
}

// expiryChecker is the part of the session the expiry loop needs.
type expiryChecker interface {
	CheckExpiry() bool
}

// StartExpiryChecker periodically ends a session whose token has expired.
// Returns a channel that is closed when the loop has stopped.
func StartExpiryChecker(ctx context.Context, s expiryChecker, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	logger.WithComponent("session").Debugf("starting token expiry checker with interval: %v", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("session").Debugf("token expiry checker stopped")
				return
			case <-ticker.C:
				if s.CheckExpiry() {
					logger.WithComponent("session").Info("stored token expired, session ended")
				}
			}
		}
	}()
	return done
}
