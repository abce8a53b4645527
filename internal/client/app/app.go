// Package app assembles the sync client: persistence, remote API, cache,
// offline queue, sync engine, state store, deletion coordinator and
// connectivity monitor, wired together and driven until shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/cache"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/config"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/deletion"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/queue"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/remote"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/repositories/scopes"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/store"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/syncengine"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/netx"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/observability"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	api     remote.API
	store   *store.StateStore
	engine  *syncengine.Engine
	coord   *deletion.Coordinator
	monitor *netx.Monitor
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var (
		repo scopes.Repository
		db   *sql.DB
	)
	switch cfg.Storage {
	case config.StorageS3:
		s3repo, err := scopes.NewS3Repository(ctx, scopes.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3BaseEndpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		repo = s3repo
	default:
		sqliteRepo, sqlDB, err := scopes.InitDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repo = sqliteRepo
		db = sqlDB
	}

	emitter := &events.Emitter{}
	emitter.Register(observability.NewMetrics(prometheus.DefaultRegisterer))

	api := remote.NewHTTPClient(cfg.APIBaseURL, nil)
	localCache := cache.New(cfg.CacheTTL)
	offlineQueue := queue.New(repo, cfg.MaxRetries, emitter, logger)

	engine := syncengine.New(api, offlineQueue, localCache, emitter, logger, syncengine.Options{
		SyncInterval:  cfg.SyncInterval,
		DispatchDelay: cfg.DispatchDelay,
	})

	stateStore := store.New(api, offlineQueue, localCache, engine, emitter, logger)
	engine.SetReconciler(stateStore)

	coord := deletion.New(api, stateStore, emitter, logger,
		deletion.WithUndoTTL(cfg.UndoTTL),
		deletion.WithSweepInterval(cfg.SweepInterval),
	)

	monitor := netx.New(api, logger,
		netx.WithCheckInterval(cfg.OnlineCheckInterval),
		netx.WithTransitionFunc(engine.OnlineChanged),
	)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		api:     api,
		store:   stateStore,
		engine:  engine,
		coord:   coord,
		monitor: monitor,
	}, nil
}

// Store exposes the reactive state store to embedding applications.
func (app *App) Store() *store.StateStore { return app.store }

// Deletion exposes the deletion coordinator.
func (app *App) Deletion() *deletion.Coordinator { return app.coord }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the connectivity monitor, the periodic sync loop and the undo
// sweep, then blocks until ctx is cancelled or a termination signal
// arrives. Cancellation stops every background loop before Run returns.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting sync client")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.monitor.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.engine.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.coord.Run(ctx)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
	app.logger.Info(ctx, "sync client stopped")
}
