// Package server assembles the barcodekeeper application: storage, services,
// the HTTP API and the gRPC health endpoint, with graceful shutdown on
// SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/barcodekeeper/internal/logging"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/cache"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/config"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/barcodekeeper/internal/server/services"

	gs "github.com/dmitrijs2005/barcodekeeper/internal/server/grpc"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	cache   cache.Cache
	servers []runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN, c.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	if c.MasterKey != "" {
		if err := services.NewKeyService(db, rm, logger).EnsureMasterKey(ctx, c.MasterKey); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	bc, err := newCache(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	handler := httpapi.NewHandler(
		services.NewTokenService(db, rm, logger),
		services.NewCatalogService(db, rm, bc, c.CacheTTL, logger),
		services.NewCollectedService(db, rm, logger),
		services.NewStagingService(db, rm, logger),
		services.NewFeatureService(db, rm, logger),
		db,
		logger,
	)

	servers := []runner{
		httpapi.NewServer(c.EndpointAddrHTTP, httpapi.NewRouter(handler, logger), c.ShutdownTimeout, logger),
		gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db, 0),
	}

	return &App{config: c, logger: logger, db: db, cache: bc, servers: servers}, nil
}

func newCache(ctx context.Context, c *config.Config) (cache.Cache, error) {
	switch c.CacheType {
	case config.CacheMemory:
		return cache.NewMemoryCache(c.CacheTTL), nil
	case config.CacheRedis:
		rc, err := cache.OpenRedis(ctx, cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", c.CacheType)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives, ctx is cancelled or a server fails,
// then stops every server and releases storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	for _, s := range app.servers {
		wg.Add(1)
		go func(s runner) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}(s)
	}

	wg.Wait()
	app.close()

	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if err := app.cache.Close(); err != nil {
		app.logger.Warn(context.Background(), "cache close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close", "error", err)
	}
}
