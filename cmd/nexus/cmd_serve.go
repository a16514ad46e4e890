package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/studynexus/nexus/internal/api"
	"github.com/studynexus/nexus/internal/config"
	"github.com/studynexus/nexus/internal/db"
	"github.com/studynexus/nexus/internal/dbpool"
	"github.com/studynexus/nexus/internal/embedding"
	"github.com/studynexus/nexus/internal/service"
	"github.com/studynexus/nexus/internal/store"
	"github.com/studynexus/nexus/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the nexus HTTP server",
		Long: `Run the HTTP API, WebSocket feed and background workers.
Configuration is read from the environment (PORT, STORAGE, DATABASE_URL,
EMBEDDING_PROVIDER, ...).`,
		Args:             cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {}, // no API client
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, newLogger(cfg.LogLevel))
		},
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")

		lvl = logrus.InfoLevel
	}

	log.SetLevel(lvl)

	return log
}

// backend bundles whatever the configured storage provides.
type backend struct {
	snapshots service.SnapshotStore
	history   service.ReviewHistory
	health    api.HealthChecker
	pool      *dbpool.Pool
	close     func()
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger, instance string) (*backend, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}

		return &backend{
			snapshots: s,
			history:   s,
			health:    s,
			close: func() {
				if err := s.Close(); err != nil {
					log.WithError(err).Warn("closing sqlite")
				}
			},
		}, nil
	case config.StoragePostgres:
		pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), int32(cfg.DBMaxConns)) //nolint:gosec // DB_MAX_CONNS is validated to 2..64.
		if err != nil {
			return nil, err
		}

		s, err := store.NewPostgresStore(ctx, pool, log, instance)
		if err != nil {
			pool.Close()

			return nil, err
		}

		if err := pool.ExportStats(prometheus.DefaultRegisterer); err != nil {
			log.WithError(err).Warn("database pool metrics unavailable")
		}

		return &backend{snapshots: s, history: s, health: s, pool: pool, close: pool.Close}, nil
	default:
		return &backend{close: func() {}}, nil
	}
}

// newEmbedder builds the embedding service with its caches. The returned
// func releases the shared cache.
func newEmbedder(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*embedding.Service, func(), error) {
	var remote embedding.Provider

	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		remote = embedding.NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
	case config.ProviderGemini:
		remote = embedding.NewGemini(cfg.GeminiURL, cfg.EmbeddingModel, cfg.GeminiAPIKey.Value())
	}

	local, err := embedding.NewLRUCache(cfg.EmbedCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	var cache embedding.Cache = local

	release := func() {}

	if cfg.RedisAddr != "" {
		shared, err := embedding.NewRedisCache(ctx, cfg.RedisAddr, cfg.EmbeddingModel, cfg.RedisTTL, log)
		if err != nil {
			log.WithError(err).Warn("redis embedding cache unavailable, using local cache only")
		} else {
			cache = embedding.NewTieredCache(local, shared)
			release = func() {
				if err := shared.Close(); err != nil {
					log.WithError(err).Warn("closing redis cache")
				}
			}
		}
	}

	svc := embedding.NewService(remote, cfg.EmbeddingProvider, log,
		embedding.WithCache(cache),
		embedding.WithTimeout(cfg.EmbedTimeout),
		embedding.WithDimensions(cfg.EmbeddingDimensions),
	)

	return svc, release, nil
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	instance := uuid.NewString()

	embedder, releaseCache, err := newEmbedder(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer releaseCache()

	be, err := openBackend(ctx, cfg, log, instance)
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage, err)
	}
	defer be.close()

	hub := ws.NewHub(log)

	engine := service.NewEngine(service.EngineDeps{
		Embedder:   embedder,
		Snapshots:  be.snapshots,
		History:    be.history,
		Events:     hub,
		Debounce:   cfg.SnapshotDebounce,
		Version:    config.Version,
		Dimensions: cfg.EmbeddingDimensions,
	}, log)

	if err := engine.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)

		return nil
	})

	if be.pool != nil {
		startNotifyBridge(gctx, g, log, be.pool, hub, engine, instance)
	}

	handler, err := api.NewRouter(gctx, &api.RouterDeps{
		Log:     log,
		Engine:  engine,
		Hub:     hub,
		Storage: be.health,
		Embeddings: api.EmbeddingInfo{
			Provider:   embedder.Name(),
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Remote:     embedder.Remote(),
		},
		StorageKind: cfg.Storage,
		CORSOrigins: cfg.CORSOrigins,
		Version:     config.Version,
	})
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":       srv.Addr,
			"storage":    cfg.Storage,
			"embeddings": embedder.Name(),
			"version":    config.Version,
		}).Info("nexus listening")

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		log.Info("shutting down")

		err := srv.Shutdown(shutdownCtx)

		if cerr := engine.Close(shutdownCtx); cerr != nil {
			err = errors.Join(err, cerr)
		}

		return err
	})

	return g.Wait()
}

// startNotifyBridge follows saves by other instances sharing the database:
// their notices reach WebSocket clients and trigger a coalesced reload.
func startNotifyBridge(ctx context.Context, g *errgroup.Group, log *logrus.Logger, pool *dbpool.Pool, hub *ws.Hub, engine *service.Engine, instance string) {
	reload := make(chan struct{}, 1)

	bridge := db.NewNotifyBridge(log, pool, hub, instance)
	bridge.OnChange(func(n db.ChangeNotice) {
		if n.Type != store.EventSnapshotSaved {
			return
		}

		select {
		case reload <- struct{}{}:
		default:
		}
	})

	if err := bridge.Start(ctx); err != nil {
		log.WithError(err).Warn("notify bridge disabled")

		return
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-reload:
				if err := engine.Reload(ctx); err != nil {
					log.WithError(err).Warn("reloading after remote save")
				}
			}
		}
	})
}
