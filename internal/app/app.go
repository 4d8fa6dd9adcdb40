package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/engage/internal/config"
	"github.com/MrSnakeDoc/engage/internal/engagement"
	"github.com/MrSnakeDoc/engage/internal/httpserver"
	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/mongo"
	"github.com/MrSnakeDoc/engage/internal/ratelimit"
	"github.com/MrSnakeDoc/engage/internal/redis"
	"github.com/MrSnakeDoc/engage/internal/scheduler"
	"github.com/MrSnakeDoc/engage/internal/store"
	"github.com/MrSnakeDoc/engage/internal/store/memory"
	mongostore "github.com/MrSnakeDoc/engage/internal/store/mongo"
	redisstore "github.com/MrSnakeDoc/engage/internal/store/redis"
	"github.com/MrSnakeDoc/engage/internal/utils"
	"github.com/MrSnakeDoc/engage/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	store        store.Store
	seeder       *scheduler.Seeder
	reconcileJob *scheduler.ReconcileJob
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the store early - fail fast if unavailable
	st, err := openStore(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.StoreDriver, err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized successfully", logger.String("driver", cfg.StoreDriver))

	return build(cfg, loggerClient, st)
}

// build wires everything that sits on top of an open store.
func build(cfg *config.Config, loggerClient logger.Logger, st store.Store) *App {
	coordinator := engagement.NewCoordinator(st, loggerClient.With(logger.String("component", "coordinator")))
	reconciler := engagement.NewReconciler(st, loggerClient.With(logger.String("component", "reconciler")))

	// Create manual reconcile trigger channel
	reconcileTrigger := make(chan struct{}, 1)

	reconcileJob := scheduler.NewReconcileJob(
		reconciler,
		loggerClient,
		cfg.ReconcileInterval,
		reconcileTrigger,
	)

	var seeder *scheduler.Seeder
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured",
			logger.String("file", cfg.SeedFile))
		seeder = scheduler.NewSeeder(cfg.SeedFile, st, loggerClient)
	}

	d := deps.Deps{
		Logger:     loggerClient,
		StartTime:  time.Now(),
		Version:    version.Version,
		Commit:     version.Commit,
		BuildDate:  version.BuildDate,
		GoVersion:  version.GoVersion,
		TimeNow:    time.Now,
		AdminCIDRS: cfg.AdminCIDRS,
		TrustProxy: cfg.TrustProxy,
		RateLimit: ratelimit.Config{
			RPS:        cfg.RateLimitRPS,
			Burst:      cfg.RateLimitBurst,
			MaxEntries: 100_000,
		},
		Engagement:       coordinator,
		Articles:         st,
		Store:            st,
		ReconcileTrigger: reconcileTrigger,
	}

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       httpserver.New(cfg, loggerClient, d),
		store:        st,
		seeder:       seeder,
		reconcileJob: reconcileJob,
	}
}

// openStore connects the configured driver.
func openStore(cfg *config.Config, log logger.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			RedisDB:      cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry:        cfg.RedisRetry(),
		}, log)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client), nil

	case config.DriverMongo:
		log.Info("Connecting to MongoDB", logger.String("database", cfg.MongoDatabase))
		client, err := mongo.New(mongo.ConnectOptions{
			URI:           cfg.MongoURI,
			SelectTimeout: cfg.MongoSelectTimeout,
			MaxPoolSize:   uint64(cfg.MongoPoolSize),
			Retry:         cfg.MongoRetry(),
		}, log)
		if err != nil {
			return nil, err
		}
		return mongostore.NewStore(client, cfg.MongoDatabase), nil

	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.seeder != nil {
		if _, err := a.seeder.Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
	}

	// Start reconcile job (runs a first pass, then periodic refresh)
	if err := a.reconcileJob.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconcile job: %w", err)
	}
	a.logger.Info("reconcile job started",
		logger.Duration("interval", a.cfg.ReconcileInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.reconcileJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.store, a.cfg.StoreDriver+" store", a.logger)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ engage stopped cleanly")
	return nil
}
