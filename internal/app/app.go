package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/idleeyan/tabsync/internal/config"
	"github.com/idleeyan/tabsync/internal/httpserver"
	"github.com/idleeyan/tabsync/internal/httpserver/deps"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/redis"
	"github.com/idleeyan/tabsync/internal/scheduler"
	redisstore "github.com/idleeyan/tabsync/internal/store/redis"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/version"
	"github.com/idleeyan/tabsync/internal/webdav"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	autoSync    *scheduler.AutoSync
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.Connect(redis.Options{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)
	manager := syncer.New(store, nil, loggerClient)
	autoSync := scheduler.New(manager, store, loggerClient)

	if cfg.SeedFile != "" {
		if err := seedConfig(context.Background(), cfg.SeedFile, store, loggerClient); err != nil {
			loggerClient.Warn("seed provisioning failed", logger.Error(err))
		}
	}

	if err := autoSync.LoadConfig(context.Background()); err != nil {
		loggerClient.Warn("failed to load auto sync config, using defaults", logger.Error(err))
	}

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Manager:      manager,
		AutoSync:     autoSync,
		Store:        store,
		RedisClient:  redisClient,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		autoSync:    autoSync,
	}
}

// seedStore is the slice of the store seedConfig provisions.
type seedStore interface {
	RemoteConfig(ctx context.Context) (*webdav.RemoteConfig, error)
	SaveRemoteConfig(ctx context.Context, cfg webdav.RemoteConfig) error
	HasAutoSyncConfig(ctx context.Context) (bool, error)
	SaveAutoSyncConfig(ctx context.Context, cfg scheduler.Config) error
}

// seedConfig provisions WebDAV and auto-sync configuration from a yaml
// file, filling only what the store does not already hold. Values set
// through the API always win over the seed file: a stored config, even
// one equal to the defaults, is never overwritten on a later boot.
func seedConfig(ctx context.Context, path string, store seedStore, log logger.Logger) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}

	if seed.WebDAV != nil {
		existing, err := store.RemoteConfig(ctx)
		if err != nil {
			return fmt.Errorf("check existing webdav config: %w", err)
		}
		if existing == nil {
			cfg := seed.WebDAV.WithDefaults()
			if !cfg.Complete() {
				return fmt.Errorf("seed webdav config incomplete (serverUrl, username, password required)")
			}
			if err := store.SaveRemoteConfig(ctx, cfg); err != nil {
				return fmt.Errorf("save seeded webdav config: %w", err)
			}
			log.Info("webdav config seeded", logger.String("server", cfg.ServerURL))
		}
	}

	if seed.AutoSync != nil {
		has, err := store.HasAutoSyncConfig(ctx)
		if err != nil {
			return fmt.Errorf("check existing auto sync config: %w", err)
		}
		if !has {
			cfg := *seed.AutoSync
			if cfg.IntervalMinutes < scheduler.MinIntervalMinutes {
				cfg.IntervalMinutes = scheduler.DefaultIntervalMinutes
			}
			if err := store.SaveAutoSyncConfig(ctx, cfg); err != nil {
				return fmt.Errorf("save seeded auto sync config: %w", err)
			}
			log.Info("auto sync config seeded",
				logger.Bool("enabled", cfg.Enabled),
				logger.Int("intervalMinutes", cfg.IntervalMinutes))
		}
	}

	return nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting tabsync v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("tabsync %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.autoSync.Start(ctx)
	go a.autoSync.SyncOnStartIfEnabled(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.autoSync.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ tabsync stopped cleanly")
	return nil
}
