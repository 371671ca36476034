// Package main provides the entry point for rollcall-server.
//
// rollcall-server is the attendance verification service for RollCall.
// It hosts rotating attendance tokens, session lifecycle, and attendance
// records behind an HTTP API.
package main

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/infra/buildinfo"
	"github.com/mzhnv/rollcall-go/internal/infra/confloader"
	"github.com/mzhnv/rollcall-go/internal/infra/shutdown"
	"github.com/mzhnv/rollcall-go/internal/infra/tlsroots"
	"github.com/mzhnv/rollcall-go/internal/server/config"
	"github.com/mzhnv/rollcall-go/internal/server/httpserver"
	"github.com/mzhnv/rollcall-go/internal/storage"
	"github.com/mzhnv/rollcall-go/internal/storage/memory"
	"github.com/mzhnv/rollcall-go/internal/storage/sqlite"
	"github.com/mzhnv/rollcall-go/internal/storage/wal"
	"github.com/mzhnv/rollcall-go/internal/telemetry/logger"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
	"github.com/mzhnv/rollcall-go/pkg/crypto/adaptive"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("rollcall-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := logger.Slog(log)

	info := buildinfo.Get()
	log.Info("starting rollcall-server",
		"version", info.Version,
		"commit", info.Commit,
		"backend", cfg.Storage.Backend,
		"config", *configFile)

	var metrics *metric.Metrics
	if cfg.Metrics.Enabled {
		metrics = metric.New()
	}

	ctx := context.Background()
	backend, err := initStorage(ctx, cfg, slogLogger, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if metrics != nil {
		metrics.Registry().MustRegister(metric.NewStorageCollector(backend.stats))
	}

	tokens := service.NewTokenService(backend.repo, &service.TokenServiceConfig{
		RotationPeriod: cfg.Token.RotationPeriod,
		ValidityWindow: cfg.Token.ValidityWindow,
	})
	sessions := service.NewSessionService(backend.repo, tokens, &service.SessionServiceConfig{
		DefaultTTL: cfg.Session.DefaultTTL,
	})
	attendance := service.NewAttendanceService(backend.repo, tokens, nil)

	router, err := httpserver.NewRouter(httpserver.RouterConfig{
		Sessions:       sessions,
		Attendance:     attendance,
		Tokens:         tokens,
		AppConfig:      cfg,
		Metrics:        metrics,
		Logger:         log,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateRPS:        cfg.RateLimit.RPS,
		RateBurst:      cfg.RateLimit.Burst,
	})
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router)

	tlsEnabled := cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != ""
	var certWatcher *tlsroots.Watcher
	if tlsEnabled {
		certWatcher, err = initTLS(cfg, httpServer, slogLogger)
		if err != nil {
			return fmt.Errorf("init tls: %w", err)
		}
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse registration order: the HTTP server drains
	// first, then background workers stop, then storage closes.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		if backend.close == nil {
			return nil
		}
		log.Info("closing storage")
		return backend.close()
	})

	if certWatcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			certWatcher.Stop()
			return nil
		})
	}

	if *configFile != "" {
		configWatcher, err := initConfigReload(*configFile, log, slogLogger)
		if err != nil {
			// Hot reload is a convenience; the server runs fine without it.
			log.Warn("config reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(ctx context.Context) error {
				return configWatcher.Stop()
			})
		}
	}

	if cfg.Session.SweepInterval > 0 {
		sweeper := service.NewExpirySweeper(sessions, cfg.Session.SweepInterval, log)
		if metrics != nil {
			sweeper.OnEnded = func(count int) {
				metrics.SessionsEnded.WithLabelValues(metric.EndReasonExpiry).Add(float64(count))
			}
		}
		sweeper.Start()
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		})
	}

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", tlsEnabled)

		var err error
		if tlsEnabled {
			// The certificate watcher supplies certs via GetCertificate,
			// so the file arguments stay empty.
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the optional config file, and environment
// variables, then validates the result.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger builds the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

// repository is the combined persistence surface every backend provides.
type repository interface {
	service.SessionRepository
	service.AttendanceRepository
}

// storageBackend bundles a backend's repositories with its lifecycle.
type storageBackend struct {
	repo  repository
	stats metric.StatsFunc
	close func() error
}

// initStorage opens the configured backend. Directory creation happens
// here so config validation stays free of side effects.
func initStorage(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Metrics) (*storageBackend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		store := memory.New()
		return &storageBackend{
			repo: store,
			stats: func() (int, int, bool) {
				return store.SessionCount(), store.RecordCount(), true
			},
		}, nil

	case config.BackendSQLite:
		path := cfg.Storage.SQLiteFile()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return &storageBackend{
			repo:  store,
			stats: countingStats(ctx, store),
			close: store.Close,
		}, nil

	case config.BackendBadger:
		dir := cfg.Storage.BadgerDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := storage.NewBadgerStore(storage.DefaultBadgerConfig(dir), log)
		if err != nil {
			return nil, err
		}
		if metrics != nil {
			store.RegisterMetrics(metrics.Registry())
		}
		return &storageBackend{
			repo:  store,
			stats: countingStats(ctx, store),
			close: store.Close,
		}, nil

	case config.BackendWAL:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		engine, err := initEngine(cfg, log)
		if err != nil {
			return nil, err
		}
		if err := engine.Recover(ctx); err != nil {
			return nil, fmt.Errorf("storage recovery: %w", err)
		}
		return &storageBackend{
			repo: engine,
			stats: func() (int, int, bool) {
				return engine.SessionCount(), engine.RecordCount(), true
			},
			close: engine.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// initEngine maps storage config onto the WAL engine.
func initEngine(cfg *config.ServerConfig, log *slog.Logger) (*storage.Engine, error) {
	storageCfg := storage.DefaultConfig(cfg.Storage.DataDir)
	storageCfg.Logger = log

	if cfg.Storage.WALSyncInterval > 0 {
		storageCfg.WAL.SyncMode = wal.SyncModeBatch
		storageCfg.WAL.SyncInterval = cfg.Storage.WALSyncInterval
	} else {
		storageCfg.WAL.SyncMode = wal.SyncModeSync
	}
	if cfg.Storage.SnapshotInterval > 0 {
		storageCfg.SnapshotInterval = cfg.Storage.SnapshotInterval
	}
	if cfg.Storage.SnapshotKeep > 0 {
		storageCfg.Snapshot.RetentionCount = cfg.Storage.SnapshotKeep
	}

	if cfg.Storage.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.Storage.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		cipher, err := adaptive.New(key)
		if err != nil {
			return nil, fmt.Errorf("init cipher: %w", err)
		}
		storageCfg.Cipher = cipher
	}

	return storage.New(storageCfg)
}

// countingStore covers the backends whose counters hit storage and can
// fail.
type countingStore interface {
	SessionCount(ctx context.Context) (int, error)
	RecordCount(ctx context.Context) (int, error)
}

func countingStats(ctx context.Context, store countingStore) metric.StatsFunc {
	return func() (int, int, bool) {
		sessions, err := store.SessionCount(ctx)
		if err != nil {
			return 0, 0, false
		}
		records, err := store.RecordCount(ctx)
		if err != nil {
			return 0, 0, false
		}
		return sessions, records, true
	}
}

// initTLS wires certificate hot reload into the HTTP server. When a
// client CA file is configured, clients must present a certificate
// signed by that CA.
func initTLS(cfg *config.ServerConfig, srv *httpserver.Server, log *slog.Logger) (*tlsroots.Watcher, error) {
	watcher, err := tlsroots.NewWatcher(
		cfg.Server.HTTP.TLSCertFile,
		cfg.Server.HTTP.TLSKeyFile,
		tlsroots.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	watcher.StartAsync()

	tlsCfg := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: watcher.GetCertificate,
	}

	if cfg.Server.HTTP.TLSClientCAFile != "" {
		pool := tlsroots.NewEmptyPool()
		if err := pool.AddCertFile(cfg.Server.HTTP.TLSClientCAFile); err != nil {
			watcher.Stop()
			return nil, err
		}
		tlsCfg.ClientCAs = pool.Pool()
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	srv.SetTLSConfig(tlsCfg)
	return watcher, nil
}

// initConfigReload watches the config file and applies the log level on
// change. Settings that require a restart (addresses, backend, TLS) are
// deliberately not reloaded.
func initConfigReload(configFile string, log logger.Logger, slogLogger *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(slogLogger))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		return nil, err
	}

	watcher.OnChange(func(path string) {
		newCfg, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload skipped", "path", path, "error", err)
			return
		}
		logger.SetLevel(newCfg.Log.Level)
		log.Info("config reloaded", "path", path, "log_level", newCfg.Log.Level)
	})
	watcher.StartAsync()

	return watcher, nil
}
