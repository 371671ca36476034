// Package config defines the server configuration structure.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// Verify validates the configuration. It reads the filesystem to check
// referenced files but never creates anything; the server creates its
// data directory at startup.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyToken(&cfg.Token); err != nil {
		return err
	}
	if err := verifySession(&cfg.Session); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}

	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and server.http.tls_key_file must be set together")
	}
	if cfg.HTTP.TLSClientCAFile != "" && cfg.HTTP.TLSCertFile == "" {
		return errors.New("server.http.tls_client_ca_file requires TLS to be enabled")
	}
	if cfg.HTTP.TLSCertFile != "" {
		files := []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile}
		if cfg.HTTP.TLSClientCAFile != "" {
			files = append(files, cfg.HTTP.TLSClientCAFile)
		}
		for _, f := range files {
			if _, err := os.Stat(f); err != nil {
				return fmt.Errorf("tls file %s: %w", f, err)
			}
		}
	}
	return nil
}

func verifyToken(cfg *TokenSection) error {
	if cfg.RotationPeriod <= 0 {
		return errors.New("token.rotation_period must be positive")
	}
	if cfg.ValidityWindow <= 0 {
		return errors.New("token.validity_window must be positive")
	}
	if cfg.ValidityWindow < cfg.RotationPeriod {
		return errors.New("token.validity_window must be at least the rotation period")
	}
	return nil
}

func verifySession(cfg *SessionSection) error {
	if cfg.DefaultTTL < 0 {
		return errors.New("session.default_ttl cannot be negative")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("session.sweep_interval must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendMemory:
		// No disk state.
	case BackendSQLite:
		if cfg.SQLitePath == "" && cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}
	case BackendBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}
	case BackendWAL:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}
		if cfg.WALSyncInterval < 0 {
			return errors.New("storage.wal_sync_interval cannot be negative")
		}
		if cfg.SnapshotInterval <= 0 {
			return errors.New("storage.snapshot_interval must be positive")
		}
		if cfg.SnapshotKeep < 1 {
			return errors.New("storage.snapshot_keep must be at least 1")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, sqlite, badger, wal (got %q)", cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return errors.New("storage.encryption_key must be hex encoded")
		}
		switch len(key) {
		case 16, 24, 32:
		default:
			return errors.New("storage.encryption_key must decode to 16, 24, or 32 bytes")
		}
	}
	return nil
}

func verifyRateLimit(cfg *RateLimitSection) error {
	if cfg.RPS < 0 {
		return errors.New("ratelimit.rps cannot be negative")
	}
	if cfg.RPS > 0 && cfg.Burst < 1 {
		return errors.New("ratelimit.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}
