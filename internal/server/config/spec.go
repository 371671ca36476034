// Package config defines the server configuration structure.
package config

import (
	"path/filepath"
	"time"
)

// Storage backend names accepted by storage.backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendWAL    = "wal"
)

// ServerConfig is the root configuration for rollcall-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Token     TokenSection     `koanf:"token"`
	Session   SessionSection   `koanf:"session"`
	Storage   StorageSection   `koanf:"storage"`
	RateLimit RateLimitSection `koanf:"ratelimit"`
	CORS      CORSSection      `koanf:"cors"`
	Metrics   MetricsSection   `koanf:"metrics"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// TLSClientCAFile, when set, requires clients to present a
	// certificate signed by this CA. Only meaningful with TLS enabled.
	TLSClientCAFile string `koanf:"tls_client_ca_file"`
}

// TokenSection configures attendance token rotation and validation.
type TokenSection struct {
	// RotationPeriod is how often the projected token changes. Token
	// timestamps snap to multiples of this period.
	RotationPeriod time.Duration `koanf:"rotation_period"`

	// ValidityWindow is the maximum clock distance, in either direction,
	// between a token's timestamp and the server clock for the token to
	// be accepted. Must be at least RotationPeriod, or a token could
	// expire before it rotates.
	ValidityWindow time.Duration `koanf:"validity_window"`
}

// SessionSection configures session lifecycle behavior.
type SessionSection struct {
	// DefaultTTL ends sessions automatically this long after they start.
	// Zero disables automatic expiry; sessions then run until ended
	// explicitly.
	DefaultTTL time.Duration `koanf:"default_ttl"`

	// SweepInterval is how often the expiry sweeper scans for sessions
	// past their deadline.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// StorageSection configures the persistence backend.
type StorageSection struct {
	// Backend selects the store implementation: memory, sqlite, badger,
	// or wal.
	Backend string `koanf:"backend"`

	// DataDir is the root directory for on-disk backends.
	DataDir string `koanf:"data_dir"`

	// SQLitePath overrides the database file location for the sqlite
	// backend. Defaults to attendance.db under DataDir.
	SQLitePath string `koanf:"sqlite_path"`

	// WALSyncInterval batches fsyncs for the wal backend. Zero syncs on
	// every append.
	WALSyncInterval time.Duration `koanf:"wal_sync_interval"`

	// SnapshotInterval is how often the wal backend snapshots memory
	// state to bound recovery time.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// SnapshotKeep is how many snapshots the wal backend retains.
	SnapshotKeep int `koanf:"snapshot_keep"`

	// EncryptionKey is a hex-encoded key (16, 24, or 32 bytes once
	// decoded) enabling at-rest encryption of WAL entries and snapshots.
	// Empty disables encryption.
	EncryptionKey string `koanf:"encryption_key"`
}

// SQLiteFile returns the database path for the sqlite backend.
func (s *StorageSection) SQLiteFile() string {
	if s.SQLitePath != "" {
		return s.SQLitePath
	}
	return filepath.Join(s.DataDir, DefaultSQLiteFile)
}

// BadgerDir returns the key-value directory for the badger backend.
func (s *StorageSection) BadgerDir() string {
	return filepath.Join(s.DataDir, "badger")
}

// RateLimitSection configures per-client request throttling.
type RateLimitSection struct {
	// RPS is the sustained request rate allowed per client address.
	// Zero disables rate limiting.
	RPS float64 `koanf:"rps"`

	// Burst is how many requests a client may send above the sustained
	// rate before being throttled.
	Burst int `koanf:"burst"`
}

// CORSSection configures cross-origin access for browser clients.
type CORSSection struct {
	// AllowedOrigins lists origins allowed to call the API from a
	// browser. "*" allows any origin. Empty disables CORS headers.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
