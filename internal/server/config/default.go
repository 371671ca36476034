// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr = "127.0.0.1:5080"

	DefaultRotationPeriod = 2 * time.Second
	DefaultValidityWindow = 30 * time.Second

	DefaultSweepInterval = 30 * time.Second

	DefaultBackend          = BackendSQLite
	DefaultDataDir          = "/var/lib/rollcall-server/data"
	DefaultSQLiteFile       = "attendance.db"
	DefaultWALSyncInterval  = 100 * time.Millisecond
	DefaultSnapshotInterval = time.Hour
	DefaultSnapshotKeep     = 3

	DefaultRateRPS   = 20.0
	DefaultRateBurst = 40

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
		},
		Token: TokenSection{
			RotationPeriod: DefaultRotationPeriod,
			ValidityWindow: DefaultValidityWindow,
		},
		Session: SessionSection{
			// DefaultTTL stays zero: sessions run until ended explicitly.
			SweepInterval: DefaultSweepInterval,
		},
		Storage: StorageSection{
			Backend:          DefaultBackend,
			DataDir:          DefaultDataDir,
			WALSyncInterval:  DefaultWALSyncInterval,
			SnapshotInterval: DefaultSnapshotInterval,
			SnapshotKeep:     DefaultSnapshotKeep,
		},
		RateLimit: RateLimitSection{
			RPS:   DefaultRateRPS,
			Burst: DefaultRateBurst,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
