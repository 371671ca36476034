package storage

// BadgerConfig holds Badger-specific tuning options.
type BadgerConfig struct {
	// Dir is the directory for the Badger database.
	Dir string `koanf:"dir"`

	// GCInterval is how often to run value log garbage collection.
	// Format: duration string (e.g., "10m", "1h")
	GCInterval string `koanf:"gc_interval"`

	// GCThreshold is the ratio of discardable data that triggers a
	// value log rewrite (0.0-1.0).
	GCThreshold float64 `koanf:"gc_threshold"`

	// CacheSize is the block cache size in bytes.
	CacheSize int64 `koanf:"cache_size"`

	// ValueLogFileSize is the maximum size of a single value log file.
	ValueLogFileSize int64 `koanf:"value_log_file_size"`

	// NumMemtables is the number of memtables to keep in memory.
	NumMemtables int `koanf:"num_memtables"`

	// NumLevelZeroTables is the number of level-zero tables before
	// compaction starts.
	NumLevelZeroTables int `koanf:"num_level_zero_tables"`

	// NumLevelZeroTablesStall is the number of level-zero tables that
	// stalls writes.
	NumLevelZeroTablesStall int `koanf:"num_level_zero_tables_stall"`

	// SyncWrites determines whether each write syncs to disk before
	// acknowledging. The store is the system of record, so this
	// defaults to true.
	SyncWrites bool `koanf:"sync_writes"`
}

// DefaultBadgerConfig returns Badger configuration defaults tuned for
// attendance workloads: small values, read-heavy, modest memory.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:                     dir,
		GCInterval:              "10m",
		GCThreshold:             0.5,
		CacheSize:               64 << 20, // 64 MB
		ValueLogFileSize:        1 << 30,  // 1 GB
		NumMemtables:            2,
		NumLevelZeroTables:      5,
		NumLevelZeroTablesStall: 10,
		SyncWrites:              true,
	}
}

// BadgerStats holds Badger storage statistics.
type BadgerStats struct {
	// TotalSize is the total size in bytes (LSM + value log).
	TotalSize uint64 `json:"total_size"`

	// LSMSize is the size of the LSM tree in bytes.
	LSMSize uint64 `json:"lsm_size"`

	// ValueLogSize is the size of the value log in bytes.
	ValueLogSize uint64 `json:"value_log_size"`

	// LastGCTime is the Unix timestamp (milliseconds) of the last GC run.
	LastGCTime int64 `json:"last_gc_time"`

	// GCBytesReclaimed is the total bytes reclaimed by GC.
	GCBytesReclaimed uint64 `json:"gc_bytes_reclaimed"`
}
