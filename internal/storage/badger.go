package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
)

// Key layout. Session names never contain the pair separator (the token
// codec reserves it), so splitting an attendance key at the first "|"
// is unambiguous even when participant IDs contain one.
const (
	badgerSessionPrefix    = "sess/"
	badgerAttendancePrefix = "att/"
	badgerPairSeparator    = "|"
)

// badgerTxnRetries bounds retries of transactions that lose a
// read-write conflict.
const badgerTxnRetries = 3

// BadgerStore implements session and attendance persistence over an
// embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	// Metrics (internal counters)
	lastGCTime       atomic.Int64  // Unix milliseconds
	gcBytesReclaimed atomic.Uint64 // Total bytes reclaimed by GC

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsTotalSize    prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCReclaimed  prometheus.Counter

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens a Badger-backed store.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}

	opts.BlockCacheSize = cfg.CacheSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumMemtables = cfg.NumMemtables
	opts.NumLevelZeroTables = cfg.NumLevelZeroTables
	opts.NumLevelZeroTablesStall = cfg.NumLevelZeroTablesStall
	opts.SyncWrites = cfg.SyncWrites

	// The duplicate and version checks are read-then-write transactions,
	// so conflict detection must stay on for them to be race-free.
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	store := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go store.gcLoop()

	logger.Info("badger store started",
		"dir", cfg.Dir,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return store, nil
}

func sessionKey(name string) []byte {
	return []byte(badgerSessionPrefix + name)
}

func attendanceKey(sessionName, participantID string) []byte {
	return []byte(badgerAttendancePrefix + sessionName + badgerPairSeparator + participantID)
}

// update runs a read-write transaction, retrying a bounded number of
// times when it loses a conflict.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < badgerTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// ==== service.SessionRepository ====

// Upsert stores a session, replacing any existing session with the
// same name.
func (s *BadgerStore) Upsert(_ context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("badger: marshal session: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.Name), data)
	})
}

// Get retrieves a session by name.
func (s *BadgerStore) Get(_ context.Context, name string) (*domain.Session, error) {
	var session domain.Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrSessionNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Update updates an existing session with optimistic locking. The
// version check and the write run in one transaction.
func (s *BadgerStore) Update(_ context.Context, session *domain.Session, expectedVersion uint64) error {
	if err := session.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("badger: marshal session: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(session.Name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrSessionNotFound
			}
			return err
		}

		var existing domain.Session
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &existing)
		}); err != nil {
			return err
		}
		if existing.Version != expectedVersion {
			return domain.ErrSessionVersionConflict
		}

		return txn.Set(sessionKey(session.Name), data)
	})
}

// List retrieves sessions matching the given filter with pagination.
func (s *BadgerStore) List(_ context.Context, filter *service.SessionFilter) ([]*domain.Session, int, error) {
	if filter == nil {
		filter = &service.SessionFilter{}
	}

	var filtered []*domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerSessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var session domain.Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			}); err != nil {
				return err
			}

			if filter.Status == service.SessionStatusActive && session.HasEnded() {
				continue
			}
			if filter.Status == service.SessionStatusEnded && !session.HasEnded() {
				continue
			}
			if filter.ExpiresBefore > 0 {
				if session.ExpiresAt == 0 || session.ExpiresAt > filter.ExpiresBefore {
					continue
				}
			}

			clone := session
			filtered = append(filtered, &clone)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("badger: list sessions: %w", err)
	}

	total := len(filtered)

	sortOrder := filter.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].StartedAt != filtered[j].StartedAt {
			less := filtered[i].StartedAt < filtered[j].StartedAt
			if sortOrder == "asc" {
				return less
			}
			return !less
		}
		return filtered[i].Name < filtered[j].Name
	})

	if filter.PageSize <= 0 {
		return filtered, total, nil
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	startIdx := (page - 1) * filter.PageSize
	endIdx := startIdx + filter.PageSize
	if startIdx >= len(filtered) {
		return []*domain.Session{}, total, nil
	}
	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}
	return filtered[startIdx:endIdx], total, nil
}

// ==== service.AttendanceRepository ====

// Insert stores a new attendance record. The duplicate check and the
// write run in one conflict-checked transaction, so concurrent
// submissions for the same pair resolve to exactly one stored record.
func (s *BadgerStore) Insert(_ context.Context, record *domain.AttendanceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("badger: marshal record: %w", err)
	}

	key := attendanceKey(record.SessionName, record.ParticipantID)
	return s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return domain.ErrDuplicateAttendance
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// GetBySessionParticipant retrieves the record a participant submitted
// for a session. Returns (nil, false, nil) when no record exists.
func (s *BadgerStore) GetBySessionParticipant(_ context.Context, sessionName, participantID string) (*domain.AttendanceRecord, bool, error) {
	var record domain.AttendanceRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(attendanceKey(sessionName, participantID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &record, true, nil
}

// ListBySession returns all records for a session ordered by submission
// time, record ID breaking ties. Keys order by participant, so the
// result is re-sorted after the scan.
func (s *BadgerStore) ListBySession(_ context.Context, sessionName string) ([]*domain.AttendanceRecord, error) {
	var records []*domain.AttendanceRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerAttendancePrefix + sessionName + badgerPairSeparator)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record domain.AttendanceRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			clone := record
			records = append(records, &clone)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: list records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].SubmittedAt != records[j].SubmittedAt {
			return records[i].SubmittedAt < records[j].SubmittedAt
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// CountBySession returns the number of records for a session.
func (s *BadgerStore) CountBySession(_ context.Context, sessionName string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerAttendancePrefix + sessionName + badgerPairSeparator)
		opts.PrefetchValues = false // Only need keys
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: count records: %w", err)
	}
	return count, nil
}

// ==== Stats ====

// SessionCount returns the total number of sessions.
func (s *BadgerStore) SessionCount(_ context.Context) (int, error) {
	return s.countPrefix(badgerSessionPrefix)
}

// RecordCount returns the total number of attendance records.
func (s *BadgerStore) RecordCount(_ context.Context) (int, error) {
	return s.countPrefix(badgerAttendancePrefix)
}

func (s *BadgerStore) countPrefix(prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: count %s keys: %w", strings.TrimSuffix(prefix, "/"), err)
	}
	return count, nil
}

// GC triggers value log garbage collection.
//
// Badger's value log needs periodic GC to reclaim space. Returns bytes
// reclaimed (approximate).
func (s *BadgerStore) GC(_ context.Context) (uint64, error) {
	startTime := time.Now()

	// Run GC until no more can be reclaimed (threshold-based)
	var totalReclaimed uint64
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return totalReclaimed, fmt.Errorf("gc: %w", err)
		}

		// Badger doesn't report exact reclaimed bytes; count rewritten
		// value log files at their nominal size.
		totalReclaimed += 1 << 20
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcBytesReclaimed.Add(totalReclaimed)
	if s.metricsGCReclaimed != nil && totalReclaimed > 0 {
		s.metricsGCReclaimed.Add(float64(totalReclaimed))
	}

	s.logger.Info("gc completed",
		"bytes_reclaimed", totalReclaimed,
		"elapsed", time.Since(startTime))

	return totalReclaimed, nil
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats(_ context.Context) (*BadgerStats, error) {
	lsm, vlog := s.db.Size()

	return &BadgerStats{
		TotalSize:        uint64(lsm + vlog),
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		LastGCTime:       s.lastGCTime.Load(),
		GCBytesReclaimed: s.gcBytesReclaimed.Load(),
	}, nil
}

// Close gracefully shuts down the Badger store.
func (s *BadgerStore) Close() error {
	s.logger.Info("shutting down badger store")

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	s.logger.Info("badger store shutdown complete")
	return nil
}

// RegisterMetrics registers Badger metrics with Prometheus.
//
// This should be called once during initialization.
// Returns the store for method chaining.
func (s *BadgerStore) RegisterMetrics(registry *prometheus.Registry) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rollcall",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rollcall",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsTotalSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rollcall",
		Subsystem: "badger",
		Name:      "total_size_bytes",
		Help:      "Badger total storage size in bytes (LSM + value log)",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rollcall",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	s.metricsGCReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rollcall",
		Subsystem: "badger",
		Name:      "gc_bytes_reclaimed_total",
		Help:      "Total bytes reclaimed by Badger garbage collection",
	})

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsTotalSize,
		s.metricsLastGCTime,
		s.metricsGCReclaimed,
	)

	go s.metricsUpdateLoop()

	return s
}

// metricsUpdateLoop periodically updates Prometheus metrics.
func (s *BadgerStore) metricsUpdateLoop() {
	if s.metricsLSMSize == nil {
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			stats, err := s.Stats(ctx)
			cancel()

			if err != nil {
				// Engine might be closing
				continue
			}

			s.metricsLSMSize.Set(float64(stats.LSMSize))
			s.metricsValueLogSize.Set(float64(stats.ValueLogSize))
			s.metricsTotalSize.Set(float64(stats.TotalSize))

			if stats.LastGCTime > 0 {
				s.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
			}

		case <-s.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval, err := time.ParseDuration(s.cfg.GCInterval)
	if err != nil || interval <= 0 {
		if err != nil {
			s.logger.Error("invalid gc_interval, using default 10m", "error", err)
		}
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

var _ service.SessionRepository = (*BadgerStore)(nil)
var _ service.AttendanceRepository = (*BadgerStore)(nil)
