package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/storage/memory"
	"github.com/mzhnv/rollcall-go/internal/storage/snapshot"
	"github.com/mzhnv/rollcall-go/internal/storage/wal"
	"github.com/mzhnv/rollcall-go/pkg/crypto/adaptive"
)

// Default configuration values.
const (
	DefaultSnapshotInterval = time.Hour
	DefaultWALDir           = "wal"
	DefaultSnapshotDir      = "snapshots"
)

// Config configures the storage engine.
type Config struct {
	// DataDir is the base directory for all storage files.
	DataDir string

	// WAL configuration
	WAL wal.Config

	// Snapshot configuration
	Snapshot snapshot.Config

	// ShardCount sets the memory store's shard count. Zero uses the default.
	ShardCount int

	// SnapshotInterval is the interval between automatic snapshots.
	SnapshotInterval time.Duration

	// Cipher is the optional encryption cipher for WAL and snapshots.
	Cipher adaptive.Cipher

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		WAL:              wal.DefaultConfig(dataDir + "/" + DefaultWALDir),
		Snapshot:         snapshot.DefaultConfig(dataDir + "/" + DefaultSnapshotDir),
		SnapshotInterval: DefaultSnapshotInterval,
		Logger:           slog.Default(),
	}
}

// Engine is the durable storage engine. It implements both
// service.SessionRepository and service.AttendanceRepository.
type Engine struct {
	cfg Config

	store    *memory.Store
	wal      *wal.Writer
	snapshot *snapshot.Manager

	// lastWALOffset is the composite WAL offset covered by memory state.
	lastWALOffset atomic.Uint64

	logger *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a new storage engine.
//
// This initializes all components but does NOT perform recovery.
// Call Recover() after New() to load existing data.
func New(cfg Config) (*Engine, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Apply common config to subcomponents
	cfg.WAL.Cipher = cfg.Cipher
	cfg.Snapshot.Cipher = cfg.Cipher

	storeOpts := []memory.Option{}
	if cfg.ShardCount > 0 {
		storeOpts = append(storeOpts, memory.WithShardCount(cfg.ShardCount))
	}
	store := memory.New(storeOpts...)

	walWriter, err := wal.NewWriter(cfg.WAL)
	if err != nil {
		return nil, fmt.Errorf("storage: create wal writer: %w", err)
	}

	snapMgr, err := snapshot.NewManager(cfg.Snapshot)
	if err != nil {
		walWriter.Close()
		return nil, fmt.Errorf("storage: create snapshot manager: %w", err)
	}

	engine := &Engine{
		cfg:      cfg,
		store:    store,
		wal:      walWriter,
		snapshot: snapMgr,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go engine.backgroundLoop()

	return engine, nil
}

// Recover recovers data from snapshots and WAL.
//
// Recovery process:
//  1. Load latest snapshot (if exists)
//  2. Replay WAL entries after snapshot's WAL offset
//  3. Rebuild secondary indexes
func (e *Engine) Recover(ctx context.Context) error {
	startTime := time.Now()
	e.logger.Info("storage recovery started")

	sessions, records, snapInfo, err := e.snapshot.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshots) {
			e.logger.Info("no snapshot found, starting with empty store")
		} else {
			return fmt.Errorf("load snapshot: %w", err)
		}
	}

	walOffset := uint64(0)
	if snapInfo != nil {
		e.logger.Info("snapshot loaded",
			"path", snapInfo.Path,
			"session_count", snapInfo.SessionCount,
			"record_count", snapInfo.RecordCount,
			"wal_last_offset", snapInfo.WALLastOffset,
			"elapsed", time.Since(startTime))

		if err := e.store.LoadFromSnapshot(sessions, records); err != nil {
			return fmt.Errorf("restore snapshot state: %w", err)
		}

		walOffset = snapInfo.WALLastOffset
		e.lastWALOffset.Store(walOffset)
	}

	replayStart := time.Now()
	applied, err := e.replayWAL(ctx, walOffset)
	if err != nil {
		return fmt.Errorf("replay wal: %w", err)
	}

	if applied > 0 {
		e.logger.Info("wal replayed",
			"entries_applied", applied,
			"from_offset", walOffset,
			"elapsed", time.Since(replayStart))
	}

	e.logger.Info("recovery completed",
		"elapsed", time.Since(startTime),
		"session_count", e.store.SessionCount(),
		"record_count", e.store.RecordCount())

	return nil
}

// replayWAL replays WAL entries from the given composite offset.
func (e *Engine) replayWAL(ctx context.Context, fromOffset uint64) (int, error) {
	reader, err := wal.NewReader(e.cfg.WAL.Dir, e.cfg.WAL.Cipher)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	if err := reader.Seek(fromOffset); err != nil {
		return 0, err
	}

	applied := 0

	for {
		entry, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			e.logger.Error("read wal entry failed", "error", err)
			continue
		}

		if err := e.applyEntry(ctx, entry); err != nil {
			e.logger.Warn("apply wal entry failed",
				"type", entry.OpType,
				"session", entry.SessionName,
				"error", err)
			continue
		}

		applied++
	}

	e.lastWALOffset.Store(e.wal.CurrentOffset())

	return applied, nil
}

// applyEntry applies a WAL entry to the memory store.
//
// Conflicts are tolerated: a WAL entry may describe a write that lost a
// race before the crash, or one already covered by the snapshot.
func (e *Engine) applyEntry(ctx context.Context, entry *wal.Entry) error {
	switch entry.OpType {
	case wal.OpTypeSessionPut:
		if entry.Session == nil {
			return fmt.Errorf("missing session data for SESSION_PUT")
		}
		return e.store.Upsert(ctx, entry.Session)

	case wal.OpTypeSessionUpdate:
		if entry.Session == nil {
			return fmt.Errorf("missing session data for SESSION_UPDATE")
		}
		expectedVersion := entry.Session.Version - 1
		if err := e.store.Update(ctx, entry.Session, expectedVersion); err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) &&
				!errors.Is(err, domain.ErrSessionVersionConflict) {
				return err
			}
		}
		return nil

	case wal.OpTypeAttendanceInsert:
		if entry.Record == nil {
			return fmt.Errorf("missing record data for ATTENDANCE_INSERT")
		}
		if err := e.store.Insert(ctx, entry.Record); err != nil {
			if !errors.Is(err, domain.ErrDuplicateAttendance) {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown entry type: %d", entry.OpType)
	}
}

// ==== service.SessionRepository ====

// Upsert stores a session, replacing any existing session with the
// same name. Durable: written to WAL before memory.
func (e *Engine) Upsert(ctx context.Context, session *domain.Session) error {
	entry := wal.NewSessionPutEntry(session)
	if err := e.wal.Append(entry); err != nil {
		return fmt.Errorf("write wal: %w", err)
	}

	if err := e.store.Upsert(ctx, session); err != nil {
		return err
	}

	e.lastWALOffset.Store(e.wal.CurrentOffset())
	return nil
}

// Get retrieves a session by name.
func (e *Engine) Get(ctx context.Context, name string) (*domain.Session, error) {
	return e.store.Get(ctx, name)
}

// Update applies a version-checked session change.
// Durable: written to WAL before memory.
func (e *Engine) Update(ctx context.Context, session *domain.Session, expectedVersion uint64) error {
	entry := wal.NewSessionUpdateEntry(session)
	if err := e.wal.Append(entry); err != nil {
		return fmt.Errorf("write wal: %w", err)
	}

	if err := e.store.Update(ctx, session, expectedVersion); err != nil {
		return err
	}

	e.lastWALOffset.Store(e.wal.CurrentOffset())
	return nil
}

// List lists sessions matching the filter.
func (e *Engine) List(ctx context.Context, filter *service.SessionFilter) ([]*domain.Session, int, error) {
	return e.store.List(ctx, filter)
}

// ==== service.AttendanceRepository ====

// Insert stores a new attendance record.
// Durable: written to WAL before memory.
func (e *Engine) Insert(ctx context.Context, record *domain.AttendanceRecord) error {
	entry := wal.NewAttendanceEntry(record)
	if err := e.wal.Append(entry); err != nil {
		return fmt.Errorf("write wal: %w", err)
	}

	if err := e.store.Insert(ctx, record); err != nil {
		return err
	}

	e.lastWALOffset.Store(e.wal.CurrentOffset())
	return nil
}

// GetBySessionParticipant looks up the record for a (session, participant) pair.
func (e *Engine) GetBySessionParticipant(ctx context.Context, sessionName, participantID string) (*domain.AttendanceRecord, bool, error) {
	return e.store.GetBySessionParticipant(ctx, sessionName, participantID)
}

// ListBySession lists all records for a session in submission order.
func (e *Engine) ListBySession(ctx context.Context, sessionName string) ([]*domain.AttendanceRecord, error) {
	return e.store.ListBySession(ctx, sessionName)
}

// CountBySession counts records for a session.
func (e *Engine) CountBySession(ctx context.Context, sessionName string) (int, error) {
	return e.store.CountBySession(ctx, sessionName)
}

// ==== Maintenance ====

// TriggerSnapshot creates a snapshot manually.
//
// This is called by the admin API and the background loop.
func (e *Engine) TriggerSnapshot(ctx context.Context) (*snapshot.Info, error) {
	e.logger.Info("triggering snapshot")

	sessions := e.store.AllSessions()
	records := e.store.AllRecords()
	offset := e.lastWALOffset.Load()

	info, err := e.snapshot.Create(sessions, records, offset)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	e.logger.Info("snapshot created",
		"id", info.ID,
		"session_count", info.SessionCount,
		"record_count", info.RecordCount,
		"wal_last_offset", info.WALLastOffset,
		"size_bytes", info.Size)

	if err := e.snapshot.Prune(); err != nil {
		e.logger.Warn("snapshot cleanup failed", "error", err)
	}

	// Best-effort WAL compaction after snapshot.
	compactor := wal.NewCompactor(e.cfg.WAL.Dir)
	if err := compactor.Compact(info.WALLastOffset); err != nil {
		e.logger.Warn("wal compaction failed", "error", err)
	}

	return info, nil
}

// SessionCount returns the number of sessions in memory.
func (e *Engine) SessionCount() int {
	return e.store.SessionCount()
}

// RecordCount returns the number of attendance records in memory.
func (e *Engine) RecordCount() int {
	return e.store.RecordCount()
}

// WALSize returns the total size of WAL files in bytes.
func (e *Engine) WALSize() (int64, error) {
	return wal.NewCompactor(e.cfg.WAL.Dir).TotalSize()
}

// backgroundLoop runs periodic snapshot creation.
func (e *Engine) backgroundLoop() {
	defer close(e.doneCh)

	interval := e.cfg.SnapshotInterval
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := e.TriggerSnapshot(ctx); err != nil {
				e.logger.Error("auto snapshot failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// Close gracefully shuts down the storage engine.
func (e *Engine) Close() error {
	e.logger.Info("shutting down storage engine")

	close(e.stopCh)
	<-e.doneCh

	// Close WAL writer (this will flush pending writes)
	if err := e.wal.Close(); err != nil {
		e.logger.Error("close wal failed", "error", err)
		return err
	}

	e.logger.Info("storage engine shutdown complete")
	return nil
}
