// Package memory provides in-memory storage for RollCall.
//
// It implements the session and attendance repositories using
// concurrent-safe data structures with sharded locking.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/pkg/cmap"
)

// Store provides in-memory session and attendance storage with
// secondary indexes.
type Store struct {
	// Primary index: session name -> Session
	sessions *cmap.Map[*domain.Session]

	// Primary index: record ID -> AttendanceRecord
	records *cmap.Map[*domain.AttendanceRecord]

	// Secondary index: session name -> set of record IDs
	bySession *SessionRecordIndex

	// Uniqueness index: (session name, participant ID) -> record ID
	byParticipant *ParticipantIndex

	// Configuration
	shardCount int

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

// Option configures the Store.
type Option func(*Store)

// WithShardCount sets the shard count of the underlying maps.
// Must be a power of 2; invalid values fall back to the default.
func WithShardCount(n int) Option {
	return func(s *Store) {
		s.shardCount = n
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		shardCount: cmap.DefaultShardCount,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.sessions = cmap.NewWithShards[*domain.Session](s.shardCount)
	s.records = cmap.NewWithShards[*domain.AttendanceRecord](s.shardCount)
	s.bySession = NewSessionRecordIndex()
	s.byParticipant = NewParticipantIndex()

	return s
}

// ============================================================================
// SessionRepository Interface Methods
// ============================================================================

// Get retrieves a session by name.
func (s *Store) Get(_ context.Context, name string) (*domain.Session, error) {
	session, ok := s.sessions.Get(name)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Return a clone to prevent external modification
	return session.Clone(), nil
}

// Upsert stores a session, replacing any existing session with the same
// name. Starting a session that already exists is a restart, so there is
// no conflict check here.
func (s *Store) Upsert(_ context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store session (clone to prevent external modification)
	s.sessions.Set(session.Name, session.Clone())
	return nil
}

// Update updates an existing session with optimistic locking.
func (s *Store) Update(_ context.Context, session *domain.Session, expectedVersion uint64) error {
	if err := session.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions.Get(session.Name)
	if !ok {
		return domain.ErrSessionNotFound
	}

	// Optimistic locking: check version
	if existing.Version != expectedVersion {
		return domain.ErrSessionVersionConflict
	}

	s.sessions.Set(session.Name, session.Clone())
	return nil
}

// List retrieves sessions matching the given filter with pagination.
func (s *Store) List(_ context.Context, filter *service.SessionFilter) ([]*domain.Session, int, error) {
	if filter == nil {
		filter = &service.SessionFilter{}
	}

	// Step 1: Collect candidates (full scan; the session space is small)
	var candidates []*domain.Session
	s.sessions.Range(func(_ string, session *domain.Session) bool {
		candidates = append(candidates, session)
		return true
	})

	// Step 2: Filter candidates
	var filtered []*domain.Session
	for _, session := range candidates {
		if filter.Status == service.SessionStatusActive && session.HasEnded() {
			continue
		}
		if filter.Status == service.SessionStatusEnded && !session.HasEnded() {
			continue
		}

		// ExpiresBefore matches sessions with a deadline at or before the
		// given instant; sessions without a deadline never match.
		if filter.ExpiresBefore > 0 {
			if session.ExpiresAt == 0 || session.ExpiresAt > filter.ExpiresBefore {
				continue
			}
		}

		filtered = append(filtered, session)
	}

	total := len(filtered)

	// Step 3: Sort by start time, name breaking ties
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

	// Step 4: Paginate (PageSize 0 returns every match)
	if filter.PageSize <= 0 {
		results := make([]*domain.Session, 0, len(filtered))
		for _, session := range filtered {
			results = append(results, session.Clone())
		}
		return results, total, nil
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

	// Clone results to prevent external modification
	results := make([]*domain.Session, 0, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		results = append(results, filtered[i].Clone())
	}

	return results, total, nil
}

// ============================================================================
// AttendanceRepository Interface Methods
// ============================================================================

// Insert stores a new attendance record.
//
// The (session, participant) pair is reserved in the participant index
// before the record is written, so concurrent submissions for the same
// pair resolve to exactly one stored record.
func (s *Store) Insert(_ context.Context, record *domain.AttendanceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.byParticipant.Put(record.SessionName, record.ParticipantID, record.ID) {
		return domain.ErrDuplicateAttendance
	}

	// Store record (clone to prevent external modification)
	s.records.Set(record.ID, record.Clone())
	s.bySession.Add(record.SessionName, record.ID)

	return nil
}

// GetBySessionParticipant retrieves the record a participant submitted
// for a session. Returns (nil, false, nil) when no record exists.
func (s *Store) GetBySessionParticipant(_ context.Context, sessionName, participantID string) (*domain.AttendanceRecord, bool, error) {
	recordID, ok := s.byParticipant.Get(sessionName, participantID)
	if !ok {
		return nil, false, nil
	}

	record, ok := s.records.Get(recordID)
	if !ok {
		// The pair was reserved but the record write has not landed yet
		return nil, false, nil
	}

	return record.Clone(), true, nil
}

// ListBySession returns all records for a session ordered by submission
// time, record ID breaking ties.
func (s *Store) ListBySession(_ context.Context, sessionName string) ([]*domain.AttendanceRecord, error) {
	recordIDs := s.bySession.Get(sessionName)

	records := make([]*domain.AttendanceRecord, 0, len(recordIDs))
	for _, id := range recordIDs {
		record, ok := s.records.Get(id)
		if !ok {
			continue
		}
		records = append(records, record.Clone())
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
func (s *Store) CountBySession(_ context.Context, sessionName string) (int, error) {
	return s.bySession.Count(sessionName), nil
}

// ============================================================================
// Snapshot Support
// ============================================================================

// SessionCount returns the total number of sessions.
func (s *Store) SessionCount() int {
	return s.sessions.Count()
}

// RecordCount returns the total number of attendance records.
func (s *Store) RecordCount() int {
	return s.records.Count()
}

// AllSessions returns all sessions as a slice.
// Used for snapshot creation.
func (s *Store) AllSessions() []*domain.Session {
	sessions := make([]*domain.Session, 0, s.sessions.Count())
	s.sessions.Range(func(_ string, session *domain.Session) bool {
		sessions = append(sessions, session.Clone())
		return true
	})
	return sessions
}

// AllRecords returns all attendance records as a slice.
// Used for snapshot creation.
func (s *Store) AllRecords() []*domain.AttendanceRecord {
	records := make([]*domain.AttendanceRecord, 0, s.records.Count())
	s.records.Range(func(_ string, record *domain.AttendanceRecord) bool {
		records = append(records, record.Clone())
		return true
	})
	return records
}

// LoadFromSnapshot rebuilds the store from snapshot data.
// This clears existing data and rebuilds all indexes.
func (s *Store) LoadFromSnapshot(sessions []*domain.Session, records []*domain.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Clear()
	s.records.Clear()
	s.bySession = NewSessionRecordIndex()
	s.byParticipant = NewParticipantIndex()

	for _, session := range sessions {
		s.sessions.Set(session.Name, session.Clone())
	}

	for _, record := range records {
		if !s.byParticipant.Put(record.SessionName, record.ParticipantID, record.ID) {
			// Keep the first record for a pair; replays can carry duplicates
			continue
		}
		s.records.Set(record.ID, record.Clone())
		s.bySession.Add(record.SessionName, record.ID)
	}

	return nil
}
