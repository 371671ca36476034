// Package memory provides in-memory storage for RollCall.
package memory

import (
	"sync"

	"github.com/mzhnv/rollcall-go/pkg/cmap"
)

// RecordSet is a concurrent-safe set of attendance record IDs.
type RecordSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewRecordSet creates a new record set.
func NewRecordSet() *RecordSet {
	return &RecordSet{
		items: make(map[string]struct{}),
	}
}

// Add adds a record ID to the set.
func (s *RecordSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

// Remove removes a record ID from the set.
func (s *RecordSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Contains checks if a record ID is in the set.
func (s *RecordSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of items in the set.
func (s *RecordSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all record IDs.
func (s *RecordSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.items))
	for id := range s.items {
		items = append(items, id)
	}
	return items
}

// SessionRecordIndex provides secondary indexing for attendance records
// by session.
//
// It maintains a mapping from session name to a set of record IDs,
// enabling efficient listing of all submissions for a session.
type SessionRecordIndex struct {
	index *cmap.Map[*RecordSet]
}

// NewSessionRecordIndex creates a new session record index.
func NewSessionRecordIndex() *SessionRecordIndex {
	return &SessionRecordIndex{
		index: cmap.New[*RecordSet](),
	}
}

// Add adds a record to the session's record set.
func (i *SessionRecordIndex) Add(sessionName, recordID string) {
	// Get or create the record set for this session
	set, _ := i.index.GetOrSet(sessionName, NewRecordSet())
	set.Add(recordID)
}

// Remove removes a record from the session's record set.
func (i *SessionRecordIndex) Remove(sessionName, recordID string) {
	set, ok := i.index.Get(sessionName)
	if !ok {
		return
	}

	set.Remove(recordID)

	// Clean up empty sets
	if set.Len() == 0 {
		i.index.Delete(sessionName)
	}
}

// Get returns all record IDs for a session.
func (i *SessionRecordIndex) Get(sessionName string) []string {
	set, ok := i.index.Get(sessionName)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns the number of records for a session.
func (i *SessionRecordIndex) Count(sessionName string) int {
	set, ok := i.index.Get(sessionName)
	if !ok {
		return 0
	}
	return set.Len()
}

// Clear removes all records for a session.
func (i *SessionRecordIndex) Clear(sessionName string) {
	i.index.Delete(sessionName)
}

// ParticipantIndex enforces the one-submission-per-participant rule.
//
// It maintains a unique mapping from (session name, participant ID) to
// record ID. Put reserves the pair atomically, so two concurrent
// submissions for the same pair cannot both succeed.
type ParticipantIndex struct {
	index *cmap.Map[string]
}

// NewParticipantIndex creates a new participant index.
func NewParticipantIndex() *ParticipantIndex {
	return &ParticipantIndex{
		index: cmap.New[string](),
	}
}

// participantKey builds the composite lookup key.
func participantKey(sessionName, participantID string) string {
	return sessionName + "\x00" + participantID
}

// Put reserves the (session, participant) pair for the given record ID.
// Returns false if the pair is already taken.
func (i *ParticipantIndex) Put(sessionName, participantID, recordID string) bool {
	return i.index.SetIfAbsent(participantKey(sessionName, participantID), recordID)
}

// Get returns the record ID for the (session, participant) pair.
func (i *ParticipantIndex) Get(sessionName, participantID string) (string, bool) {
	return i.index.Get(participantKey(sessionName, participantID))
}

// Remove releases the (session, participant) pair.
func (i *ParticipantIndex) Remove(sessionName, participantID string) {
	i.index.Delete(participantKey(sessionName, participantID))
}

// Len returns the number of reserved pairs.
func (i *ParticipantIndex) Len() int {
	return i.index.Count()
}
