// Package wal provides Write-Ahead Logging for durability.
package wal

import (
	"errors"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
)

// File format constants.
const (
	// headerSize is the size of entry header: length (4) + crc (4) = 8 bytes.
	headerSize = 8

	// minFrameSize is the smallest legal frame body: crc (4) + type (1).
	minFrameSize = 5
)

// Errors for WAL operations.
var (
	ErrCorruptedEntry   = errors.New("wal: corrupted entry")
	ErrChecksumMismatch = errors.New("wal: checksum mismatch")
	ErrInvalidEntryType = errors.New("wal: invalid entry type")
)

// OpType represents the type of operation in the WAL.
type OpType uint8

const (
	OpTypeUnspecified OpType = iota

	// OpTypeSessionPut records a session start or restart (full replace).
	OpTypeSessionPut

	// OpTypeSessionUpdate records a version-checked session change,
	// currently only the end transition.
	OpTypeSessionUpdate

	// OpTypeAttendanceInsert records a participant submission.
	OpTypeAttendanceInsert
)

// Entry represents one durable operation written to the WAL.
//
// Session entries carry the full session; attendance entries carry the
// full record. Timestamp is the wall-clock write time in Unix
// milliseconds, independent of the domain timestamps inside the payload.
type Entry struct {
	OpType      OpType
	Timestamp   int64
	SessionName string
	Version     uint64
	Session     *domain.Session
	Record      *domain.AttendanceRecord
}

// NewSessionPutEntry creates a WAL entry for a session start or restart.
func NewSessionPutEntry(session *domain.Session) *Entry {
	return &Entry{
		OpType:      OpTypeSessionPut,
		Timestamp:   time.Now().UnixMilli(),
		SessionName: session.Name,
		Version:     session.Version,
		Session:     session,
	}
}

// NewSessionUpdateEntry creates a WAL entry for a version-checked update.
func NewSessionUpdateEntry(session *domain.Session) *Entry {
	return &Entry{
		OpType:      OpTypeSessionUpdate,
		Timestamp:   time.Now().UnixMilli(),
		SessionName: session.Name,
		Version:     session.Version,
		Session:     session,
	}
}

// NewAttendanceEntry creates a WAL entry for an attendance submission.
func NewAttendanceEntry(record *domain.AttendanceRecord) *Entry {
	return &Entry{
		OpType:      OpTypeAttendanceInsert,
		Timestamp:   time.Now().UnixMilli(),
		SessionName: record.SessionName,
		Record:      record,
	}
}
