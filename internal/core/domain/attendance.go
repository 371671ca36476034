// Package domain defines the core domain models for RollCall.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Attendance constraints.
const (
	// MaxParticipantIDLength bounds the self-reported registration number.
	// The value is otherwise free-form: no format is imposed beyond
	// non-empty, and no identity check is performed.
	MaxParticipantIDLength = 64

	// MaxTokenLength bounds the audit copy of the presented token.
	MaxTokenLength = MaxSessionNameLength + 1 + 20 // name + delimiter + int64 digits

	// RecordIDPrefix is the prefix for attendance record IDs.
	RecordIDPrefix = "rcrd-"
)

// AttendanceRecord is a single, immutable attendance mark.
//
// At most one record exists per (SessionName, ParticipantID) pair; the
// storage layer enforces that uniqueness so a racing duplicate insert
// fails instead of producing a second row.
type AttendanceRecord struct {
	// ID is the unique record identifier.
	// Format: rcrd-{ulid_lowercase}, 31 characters total.
	ID string `json:"id"`

	// SessionName references the session the mark belongs to.
	SessionName string `json:"session_name"`

	// ParticipantID is the registration number the participant reported.
	ParticipantID string `json:"participant_id"`

	// Token is the exact token string presented at submission, kept for audit.
	Token string `json:"token"`

	// TokenTS is the rotation-interval boundary the token encoded
	// (Unix seconds), not the submission time.
	TokenTS int64 `json:"token_ts"`

	// SubmittedAt is the write timestamp in Unix seconds.
	SubmittedAt int64 `json:"submitted_at"`
}

// NewAttendanceRecord creates a record with a generated ID, stamped with
// the given submission instant.
func NewAttendanceRecord(sessionName, participantID, token string, tokenTS int64, submittedAt time.Time) (*AttendanceRecord, error) {
	id, err := GenerateRecordID()
	if err != nil {
		return nil, err
	}

	return &AttendanceRecord{
		ID:            id,
		SessionName:   sessionName,
		ParticipantID: participantID,
		Token:         token,
		TokenTS:       tokenTS,
		SubmittedAt:   submittedAt.Unix(),
	}, nil
}

// GenerateRecordID generates a new attendance record ID using ULID.
// Format: rcrd-{ulid_lowercase}, 31 characters total.
func GenerateRecordID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return RecordIDPrefix + strings.ToLower(id.String()), nil
}

// Validate validates the record fields against constraints.
// Returns a DomainError with code RC-ATTD-4001 if validation fails.
func (r *AttendanceRecord) Validate() error {
	var violations []string

	if r.SessionName == "" {
		violations = append(violations, "session_name is required")
	}

	if r.ParticipantID == "" {
		violations = append(violations, "participant_id is required")
	}

	if len(r.ParticipantID) > MaxParticipantIDLength {
		violations = append(violations, "participant_id exceeds 64 characters")
	}

	if len(r.Token) > MaxTokenLength {
		violations = append(violations, "token exceeds maximum length")
	}

	if r.SubmittedAt == 0 {
		violations = append(violations, "submitted_at is required")
	}

	if len(violations) > 0 {
		return ErrAttendanceValidation.WithDetails(strings.Join(violations, "; "))
	}

	return nil
}

// Clone creates a copy of the record.
func (r *AttendanceRecord) Clone() *AttendanceRecord {
	clone := *r
	return &clone
}

// SubmittedAtTime returns SubmittedAt as time.Time.
func (r *AttendanceRecord) SubmittedAtTime() time.Time {
	return time.Unix(r.SubmittedAt, 0)
}

// TokenTSTime returns TokenTS as time.Time.
func (r *AttendanceRecord) TokenTSTime() time.Time {
	return time.Unix(r.TokenTS, 0)
}
