// Package domain defines the core domain models for RollCall.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling.
package domain

import (
	"strings"
	"time"
)

// Session constraints.
const (
	// MaxSessionNameLength bounds the session name a presenter may choose.
	MaxSessionNameLength = 128
)

// Session represents a named attendance window.
//
// A session is keyed by its name: starting an existing name again restarts
// it in place (started_at reset, ended_at cleared) rather than creating a
// second row. Sessions are never physically deleted in normal operation.
type Session struct {
	// Name is the unique identifier chosen by the presenter.
	Name string `json:"name"`

	// StartedAt is the start (or most recent restart) time in Unix seconds.
	// Always non-zero for a persisted session.
	StartedAt int64 `json:"started_at"`

	// EndedAt is the end time in Unix seconds. Zero means the session is
	// still accepting submissions.
	EndedAt int64 `json:"ended_at"`

	// ExpiresAt is an optional auto-expiry deadline in Unix seconds.
	// Zero means the session only ends when explicitly ended.
	ExpiresAt int64 `json:"expires_at"`

	// Version is the optimistic lock version number.
	Version uint64 `json:"version"`
}

// NewSession creates a new active Session started at the given instant.
func NewSession(name string, startedAt time.Time) *Session {
	return &Session{
		Name:      name,
		StartedAt: startedAt.Unix(),
		Version:   1,
	}
}

// Restart resets the session to a freshly started state: started_at is
// moved to the given instant and ended_at is cleared. The auto-expiry
// deadline is cleared as well; callers re-arm it if they want one.
func (s *Session) Restart(at time.Time) {
	s.StartedAt = at.Unix()
	s.EndedAt = 0
	s.ExpiresAt = 0
}

// End marks the session ended at the given instant. Ending an already
// ended session keeps the original end time.
func (s *Session) End(at time.Time) {
	if s.EndedAt == 0 {
		s.EndedAt = at.Unix()
	}
}

// IsActive reports whether the session currently accepts submissions.
//
// A persisted session always has StartedAt set (NewSession and Restart are
// the only ways a row is born), so "exists and not ended" and "started and
// not ended" describe the same set of sessions.
func (s *Session) IsActive() bool {
	return s.StartedAt != 0 && s.EndedAt == 0
}

// HasEnded reports whether the session has been explicitly ended.
func (s *Session) HasEnded() bool {
	return s.EndedAt != 0
}

// ShouldExpire reports whether the auto-expiry deadline has passed at the
// given instant for a session that is still active.
func (s *Session) ShouldExpire(now time.Time) bool {
	return s.IsActive() && s.ExpiresAt != 0 && now.Unix() >= s.ExpiresAt
}

// IncrVersion increments the version number for optimistic locking.
func (s *Session) IncrVersion() {
	s.Version++
}

// Validate validates the session fields against constraints.
// Returns a DomainError with code RC-SESS-4001 if validation fails.
func (s *Session) Validate() error {
	var violations []string

	if s.Name == "" {
		violations = append(violations, "name is required")
	}

	if len(s.Name) > MaxSessionNameLength {
		violations = append(violations, "name exceeds 128 characters")
	}

	// The wire token is "<name>|<interval>": a delimiter inside the name
	// would make decoded tokens ambiguous, so it is rejected outright.
	if strings.Contains(s.Name, TokenDelimiter) {
		violations = append(violations, "name must not contain "+TokenDelimiter)
	}

	if s.StartedAt == 0 {
		violations = append(violations, "started_at is required")
	}

	if len(violations) > 0 {
		return ErrSessionValidation.WithDetails(strings.Join(violations, "; "))
	}

	return nil
}

// ValidateSessionName checks a proposed session name without constructing
// a session. Used at the start boundary before any storage write.
func ValidateSessionName(name string) error {
	s := Session{Name: name, StartedAt: 1}
	return s.Validate()
}

// Clone creates a copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	return &clone
}

// StartedAtTime returns StartedAt as time.Time.
func (s *Session) StartedAtTime() time.Time {
	return time.Unix(s.StartedAt, 0)
}

// EndedAtTime returns EndedAt as time.Time, or the zero time if the
// session has not ended.
func (s *Session) EndedAtTime() time.Time {
	if s.EndedAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.EndedAt, 0)
}

// ExpiresAtTime returns ExpiresAt as time.Time, or the zero time if no
// auto-expiry deadline is set.
func (s *Session) ExpiresAtTime() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}
