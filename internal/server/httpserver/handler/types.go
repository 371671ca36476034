package handler

import (
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
)

// Response is the envelope every JSON endpoint uses. Code is "OK" on
// success, otherwise the domain error code whose numeric suffix mirrors
// the HTTP status.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   string `json:"details,omitempty"`
}

// NewResponse creates a success envelope around data.
func NewResponse(data any, requestID string) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(code, message, details, requestID string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	Name string `json:"name"`

	// TTLSeconds arms auto-expiry. Zero means the session runs until
	// ended explicitly.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// SessionPayload is a session as returned by the API, the stored fields
// plus the derived active flag.
type SessionPayload struct {
	*domain.Session
	Active bool `json:"active"`
}

func newSessionPayload(s *domain.Session) SessionPayload {
	return SessionPayload{Session: s, Active: s.IsActive()}
}

// StartSessionResponse is the body of a successful POST /sessions.
type StartSessionResponse struct {
	Session SessionPayload `json:"session"`

	// Restarted reports that an existing session was reactivated
	// instead of created.
	Restarted bool `json:"restarted"`
}

// EndSessionResponse is the body of POST /sessions/{name}/end. Ended is
// false when the session was absent or had already ended.
type EndSessionResponse struct {
	Ended   bool            `json:"ended"`
	Session *SessionPayload `json:"session,omitempty"`
}

// ListSessionsResponse is the body of GET /sessions.
type ListSessionsResponse struct {
	Items    []SessionPayload `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// CurrentTokenResponse is the body of GET /sessions/{name}/token,
// polled by the presenter view between rotations.
type CurrentTokenResponse struct {
	Token     string `json:"token"`
	Interval  int64  `json:"interval"`
	TokenTS   int64  `json:"token_ts"`
	RotatesIn int64  `json:"rotates_in"`
	ExpiresAt int64  `json:"expires_at"`

	// MarkURL is the server-relative submission target the presenter
	// embeds in the QR code.
	MarkURL string `json:"mark_url"`
}

// MarkAttendanceRequest is the body of POST /attendance. The session is
// taken from the decoded token, never from the caller.
type MarkAttendanceRequest struct {
	Token         string `json:"token"`
	ParticipantID string `json:"participant_id"`
}

// MarkAttendanceResponse is the body of a 200 from POST /attendance.
// A duplicate submission reports OK=false with the stored record's
// timestamps; token validation failures are error responses instead.
type MarkAttendanceResponse struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	TokenTS     int64  `json:"token_ts,omitempty"`
	SubmittedAt int64  `json:"submitted_at,omitempty"`
}

// ListAttendanceResponse is the body of GET /sessions/{name}/attendance.
// Items are ordered by submission time.
type ListAttendanceResponse struct {
	Items []*domain.AttendanceRecord `json:"items"`
	Total int                        `json:"total"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status string `json:"status"`
}
