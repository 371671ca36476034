// Package domain defines the core domain models for RollCall.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes follow the RC-<AREA>-<NNNN> format; the numeric suffix mirrors the
// HTTP status the error maps to at the transport boundary.
type DomainError struct {
	Code    string // Error code (e.g., "RC-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
// Two DomainErrors are considered equal when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks whether the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Token Errors (TOKN)
// ============================================================================

var (
	// ErrMalformedToken indicates the token does not split into a session
	// name and an integer interval on the delimiter.
	ErrMalformedToken = NewDomainError("RC-TOKN-4000", "Invalid token format.")

	// ErrTokenExpired indicates the token's interval timestamp is outside
	// the validity window around the current time.
	ErrTokenExpired = NewDomainError("RC-TOKN-4100", "QR expired, please scan a fresh one.")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionNotFound indicates the named session does not exist.
	ErrSessionNotFound = NewDomainError("RC-SESS-4040", "Session not found.")

	// ErrSessionEnded indicates the session has been ended and no longer
	// accepts submissions.
	ErrSessionEnded = NewDomainError("RC-SESS-4100", "Session has ended.")

	// ErrSessionValidation indicates session data validation failed.
	ErrSessionValidation = NewDomainError("RC-SESS-4001", "session validation failed")

	// ErrSessionVersionConflict indicates an optimistic lock conflict.
	ErrSessionVersionConflict = NewDomainError("RC-SESS-4091", "version conflict, please retry")
)

// ============================================================================
// Attendance Errors (ATTD)
// ============================================================================

var (
	// ErrDuplicateAttendance indicates the participant already submitted
	// attendance for this session.
	ErrDuplicateAttendance = NewDomainError("RC-ATTD-4090", "This registration number has already submitted.")

	// ErrAttendanceValidation indicates attendance data validation failed.
	ErrAttendanceValidation = NewDomainError("RC-ATTD-4001", "attendance validation failed")
)

// ============================================================================
// System Errors (SYS / STOR)
// ============================================================================

var (
	// ErrStorageFailure indicates a storage layer fault. It is fatal for the
	// operation that hit it: propagated to the caller as-is, never retried
	// by the core.
	ErrStorageFailure = NewDomainError("RC-STOR-5000", "storage failure")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("RC-SYS-5000", "internal server error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("RC-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("RC-SYS-4290", "too many requests")
)
