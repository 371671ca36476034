// Package service provides domain services for RollCall.
//
// AttendanceService records submissions against sessions and guarantees
// one record per participant per session.
package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/mzhnv/rollcall-go/internal/clock"
	"github.com/mzhnv/rollcall-go/internal/core/domain"
)

// AttendanceRepository defines the storage interface for attendance records.
type AttendanceRepository interface {
	// Insert stores a new record. Implementations MUST enforce uniqueness
	// of (session_name, participant_id) and return ErrDuplicateAttendance
	// when it is violated, so races between concurrent submissions cannot
	// produce two records.
	Insert(ctx context.Context, record *domain.AttendanceRecord) error

	// GetBySessionParticipant retrieves the record a participant submitted
	// for a session. Returns (nil, false, nil) when no record exists.
	GetBySessionParticipant(ctx context.Context, sessionName, participantID string) (*domain.AttendanceRecord, bool, error)

	// ListBySession retrieves all records for a session ordered by
	// SubmittedAt ascending (record ID breaks ties).
	ListBySession(ctx context.Context, sessionName string) ([]*domain.AttendanceRecord, error)

	// CountBySession returns the number of records for a session.
	CountBySession(ctx context.Context, sessionName string) (int, error)
}

// Outcome messages shown to participants after a submission attempt.
const (
	MessageAttendanceMarked = "Attendance marked."
)

// AttendanceService handles attendance submission and reporting.
type AttendanceService struct {
	repo   AttendanceRepository
	tokens *TokenService
	clock  clock.Clock
}

// AttendanceServiceConfig holds configuration for AttendanceService.
type AttendanceServiceConfig struct {
	// Clock overrides the time source (default: system clock).
	Clock clock.Clock
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(repo AttendanceRepository, tokens *TokenService, config *AttendanceServiceConfig) *AttendanceService {
	if config == nil {
		config = &AttendanceServiceConfig{}
	}
	if config.Clock == nil {
		config.Clock = clock.System()
	}

	return &AttendanceService{
		repo:   repo,
		tokens: tokens,
		clock:  config.Clock,
	}
}

// ============================================================================
// Record Operation
// ============================================================================

// RecordAttendanceRequest contains parameters for recording attendance.
// The token is assumed to have been validated already; TokenTS carries the
// instant the validator extracted from it.
type RecordAttendanceRequest struct {
	SessionName   string
	ParticipantID string
	Token         string
	TokenTS       int64
}

// RecordAttendanceResponse contains the submission outcome.
type RecordAttendanceResponse struct {
	Recorded bool                     // False when the participant had already submitted
	Message  string                   // Participant-facing outcome message
	Record   *domain.AttendanceRecord // The stored record (existing one on duplicate)
}

// Record inserts an attendance record unless the participant already
// submitted for this session.
//
// A duplicate submission is a normal outcome, not an error: the response
// reports Recorded=false with the duplicate message. When two submissions
// race past the existence check, the storage uniqueness constraint decides
// the winner and the loser is reported as a duplicate.
func (a *AttendanceService) Record(ctx context.Context, req *RecordAttendanceRequest) (*RecordAttendanceResponse, error) {
	// 1. Validate input
	participantID := strings.TrimSpace(req.ParticipantID)
	if req.SessionName == "" {
		return nil, domain.ErrAttendanceValidation.WithDetails("session name is required")
	}
	if participantID == "" {
		return nil, domain.ErrAttendanceValidation.WithDetails("participant id is required")
	}

	// 2. Reject resubmission
	existing, found, err := a.repo.GetBySessionParticipant(ctx, req.SessionName, participantID)
	if err != nil {
		return nil, domain.ErrStorageFailure.WithCause(err)
	}
	if found {
		return &RecordAttendanceResponse{
			Recorded: false,
			Message:  domain.ErrDuplicateAttendance.Message,
			Record:   existing,
		}, nil
	}

	// 3. Build and validate the record
	record, err := domain.NewAttendanceRecord(req.SessionName, participantID, req.Token, req.TokenTS, a.clock.Now())
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	// 4. Insert; the uniqueness constraint backstops concurrent submissions
	if err := a.repo.Insert(ctx, record); err != nil {
		if domain.IsDomainError(err, "RC-ATTD-4090") {
			winner, found, gerr := a.repo.GetBySessionParticipant(ctx, req.SessionName, participantID)
			if gerr != nil || !found {
				winner = nil
			}
			return &RecordAttendanceResponse{
				Recorded: false,
				Message:  domain.ErrDuplicateAttendance.Message,
				Record:   winner,
			}, nil
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	return &RecordAttendanceResponse{
		Recorded: true,
		Message:  MessageAttendanceMarked,
		Record:   record,
	}, nil
}

// ============================================================================
// Mark Operation
// ============================================================================

// MarkRequest contains a raw participant submission: the scanned token and
// the self-reported participant ID.
type MarkRequest struct {
	Token          string
	ParticipantID  string
	RotationPeriod time.Duration // Optional, overrides the configured period
	ValidityWindow time.Duration // Optional, overrides the configured window
}

// Mark validates the scanned token and records attendance in one step.
// The session name is taken from the decoded token, never from the caller.
func (a *AttendanceService) Mark(ctx context.Context, req *MarkRequest) (*RecordAttendanceResponse, error) {
	verdict, err := a.tokens.Validate(ctx, &ValidateTokenRequest{
		Token:          req.Token,
		RotationPeriod: req.RotationPeriod,
		ValidityWindow: req.ValidityWindow,
	})
	if err != nil {
		return nil, err
	}

	return a.Record(ctx, &RecordAttendanceRequest{
		SessionName:   verdict.SessionName,
		ParticipantID: req.ParticipantID,
		Token:         req.Token,
		TokenTS:       verdict.TokenTS,
	})
}

// ============================================================================
// Reporting Operations
// ============================================================================

// ListAttendanceResponse contains the records for a session.
type ListAttendanceResponse struct {
	Items []*domain.AttendanceRecord
	Total int
}

// ListBySession retrieves all records for a session in submission order.
func (a *AttendanceService) ListBySession(ctx context.Context, sessionName string) (*ListAttendanceResponse, error) {
	if sessionName == "" {
		return nil, domain.ErrAttendanceValidation.WithDetails("session name is required")
	}

	items, err := a.repo.ListBySession(ctx, sessionName)
	if err != nil {
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	return &ListAttendanceResponse{
		Items: items,
		Total: len(items),
	}, nil
}

// CountBySession returns the number of records for a session.
func (a *AttendanceService) CountBySession(ctx context.Context, sessionName string) (int, error) {
	if sessionName == "" {
		return 0, domain.ErrAttendanceValidation.WithDetails("session name is required")
	}
	count, err := a.repo.CountBySession(ctx, sessionName)
	if err != nil {
		return 0, domain.ErrStorageFailure.WithCause(err)
	}
	return count, nil
}

// ExportCSV writes the session's records to w as CSV with a header row
// and human-readable submission times.
func (a *AttendanceService) ExportCSV(ctx context.Context, w io.Writer, sessionName string) error {
	resp, err := a.ListBySession(ctx, sessionName)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"reg_no", "session_name", "timestamp"}); err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	for _, record := range resp.Items {
		row := []string{
			record.ParticipantID,
			record.SessionName,
			record.SubmittedAtTime().Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return domain.ErrInternalServer.WithCause(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	return nil
}
