// Package service provides domain services for RollCall.
//
// SessionService handles the attendance session lifecycle.
package service

import (
	"context"
	"time"

	"github.com/mzhnv/rollcall-go/internal/clock"
	"github.com/mzhnv/rollcall-go/internal/core/domain"
)

// SessionRepository defines the storage interface for session operations.
type SessionRepository interface {
	// Upsert stores a session, replacing any existing session with the
	// same name.
	Upsert(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by name.
	Get(ctx context.Context, name string) (*domain.Session, error)

	// Update updates an existing session (with optimistic locking).
	Update(ctx context.Context, session *domain.Session, expectedVersion uint64) error

	// List retrieves sessions matching the given filter.
	List(ctx context.Context, filter *SessionFilter) ([]*domain.Session, int, error)
}

// SessionFilter defines filter criteria for session queries.
type SessionFilter struct {
	Status        string // "active" or "ended"; empty matches all
	ExpiresBefore int64  // Match sessions with 0 < ExpiresAt <= ExpiresBefore
	SortOrder     string // "desc" (default) or "asc", by started_at
	Page          int    // 1-indexed
	PageSize      int    // 0 returns all matches
}

// Session status filter values.
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// SessionService handles session lifecycle operations.
type SessionService struct {
	repo       SessionRepository
	tokens     *TokenService
	clock      clock.Clock
	defaultTTL time.Duration
}

// SessionServiceConfig holds configuration for SessionService.
type SessionServiceConfig struct {
	// DefaultTTL is applied as the auto-expiry deadline for sessions
	// started without an explicit TTL. Zero disables auto-expiry.
	DefaultTTL time.Duration

	// Clock overrides the time source (default: system clock).
	Clock clock.Clock
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo SessionRepository, tokens *TokenService, config *SessionServiceConfig) *SessionService {
	if config == nil {
		config = &SessionServiceConfig{}
	}
	if config.Clock == nil {
		config.Clock = clock.System()
	}

	return &SessionService{
		repo:       repo,
		tokens:     tokens,
		clock:      config.Clock,
		defaultTTL: config.DefaultTTL,
	}
}

// ============================================================================
// Session Start Operation
// ============================================================================

// StartSessionRequest contains parameters for starting a session.
type StartSessionRequest struct {
	Name string        // Required
	TTL  time.Duration // Optional auto-expiry deadline, 0 uses the configured default
}

// StartSessionResponse contains the result of starting a session.
type StartSessionResponse struct {
	Session   *domain.Session
	Restarted bool // True when an existing session was reactivated
}

// Start creates a session or restarts an existing one under the same name.
//
// Restarting clears any previous end marker, so a session that had ended
// accepts submissions again. Records from the earlier run are kept.
func (s *SessionService) Start(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error) {
	// 1. Validate the session name
	if err := domain.ValidateSessionName(req.Name); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ttl := req.TTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	// 2. Reactivate when a session with this name already exists
	existing, err := s.repo.Get(ctx, req.Name)
	if err == nil {
		existing.Restart(now)
		if ttl > 0 {
			existing.ExpiresAt = now.Add(ttl).Unix()
		}
		existing.IncrVersion()
		if err := s.repo.Upsert(ctx, existing); err != nil {
			return nil, domain.ErrStorageFailure.WithCause(err)
		}
		return &StartSessionResponse{Session: existing, Restarted: true}, nil
	}
	if !domain.IsDomainError(err, "RC-SESS-4040") {
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	// 3. Create a fresh session
	session := domain.NewSession(req.Name, now)
	if ttl > 0 {
		session.ExpiresAt = now.Add(ttl).Unix()
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, session); err != nil {
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	return &StartSessionResponse{Session: session, Restarted: false}, nil
}

// ============================================================================
// Session End Operation
// ============================================================================

// EndSessionRequest contains parameters for ending a session.
type EndSessionRequest struct {
	Name string
}

// EndSessionResponse contains the result of ending a session.
type EndSessionResponse struct {
	Session *domain.Session // Nil when the session does not exist
	Ended   bool            // True when this call transitioned the session
}

// End marks a session as ended.
//
// Ending an unknown session is a silent no-op, and ending an already
// ended session keeps the original end time. Both report Ended=false so
// callers can still tell what happened.
func (s *SessionService) End(ctx context.Context, req *EndSessionRequest) (*EndSessionResponse, error) {
	// 1. Validate input
	if req.Name == "" {
		return nil, domain.ErrSessionValidation.WithDetails("session name is required")
	}

	// 2. Ending an unknown session succeeds without effect
	session, err := s.repo.Get(ctx, req.Name)
	if err != nil {
		if domain.IsDomainError(err, "RC-SESS-4040") {
			return &EndSessionResponse{}, nil
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	// 3. Already ended: keep the original end time
	if session.HasEnded() {
		return &EndSessionResponse{Session: session, Ended: false}, nil
	}

	// 4. Transition and persist with optimistic locking
	oldVersion := session.Version
	session.End(s.clock.Now())
	session.IncrVersion()
	if err := s.repo.Update(ctx, session, oldVersion); err != nil {
		if domain.IsDomainError(err, "RC-SESS-4091") {
			return s.retryEnd(ctx, req.Name)
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	return &EndSessionResponse{Session: session, Ended: true}, nil
}

// retryEnd re-reads the session and applies the end transition once more
// after a version conflict.
func (s *SessionService) retryEnd(ctx context.Context, name string) (*EndSessionResponse, error) {
	session, err := s.repo.Get(ctx, name)
	if err != nil {
		if domain.IsDomainError(err, "RC-SESS-4040") {
			return &EndSessionResponse{}, nil
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}
	if session.HasEnded() {
		return &EndSessionResponse{Session: session, Ended: false}, nil
	}

	oldVersion := session.Version
	session.End(s.clock.Now())
	session.IncrVersion()
	if err := s.repo.Update(ctx, session, oldVersion); err != nil {
		return nil, domain.ErrStorageFailure.WithCause(err)
	}
	return &EndSessionResponse{Session: session, Ended: true}, nil
}

// ============================================================================
// Session Query Operations
// ============================================================================

// IsActive reports whether a session exists, has started, and has not ended.
// Unknown sessions report false rather than an error.
func (s *SessionService) IsActive(ctx context.Context, name string) (bool, error) {
	session, err := s.repo.Get(ctx, name)
	if err != nil {
		if domain.IsDomainError(err, "RC-SESS-4040") {
			return false, nil
		}
		return false, domain.ErrStorageFailure.WithCause(err)
	}
	return session.IsActive(), nil
}

// Get retrieves a session by name.
func (s *SessionService) Get(ctx context.Context, name string) (*domain.Session, error) {
	if name == "" {
		return nil, domain.ErrSessionValidation.WithDetails("session name is required")
	}
	session, err := s.repo.Get(ctx, name)
	if err != nil {
		if domain.IsDomainError(err, "RC-SESS-4040") {
			return nil, err
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}
	return session, nil
}

// ListSessionsRequest contains parameters for session listing.
type ListSessionsRequest struct {
	Filter *SessionFilter
}

// ListSessionsResponse contains the result of session listing.
type ListSessionsResponse struct {
	Items    []*domain.Session
	Total    int
	Page     int
	PageSize int
}

// List retrieves sessions matching the filter criteria.
func (s *SessionService) List(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	filter := req.Filter
	if filter == nil {
		filter = &SessionFilter{}
	}

	// Set defaults
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	} else if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	return &ListSessionsResponse{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// ============================================================================
// Current Token Operation
// ============================================================================

// CurrentTokenRequest contains parameters for the current-token query.
type CurrentTokenRequest struct {
	Name           string
	RotationPeriod time.Duration // Optional, overrides the configured period
}

// CurrentTokenResponse contains the token for the current interval.
type CurrentTokenResponse struct {
	Token     string // "<session>|<interval>"
	Interval  int64  // Current interval counter
	TokenTS   int64  // Unix seconds the token encodes
	RotatesIn int64  // Seconds until the token changes
	ExpiresAt int64  // Last Unix second the token passes validation
}

// CurrentToken derives the token for the current clock interval.
//
// The token is recomputed on every call and never stored. The session
// must exist and must not have ended.
func (s *SessionService) CurrentToken(ctx context.Context, req *CurrentTokenRequest) (*CurrentTokenResponse, error) {
	// 1. Validate input and session state
	if req.Name == "" {
		return nil, domain.ErrSessionValidation.WithDetails("session name is required")
	}
	session, err := s.repo.Get(ctx, req.Name)
	if err != nil {
		if domain.IsDomainError(err, "RC-SESS-4040") {
			return nil, err
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}
	if session.HasEnded() {
		return nil, domain.ErrSessionEnded
	}

	// 2. Derive the token for the current interval
	issued, err := s.tokens.Issue(ctx, &IssueTokenRequest{
		SessionName:    req.Name,
		RotationPeriod: req.RotationPeriod,
	})
	if err != nil {
		return nil, err
	}

	return &CurrentTokenResponse{
		Token:     issued.Token,
		Interval:  issued.Interval,
		TokenTS:   issued.TokenTS,
		RotatesIn: issued.RotatesIn,
		ExpiresAt: issued.TokenTS + int64(s.tokens.ValidityWindow()/time.Second),
	}, nil
}

// ============================================================================
// Auto Expiry
// ============================================================================

// ExpireDue ends every active session whose auto-expiry deadline has
// passed, using the same idempotent end path as an explicit End call.
// Returns the number of sessions ended.
func (s *SessionService) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now().Unix()
	due, _, err := s.repo.List(ctx, &SessionFilter{
		Status:        SessionStatusActive,
		ExpiresBefore: now,
	})
	if err != nil {
		return 0, domain.ErrStorageFailure.WithCause(err)
	}

	ended := 0
	for _, session := range due {
		resp, err := s.End(ctx, &EndSessionRequest{Name: session.Name})
		if err != nil {
			return ended, err
		}
		if resp.Ended {
			ended++
		}
	}
	return ended, nil
}
