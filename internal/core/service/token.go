// Package service provides domain services for RollCall.
//
// Domain services contain pure business logic and orchestrate operations
// on domain models. They define interfaces for storage dependencies.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mzhnv/rollcall-go/internal/clock"
	"github.com/mzhnv/rollcall-go/internal/core/domain"
)

// SessionReader is the read-only session lookup the token validator needs.
type SessionReader interface {
	// Get retrieves a session by name.
	Get(ctx context.Context, name string) (*domain.Session, error)
}

// TokenService recomputes and validates rotating attendance tokens.
//
// Tokens are never stored: both sides derive them from the wall clock, so
// validation is a pure check with no side effects. Submitting the same
// token twice within its window yields the same verdict.
type TokenService struct {
	sessions       SessionReader
	clock          clock.Clock
	rotationPeriod time.Duration
	validityWindow time.Duration
}

// TokenServiceConfig holds configuration for TokenService.
type TokenServiceConfig struct {
	// RotationPeriod is the interval at which tokens rotate (default: 2s).
	RotationPeriod time.Duration

	// ValidityWindow is the acceptable deviation between the current time
	// and the instant encoded in a token (default: ±30s).
	ValidityWindow time.Duration

	// Clock overrides the time source (default: system clock).
	Clock clock.Clock
}

// DefaultTokenServiceConfig returns default configuration.
func DefaultTokenServiceConfig() *TokenServiceConfig {
	return &TokenServiceConfig{
		RotationPeriod: 2 * time.Second,
		ValidityWindow: 30 * time.Second,
	}
}

// NewTokenService creates a new TokenService with the given session reader and config.
func NewTokenService(sessions SessionReader, config *TokenServiceConfig) *TokenService {
	if config == nil {
		config = DefaultTokenServiceConfig()
	}
	if config.RotationPeriod <= 0 {
		config.RotationPeriod = 2 * time.Second
	}
	if config.ValidityWindow <= 0 {
		config.ValidityWindow = 30 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clock.System()
	}

	return &TokenService{
		sessions:       sessions,
		clock:          config.Clock,
		rotationPeriod: config.RotationPeriod,
		validityWindow: config.ValidityWindow,
	}
}

// ============================================================================
// Token Validation
// ============================================================================

// ValidateTokenRequest contains parameters for token validation.
type ValidateTokenRequest struct {
	Token          string        // The token to validate, "<session>|<interval>"
	RotationPeriod time.Duration // Optional, overrides the configured period
	ValidityWindow time.Duration // Optional, overrides the configured window
}

// ValidateTokenResponse contains the result of token validation.
type ValidateTokenResponse struct {
	SessionName string          // Session name decoded from the token
	Interval    int64           // Interval counter decoded from the token
	TokenTS     int64           // Unix seconds the token encodes (interval * period)
	Session     *domain.Session // The session the token belongs to
}

// Validate checks a rotating token and returns the instant it encodes.
//
// The checks run in a fixed order so earlier failures mask later ones: a
// malformed token is reported as malformed even if its session is long
// gone, and a stale token for a deleted session reports expiry, not a
// missing session.
func (s *TokenService) Validate(ctx context.Context, req *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	// 1. Decode the token
	name, interval, err := domain.DecodeToken(req.Token)
	if err != nil {
		return nil, err
	}

	// 2. Recover the issue instant from the interval counter
	period := s.periodSeconds(req.RotationPeriod)
	tokenTS := domain.IntervalTimestamp(interval, period)

	// 3. Freshness check against the symmetric validity window
	window := s.windowSeconds(req.ValidityWindow)
	now := s.clock.Now().Unix()
	skew := now - tokenTS
	if skew < 0 {
		skew = -skew
	}
	if skew > window {
		return nil, domain.ErrTokenExpired.WithDetails(
			fmt.Sprintf("token is %ds old (window %ds)", skew, window),
		)
	}

	// 4. The session must exist
	session, err := s.sessions.Get(ctx, name)
	if err != nil {
		if domain.IsDomainError(err, "RC-SESS-4040") {
			return nil, err
		}
		return nil, domain.ErrStorageFailure.WithCause(err)
	}

	// 5. The session must not have ended
	if session.HasEnded() {
		return nil, domain.ErrSessionEnded
	}

	return &ValidateTokenResponse{
		SessionName: name,
		Interval:    interval,
		TokenTS:     tokenTS,
		Session:     session,
	}, nil
}

// ============================================================================
// Token Issuance
// ============================================================================

// IssueTokenRequest contains parameters for token issuance.
type IssueTokenRequest struct {
	SessionName    string        // Required
	RotationPeriod time.Duration // Optional, overrides the configured period
}

// IssueTokenResponse contains the freshly computed token.
type IssueTokenResponse struct {
	Token     string // "<session>|<interval>"
	Interval  int64  // Current interval counter
	TokenTS   int64  // Unix seconds the token encodes
	RotatesIn int64  // Seconds until the next interval begins
}

// Issue computes the token for the current clock interval.
//
// Issuance is a stateless derivation: nothing is persisted, and two calls
// within the same interval return the same token. Callers wanting the
// ended/missing session checks should go through SessionService.CurrentToken.
func (s *TokenService) Issue(_ context.Context, req *IssueTokenRequest) (*IssueTokenResponse, error) {
	if req.SessionName == "" {
		return nil, domain.ErrSessionValidation.WithDetails("session name is required")
	}

	period := s.periodSeconds(req.RotationPeriod)
	now := s.clock.Now().Unix()
	interval := domain.IntervalAt(now, period)

	return &IssueTokenResponse{
		Token:     domain.EncodeToken(req.SessionName, interval),
		Interval:  interval,
		TokenTS:   domain.IntervalTimestamp(interval, period),
		RotatesIn: (interval+1)*period - now,
	}, nil
}

// RotationPeriod returns the configured rotation period.
func (s *TokenService) RotationPeriod() time.Duration {
	return s.rotationPeriod
}

// ValidityWindow returns the configured validity window.
func (s *TokenService) ValidityWindow() time.Duration {
	return s.validityWindow
}

func (s *TokenService) periodSeconds(override time.Duration) int64 {
	period := s.rotationPeriod
	if override > 0 {
		period = override
	}
	secs := int64(period / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return secs
}

func (s *TokenService) windowSeconds(override time.Duration) int64 {
	window := s.validityWindow
	if override > 0 {
		window = override
	}
	return int64(window / time.Second)
}
