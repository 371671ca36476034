package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/server/config"
	"github.com/mzhnv/rollcall-go/internal/telemetry/logger"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a
// mark request, well under a kilobyte.
const maxBodyBytes = 1 << 20

// Config holds the handler's dependencies.
type Config struct {
	Sessions   *service.SessionService
	Attendance *service.AttendanceService
	Tokens     *service.TokenService

	// AppConfig, when set, enables GET /config with secrets masked.
	AppConfig *config.ServerConfig

	// Metrics, when set, enables GET /metrics and outcome counters.
	Metrics *metric.Metrics

	Logger logger.Logger
}

// Handler routes and serves the HTTP API.
type Handler struct {
	sessions   *service.SessionService
	attendance *service.AttendanceService
	tokens     *service.TokenService
	appConfig  *config.ServerConfig
	metrics    *metric.Metrics
	logger     logger.Logger
	mux        *http.ServeMux
	started    time.Time
}

// New creates a Handler with all routes registered.
func New(cfg Config) (*Handler, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if cfg.Attendance == nil {
		return nil, fmt.Errorf("attendance service is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}

	lgr := cfg.Logger
	if lgr == nil {
		lgr = logger.Default()
	}

	h := &Handler{
		sessions:   cfg.Sessions,
		attendance: cfg.Attendance,
		tokens:     cfg.Tokens,
		appConfig:  cfg.AppConfig,
		metrics:    cfg.Metrics,
		logger:     lgr,
		mux:        http.NewServeMux(),
		started:    time.Now(),
	}
	h.registerRoutes()
	return h, nil
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /sessions", h.handleStartSession)
	h.mux.HandleFunc("GET /sessions", h.handleListSessions)
	h.mux.HandleFunc("GET /sessions/{name}", h.handleGetSession)
	h.mux.HandleFunc("POST /sessions/{name}/end", h.handleEndSession)
	h.mux.HandleFunc("GET /sessions/{name}/token", h.handleCurrentToken)

	h.mux.HandleFunc("POST /attendance", h.handleMarkAttendance)
	h.mux.HandleFunc("GET /sessions/{name}/attendance", h.handleListAttendance)
	h.mux.HandleFunc("GET /sessions/{name}/attendance/export", h.handleExportAttendance)

	if h.appConfig != nil {
		h.mux.HandleFunc("GET /config", h.handleShowConfig)
	}
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Route returns the mux pattern that would serve r, without the method
// prefix. Metrics middleware uses it as the route label so path values
// do not explode label cardinality.
func (h *Handler) Route(r *http.Request) string {
	_, pattern := h.mux.Handler(r)
	if pattern == "" {
		return "unmatched"
	}
	if idx := strings.IndexByte(pattern, ' '); idx != -1 {
		return pattern[idx+1:]
	}
	return pattern
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(NewResponse(data, requestID)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error envelope with the code mirrored in the
// X-Error-Code header.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(NewErrorResponse(code, message, details, requestID)); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

// handleServiceError maps a service error onto the wire. Server-side
// failures are logged and their details withheld from the client.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.GetErrorCode(err)
	status := errorCodeToHTTPStatus(code)

	message := domain.ErrInternalServer.Message
	details := ""
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
		details = domainErr.Details
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"code", code,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		details = ""
	}

	h.writeError(w, status, code, message, details, getRequestID(r))
}

// errorCodeToHTTPStatus maps a domain error code to an HTTP status via
// its numeric suffix.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4100"):
		return http.StatusGone
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// getRequestID returns the ID the middleware stored in the context,
// falling back to the raw header for handlers served without it.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// decodeJSON decodes a request body with the size cap applied.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// handleBadBody responds to an undecodable request body.
func (h *Handler) handleBadBody(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, http.StatusBadRequest,
		domain.ErrBadRequest.Code, "Invalid request body.", err.Error(), getRequestID(r))
}
