package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
)

// handleStartSession handles POST /sessions. Starting a name that
// already exists restarts it, reported through the restarted flag.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleBadBody(w, r, err)
		return
	}

	if req.TTLSeconds < 0 {
		h.writeError(w, http.StatusBadRequest,
			domain.ErrSessionValidation.Code, domain.ErrSessionValidation.Message,
			"ttl_seconds must not be negative", getRequestID(r))
		return
	}

	resp, err := h.sessions.Start(r.Context(), &service.StartSessionRequest{
		Name: req.Name,
		TTL:  time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsStarted.Inc()
	}

	h.writeJSON(w, http.StatusCreated, StartSessionResponse{
		Session:   newSessionPayload(resp.Session),
		Restarted: resp.Restarted,
	}, getRequestID(r))
}

// handleEndSession handles POST /sessions/{name}/end. Ending an absent
// or already ended session is a no-op answered with 200 and ended=false.
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sessions.End(r.Context(), &service.EndSessionRequest{
		Name: r.PathValue("name"),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if resp.Ended && h.metrics != nil {
		h.metrics.SessionsEnded.WithLabelValues(metric.EndReasonRequest).Inc()
	}

	out := EndSessionResponse{Ended: resp.Ended}
	if resp.Session != nil {
		payload := newSessionPayload(resp.Session)
		out.Session = &payload
	}
	h.writeJSON(w, http.StatusOK, out, getRequestID(r))
}

// handleGetSession handles GET /sessions/{name}.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newSessionPayload(session), getRequestID(r))
}

// handleListSessions handles GET /sessions with optional status, sort,
// page, and page_size query parameters.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	requestID := getRequestID(r)

	filter := &service.SessionFilter{
		SortOrder: query.Get("sort"),
	}

	switch status := query.Get("status"); status {
	case "", service.SessionStatusActive, service.SessionStatusEnded:
		filter.Status = status
	default:
		h.writeError(w, http.StatusBadRequest,
			domain.ErrBadRequest.Code, domain.ErrBadRequest.Message,
			"status must be active or ended", requestID)
		return
	}

	var err error
	if filter.Page, err = queryInt(query.Get("page")); err != nil {
		h.writeError(w, http.StatusBadRequest,
			domain.ErrBadRequest.Code, domain.ErrBadRequest.Message,
			"page must be an integer", requestID)
		return
	}
	if filter.PageSize, err = queryInt(query.Get("page_size")); err != nil {
		h.writeError(w, http.StatusBadRequest,
			domain.ErrBadRequest.Code, domain.ErrBadRequest.Message,
			"page_size must be an integer", requestID)
		return
	}

	resp, err := h.sessions.List(r.Context(), &service.ListSessionsRequest{Filter: filter})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]SessionPayload, 0, len(resp.Items))
	for _, s := range resp.Items {
		items = append(items, newSessionPayload(s))
	}
	h.writeJSON(w, http.StatusOK, ListSessionsResponse{
		Items:    items,
		Total:    resp.Total,
		Page:     resp.Page,
		PageSize: resp.PageSize,
	}, getRequestID(r))
}

// handleCurrentToken handles GET /sessions/{name}/token, the presenter
// poll target. The response includes how long the token remains current
// so clients can schedule the next poll.
func (h *Handler) handleCurrentToken(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sessions.CurrentToken(r.Context(), &service.CurrentTokenRequest{
		Name: r.PathValue("name"),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, CurrentTokenResponse{
		Token:     resp.Token,
		Interval:  resp.Interval,
		TokenTS:   resp.TokenTS,
		RotatesIn: resp.RotatesIn,
		ExpiresAt: resp.ExpiresAt,
		MarkURL:   "/attendance?token=" + url.QueryEscape(resp.Token),
	}, getRequestID(r))
}

// queryInt parses an optional integer query parameter. Empty means
// zero, letting the service apply its defaults.
func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
