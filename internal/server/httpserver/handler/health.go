package handler

import (
	"net/http"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health, a liveness probe that does not
// touch storage.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       buildinfo.Get().Version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}, getRequestID(r))
}

// handleReady handles GET /ready. Readiness requires a storage round
// trip, so a wedged backend answers 503 and load balancers stop
// routing here.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	probe := &service.ListSessionsRequest{Filter: &service.SessionFilter{PageSize: 1}}
	if _, err := h.sessions.List(r.Context(), probe); err != nil {
		h.logger.Error("readiness probe failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable,
			domain.ErrStorageFailure.Code, "Storage not ready.", "", getRequestID(r))
		return
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"}, getRequestID(r))
}
