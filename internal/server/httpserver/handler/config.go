package handler

import (
	"net/http"

	"github.com/mzhnv/rollcall-go/internal/server/config"
)

// handleShowConfig handles GET /config, returning the running
// configuration with secrets masked.
func (h *Handler) handleShowConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, config.Sanitize(h.appConfig), getRequestID(r))
}
