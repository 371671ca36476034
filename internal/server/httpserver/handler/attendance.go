package handler

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/telemetry/metric"
)

// handleMarkAttendance handles POST /attendance, the participant
// submission flow: the token is validated against the clock and its
// session, then the mark is recorded. Duplicates answer 200 with
// ok=false; token failures map to their error status.
func (h *Handler) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleBadBody(w, r, err)
		return
	}

	resp, err := h.attendance.Mark(r.Context(), &service.MarkRequest{
		Token:         req.Token,
		ParticipantID: req.ParticipantID,
	})
	if err != nil {
		h.countMarkFailure(err)
		h.handleServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TokenValidations.WithLabelValues(metric.OutcomeValid).Inc()
		outcome := metric.OutcomeRecorded
		if !resp.Recorded {
			outcome = metric.OutcomeDuplicate
		}
		h.metrics.AttendanceMarked.WithLabelValues(outcome).Inc()
	}

	out := MarkAttendanceResponse{OK: resp.Recorded, Message: resp.Message}
	if resp.Record != nil {
		out.TokenTS = resp.Record.TokenTS
		out.SubmittedAt = resp.Record.SubmittedAt
	}
	h.writeJSON(w, http.StatusOK, out, getRequestID(r))
}

// countMarkFailure feeds the outcome counters for a rejected mark.
func (h *Handler) countMarkFailure(err error) {
	if h.metrics == nil {
		return
	}
	if outcome, ok := validationOutcome(err); ok {
		h.metrics.TokenValidations.WithLabelValues(outcome).Inc()
	}
	h.metrics.AttendanceMarked.WithLabelValues(metric.OutcomeRejected).Inc()
}

// validationOutcome maps a token validation error to its metric label.
// Errors outside the validation chain report ok=false.
func validationOutcome(err error) (string, bool) {
	switch domain.GetErrorCode(err) {
	case domain.ErrMalformedToken.Code:
		return metric.OutcomeMalformed, true
	case domain.ErrTokenExpired.Code:
		return metric.OutcomeExpired, true
	case domain.ErrSessionNotFound.Code:
		return metric.OutcomeSessionNotFound, true
	case domain.ErrSessionEnded.Code:
		return metric.OutcomeSessionEnded, true
	default:
		return "", false
	}
}

// handleListAttendance handles GET /sessions/{name}/attendance. A
// session with no submissions, or an unknown name, lists empty rather
// than erroring, matching the export behavior.
func (h *Handler) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.attendance.ListBySession(r.Context(), r.PathValue("name"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := resp.Items
	if items == nil {
		items = []*domain.AttendanceRecord{}
	}
	h.writeJSON(w, http.StatusOK, ListAttendanceResponse{
		Items: items,
		Total: resp.Total,
	}, getRequestID(r))
}

// handleExportAttendance handles GET /sessions/{name}/attendance/export,
// serving the records as a CSV attachment. The export is buffered so a
// storage failure can still produce an error response.
func (h *Handler) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var buf bytes.Buffer
	if err := h.attendance.ExportCSV(r.Context(), &buf, name); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance_`+sanitizeFilename(name)+`.csv"`)
	if requestID := getRequestID(r); requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("csv export write failed", "session", name, "error", err)
	}
}

// sanitizeFilename keeps session names safe inside a Content-Disposition
// filename.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
