package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/tally/internal/calculator"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/metrics"
	"github.com/opensource-finance/tally/internal/session"
)

// SessionResponse is a session with its current results.
type SessionResponse struct {
	Session *session.Session `json:"session"`
	EstimateResponse
	Error string `json:"error,omitempty"`
}

// EditRequest is the body of PATCH /api/v1/sessions/{id}. Value is in
// display units unless Units is "stored".
type EditRequest struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Units string  `json:"units,omitempty"`
}

// CreateSession handles POST /api/v1/sessions. Query parameters seed the
// session the same way they seed the page.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not available")
		return
	}
	ctx := r.Context()
	ns := GetNamespace(ctx)

	c := calculator.New(h.est, nil)
	overridden, err := c.InitFromQuery(ctx, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute estimate")
		return
	}

	sess, err := h.sessions.Create(ctx, ns, c.Parameters())
	if err != nil {
		slog.Error("failed to create session", "namespace", ns, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	metrics.SessionsCreatedTotal.Inc()
	h.recordEstimate(r, "session", c.Snapshot())

	resp := SessionResponse{Session: sess, EstimateResponse: h.estimateResponse(r, c)}
	resp.Overridden = overridden
	w.Header().Set("Location", "/api/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	c := calculator.Restore(h.est, nil, sess.Parameters)
	writeJSON(w, http.StatusOK, SessionResponse{Session: sess, EstimateResponse: h.estimateResponse(r, c)})
}

// EditSession handles PATCH /api/v1/sessions/{id}. A valid edit is stored
// and every metric recomputed. A rejected value answers 422 with the
// unchanged session so clients can restore the field.
func (h *Handler) EditSession(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	field, err := domain.ParseField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	units, err := domain.ParseUnits(req.Units)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	c := calculator.Restore(h.est, nil, sess.Parameters)
	if err := c.Apply(ctx, calculator.Edit{Field: field, Value: req.Value, Units: units}); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			metrics.ObserveEdit(string(field), false)
			writeJSON(w, http.StatusUnprocessableEntity, SessionResponse{
				Session:          sess,
				EstimateResponse: h.estimateResponse(r, c),
				Error:            err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to apply edit")
		return
	}
	metrics.ObserveEdit(string(field), true)

	sess.Parameters = c.Parameters()
	sess.Edits++
	if err := h.sessions.Save(ctx, GetNamespace(ctx), sess); err != nil {
		slog.Error("failed to save session", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}

	snap := c.Snapshot()
	h.publish(r, domain.TopicParameterEdited, &domain.UsageEvent{
		HoursSaved:    domain.FiniteOrZero(snap.Metrics.TotalHoursSaved),
		MoneySaved:    domain.FiniteOrZero(snap.Metrics.TotalAnnualMoneySaved),
		ActivePlayers: snap.Parameters.ActivePlayers,
	})

	writeJSON(w, http.StatusOK, SessionResponse{Session: sess, EstimateResponse: h.estimateResponse(r, c)})
}

// DeleteSession handles DELETE /api/v1/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not available")
		return
	}
	ctx := r.Context()
	if err := h.sessions.Delete(ctx, GetNamespace(ctx), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not available")
		return nil, false
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	sess, err := h.sessions.Get(ctx, GetNamespace(ctx), id)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return sess, true
}
