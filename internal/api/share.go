package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/tally/internal/calculator"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/metrics"
	"github.com/opensource-finance/tally/internal/repository"
)

// ShareRequest is the body of POST /api/v1/share. Parameters, when
// present, take precedence over SessionID; with neither the defaults are
// shared.
type ShareRequest struct {
	Name       string                  `json:"name,omitempty"`
	Parameters *domain.InputParameters `json:"parameters,omitempty"`
	SessionID  string                  `json:"sessionId,omitempty"`
}

// ShareResponse is returned by POST /api/v1/share.
type ShareResponse struct {
	Scenario *domain.Scenario   `json:"scenario"`
	ShortURL string             `json:"shortUrl"`
	Message  calculator.Message `json:"message"`
}

// ScenarioResponse is a saved scenario with its recomputed results.
type ScenarioResponse struct {
	Scenario *domain.Scenario `json:"scenario"`
	EstimateResponse
}

// Share handles POST /api/v1/share. It saves the assumptions as a
// scenario and returns the share link and the outgoing message. Delivery
// is left to the caller.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}
	ctx := r.Context()
	ns := GetNamespace(ctx)

	var req ShareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Name) > 200 {
		writeError(w, http.StatusBadRequest, "name must be at most 200 characters")
		return
	}

	p := domain.DefaultParameters()
	switch {
	case req.Parameters != nil:
		p = *req.Parameters
		if err := p.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case req.SessionID != "":
		if h.sessions == nil {
			writeError(w, http.StatusServiceUnavailable, "session store not available")
			return
		}
		sess, err := h.sessions.Get(ctx, ns, req.SessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		p = sess.Parameters
	}

	if limited, err := h.shareLimited(r, ns); err != nil {
		slog.Warn("share rate limit check failed", "error", err)
	} else if limited {
		metrics.SharesTotal.WithLabelValues("rate_limited").Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(h.cfg.ShareWindow.Seconds())))
		writeError(w, http.StatusTooManyRequests, "too many share requests")
		return
	}

	c := calculator.Restore(h.est, nil, p)
	page := h.pageURL(r)
	msg := c.Share(page, req.Name)

	scenario := &domain.Scenario{
		ID:         newScenarioID(),
		Namespace:  ns,
		Name:       req.Name,
		Parameters: p,
		ShareURL:   c.ShareURL(h.storedPageURL()),
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.repo.SaveScenario(ctx, ns, scenario); err != nil {
		slog.Error("failed to save scenario", "namespace", ns, "error", err)
		metrics.SharesTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "failed to save scenario")
		return
	}
	metrics.SharesTotal.WithLabelValues("created").Inc()

	snap := c.Snapshot()
	h.publish(r, domain.TopicScenarioShared, &domain.UsageEvent{
		ScenarioID:    scenario.ID,
		HoursSaved:    domain.FiniteOrZero(snap.Metrics.TotalHoursSaved),
		MoneySaved:    domain.FiniteOrZero(snap.Metrics.TotalAnnualMoneySaved),
		ActivePlayers: p.ActivePlayers,
	})

	slog.Info("scenario shared",
		"scenario_id", scenario.ID,
		"namespace", ns,
		"trace_id", GetTraceID(ctx),
	)

	w.Header().Set("Location", "/api/v1/scenarios/"+scenario.ID)
	writeJSON(w, http.StatusCreated, ShareResponse{
		Scenario: scenario,
		ShortURL: shortURL(page, ns, scenario.ID),
		Message:  msg,
	})
}

// ResolveShortLink handles GET /s/{id}: it redirects to the calculator page
// with the scenario's assumptions and counts the visit. The target is
// rebuilt from the parameters, never taken from stored text.
func (h *Handler) ResolveShortLink(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}
	ctx := r.Context()
	ns := GetNamespace(ctx)
	id := chi.URLParam(r, "id")

	scenario, err := h.lookupScenario(r, ns, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}
	if err != nil {
		slog.Error("failed to resolve short link", "scenario_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve link")
		return
	}

	if err := h.repo.RecordView(ctx, ns, id); err != nil {
		slog.Warn("failed to record view", "scenario_id", id, "error", err)
	}
	metrics.ShareViewsTotal.Inc()

	c := calculator.Restore(h.est, nil, scenario.Parameters)
	http.Redirect(w, r, withNamespace(c.ShareURL(h.storedPageURL()), ns), http.StatusFound)
}

// ListScenarios handles GET /api/v1/scenarios?limit=n.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}
	ctx := r.Context()
	ns := GetNamespace(ctx)

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	scenarios, err := h.repo.ListScenarios(ctx, ns, limit)
	if err != nil {
		slog.Error("failed to list scenarios", "namespace", ns, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}
	if scenarios == nil {
		scenarios = []*domain.Scenario{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"count":     len(scenarios),
	})
}

// GetScenario handles GET /api/v1/scenarios/{id}.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}
	id := chi.URLParam(r, "id")

	scenario, err := h.repo.GetScenario(r.Context(), GetNamespace(r.Context()), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}
	if err != nil {
		slog.Error("failed to get scenario", "scenario_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get scenario")
		return
	}

	c := calculator.Restore(h.est, nil, scenario.Parameters)
	writeJSON(w, http.StatusOK, ScenarioResponse{Scenario: scenario, EstimateResponse: h.estimateResponse(r, c)})
}

// Usage handles GET /api/v1/usage.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}
	ns := GetNamespace(r.Context())

	summary, err := h.repo.UsageSummary(r.Context(), ns)
	if err != nil {
		slog.Error("failed to summarise usage", "namespace", ns, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// lookupScenario reads a scenario through the cache.
func (h *Handler) lookupScenario(r *http.Request, ns, id string) (*domain.Scenario, error) {
	ctx := r.Context()
	key := "scenario:" + id

	if h.cache != nil {
		data, err := h.cache.Get(ctx, ns, key)
		if err == nil && data != nil {
			var s domain.Scenario
			if err := json.Unmarshal(data, &s); err == nil {
				return &s, nil
			}
		}
	}

	s, err := h.repo.GetScenario(ctx, ns, id)
	if err != nil {
		return nil, err
	}

	if h.cache != nil && h.cfg.ScenarioCacheTTL > 0 {
		if data, err := json.Marshal(s); err == nil {
			if err := h.cache.Set(ctx, ns, key, data, h.cfg.ScenarioCacheTTL); err != nil {
				slog.Debug("failed to cache scenario", "scenario_id", id, "error", err)
			}
		}
	}
	return s, nil
}

// shareLimited counts this request against the client's share budget.
func (h *Handler) shareLimited(r *http.Request, ns string) (bool, error) {
	if h.cache == nil || h.cfg.ShareLimit <= 0 || h.cfg.ShareWindow <= 0 {
		return false, nil
	}
	count, err := h.cache.IncrementCounter(r.Context(), ns, "share:"+clientIP(r), h.cfg.ShareWindow)
	if err != nil {
		return false, fmt.Errorf("increment share counter: %w", err)
	}
	return count > h.cfg.ShareLimit, nil
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already resolved from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func newScenarioID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func shortURL(page *url.URL, ns, id string) string {
	u := page.ResolveReference(&url.URL{Path: "s/" + id})
	if ns != domain.DefaultNamespace {
		u.RawQuery = url.Values{NamespaceQuery: {ns}}.Encode()
	}
	return u.String()
}
