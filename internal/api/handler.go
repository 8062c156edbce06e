package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/opensource-finance/tally/internal/calculator"
	"github.com/opensource-finance/tally/internal/display"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/estimator"
	"github.com/opensource-finance/tally/internal/metrics"
	"github.com/opensource-finance/tally/internal/session"
	"github.com/opensource-finance/tally/internal/worker"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Dependencies are the components the handlers use. Repo, Cache and Bus
// may be nil; endpoints that need a missing one answer 503.
type Dependencies struct {
	Repo       domain.Repository
	Cache      domain.Cache
	Bus        domain.EventBus
	Estimator  *estimator.Estimator
	Calculator domain.CalculatorConfig
	PublicURL  string
	Version    string

	// ServiceName names the OpenTelemetry tracer.
	ServiceName string

	// Worker, when running, reports its subscriptions on /health.
	Worker *worker.Worker
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	est       *estimator.Estimator
	sessions  *session.Store
	cfg       domain.CalculatorConfig
	publicURL *url.URL
	version   string
	worker    *worker.Worker
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) (*Handler, error) {
	h := &Handler{
		repo:    deps.Repo,
		cache:   deps.Cache,
		bus:     deps.Bus,
		est:     deps.Estimator,
		cfg:     deps.Calculator,
		version: deps.Version,
		worker:  deps.Worker,
	}
	if h.est == nil {
		h.est = estimator.New(estimator.DefaultBaselines())
	}
	if deps.Cache != nil {
		h.sessions = session.NewStore(deps.Cache, deps.Calculator.SessionTTL)
	}
	if deps.PublicURL != "" {
		u, err := url.Parse(deps.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid public URL %q", deps.PublicURL)
		}
		h.publicURL = u
	}
	return h, nil
}

// EstimateResponse is returned by the estimate, session and scenario endpoints.
type EstimateResponse struct {
	Parameters domain.InputParameters `json:"parameters"`
	Metrics    domain.DerivedMetrics  `json:"metrics"`
	Display    display.Results        `json:"display"`
	ShareURL   string                 `json:"shareUrl"`
	Overridden bool                   `json:"overridden,omitempty"`
}

func (h *Handler) estimateResponse(r *http.Request, c *calculator.Calculator) EstimateResponse {
	snap := c.Snapshot()
	return EstimateResponse{
		Parameters: snap.Parameters,
		Metrics:    snap.Metrics,
		Display:    snap.Display,
		ShareURL:   c.ShareURL(h.pageURL(r)),
	}
}

// Estimate handles GET /api/v1/estimate. The query string uses the same
// keys and stored units as share links.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	c := calculator.New(h.est, nil)
	overridden, err := c.InitFromQuery(r.Context(), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute estimate")
		return
	}

	resp := h.estimateResponse(r, c)
	resp.Overridden = overridden

	h.recordEstimate(r, "api", c.Snapshot())
	writeJSON(w, http.StatusOK, resp)
}

// ComputeEstimate handles POST /api/v1/estimate. Fields missing from the
// body keep their default values; present fields must be positive.
func (h *Handler) ComputeEstimate(w http.ResponseWriter, r *http.Request) {
	p := domain.DefaultParameters()
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := calculator.Restore(h.est, nil, p)
	h.recordEstimate(r, "api", c.Snapshot())
	writeJSON(w, http.StatusOK, h.estimateResponse(r, c))
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	components := map[string]string{}

	check := func(name string, ping func() error) {
		if err := ping(); err != nil {
			components[name] = err.Error()
			status = "degraded"
			return
		}
		components[name] = "ok"
	}

	ctx := r.Context()
	if h.repo != nil {
		check("repository", func() error { return h.repo.Ping(ctx) })
	}
	if h.cache != nil {
		check("cache", func() error { return h.cache.Ping(ctx) })
	}
	if h.bus != nil {
		check("bus", func() error { return h.bus.Ping(ctx) })
	}
	if h.worker != nil {
		check("worker", func() error {
			if h.worker.GetStats().SubscriptionCount == 0 {
				return errors.New("no active subscriptions")
			}
			return nil
		})
	}

	resp := map[string]any{
		"status":     status,
		"version":    h.version,
		"components": components,
	}
	if stats := h.runtimeStats(); len(stats) > 0 {
		resp["stats"] = stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// droppedCounter is implemented by buses that drop on backpressure.
type droppedCounter interface {
	Dropped() int64
}

// sizedCache is implemented by caches holding entries in process.
type sizedCache interface {
	Stats() (size int, capacity int)
}

func (h *Handler) runtimeStats() map[string]any {
	stats := map[string]any{}
	if d, ok := h.bus.(droppedCounter); ok {
		stats["busDropped"] = d.Dropped()
	}
	if c, ok := h.cache.(sizedCache); ok {
		size, capacity := c.Stats()
		stats["cacheEntries"] = size
		stats["cacheCapacity"] = capacity
	}
	if h.worker != nil {
		stats["worker"] = h.worker.GetStats()
	}
	return stats
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// pageURL is the calculator page share links point at.
func (h *Handler) pageURL(r *http.Request) *url.URL {
	if h.publicURL != nil {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: "/"}
}

// storedPageURL is the page saved scenarios and short links point at.
// Request headers are client controlled, so without a public URL the
// link stays relative to this server.
func (h *Handler) storedPageURL() *url.URL {
	if h.publicURL != nil {
		return h.publicURL
	}
	return &url.URL{Path: "/"}
}

// withNamespace appends the ns query parameter to a page link unless ns is
// the default namespace.
func withNamespace(link, ns string) string {
	if ns == domain.DefaultNamespace {
		return link
	}
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + url.Values{NamespaceQuery: {ns}}.Encode()
}

// recordEstimate updates metrics and publishes a usage event.
func (h *Handler) recordEstimate(r *http.Request, source string, snap calculator.Snapshot) {
	metrics.ObserveEstimate(source, domain.FiniteOrZero(snap.Metrics.TotalHoursSaved))
	h.publish(r, domain.TopicEstimateComputed, &domain.UsageEvent{
		HoursSaved:    domain.FiniteOrZero(snap.Metrics.TotalHoursSaved),
		MoneySaved:    domain.FiniteOrZero(snap.Metrics.TotalAnnualMoneySaved),
		ActivePlayers: snap.Parameters.ActivePlayers,
	})
}

// publish sends a usage event. Failures are logged; usage statistics never
// fail a request.
func (h *Handler) publish(r *http.Request, topic string, ev *domain.UsageEvent) {
	if h.bus == nil {
		return
	}
	payload, err := worker.EncodeEvent(ev)
	if err != nil {
		slog.Error("failed to encode usage event", "topic", topic, "error", err)
		return
	}
	ns := GetNamespace(r.Context())
	if err := h.bus.Publish(r.Context(), ns, topic, payload); err != nil {
		slog.Warn("failed to publish usage event",
			"topic", topic,
			"namespace", ns,
			"error", err,
		)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON request body: %v", err)
	}
	return nil
}

// writeJSON writes a JSON response. Values that cannot be encoded turn
// into a 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"response could not be encoded"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
