// Package worker records calculator usage asynchronously from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/metrics"
)

// topicKinds maps each consumed topic to the usage kind it records.
var topicKinds = map[string]domain.UsageKind{
	domain.TopicEstimateComputed: domain.UsageEstimate,
	domain.TopicParameterEdited:  domain.UsageEdit,
	domain.TopicScenarioShared:   domain.UsageShare,
}

// Worker consumes usage topics and appends them to the repository.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// Namespaces to subscribe to. Empty means every namespace, the same
	// as listing domain.AllNamespaces.
	Namespaces []string
}

// NewWorker creates a new usage worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to every usage topic in each namespace.
func (w *Worker) Start(cfg Config) error {
	namespaces := cfg.Namespaces
	if len(namespaces) == 0 || slices.Contains(namespaces, domain.AllNamespaces) {
		// A wildcard plus named namespaces would record events twice.
		namespaces = []string{domain.AllNamespaces}
	}

	started := 0
	for _, ns := range namespaces {
		if err := w.startNamespace(ns); err != nil {
			slog.Error("failed to start worker for namespace",
				"namespace", ns,
				"error", err,
			)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("worker: no namespace could be subscribed")
	}

	slog.Info("usage worker started",
		"namespace_count", started,
	)
	return nil
}

func (w *Worker) startNamespace(namespace string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for topic := range topicKinds {
		sub, err := w.bus.Subscribe(w.ctx, namespace, topic, w.handleMessage)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		w.subscriptions = append(w.subscriptions, sub)
	}
	metrics.WorkerSubscriptions.Set(float64(len(w.subscriptions)))

	slog.Debug("namespace worker started", "namespace", namespace)
	return nil
}

// handleMessage turns a bus message into a stored usage event. The
// message ID doubles as the event ID so redelivery cannot double count.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	ev, err := DecodeEvent(msg)
	if err != nil {
		metrics.UsageEventsTotal.WithLabelValues("unknown", "invalid").Inc()
		return err
	}

	if err := w.repo.RecordUsage(ctx, ev.Namespace, ev); err != nil {
		metrics.UsageEventsTotal.WithLabelValues(string(ev.Kind), "error").Inc()
		slog.Error("failed to record usage",
			"namespace", ev.Namespace,
			"kind", ev.Kind,
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	metrics.UsageEventsTotal.WithLabelValues(string(ev.Kind), "recorded").Inc()
	slog.Debug("usage recorded",
		"namespace", ev.Namespace,
		"kind", ev.Kind,
		"money_saved", ev.MoneySaved,
	)
	return nil
}

// EncodeEvent serializes a usage event as a bus payload.
func EncodeEvent(ev *domain.UsageEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a bus message into a usage event, filling identity,
// namespace, kind and timestamp from the envelope where the payload omits them.
func DecodeEvent(msg *domain.Message) (*domain.UsageEvent, error) {
	var ev domain.UsageEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse usage message %s: %w", msg.ID, err)
	}

	if ev.ID == "" {
		ev.ID = msg.ID
	}
	if ev.Namespace == "" {
		ev.Namespace = msg.Namespace
	}
	if ev.Kind == "" {
		kind, ok := topicKinds[msg.Topic]
		if !ok {
			return nil, fmt.Errorf("unknown usage topic %q", msg.Topic)
		}
		ev.Kind = kind
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Unix(0, msg.Timestamp).UTC()
	}
	return &ev, nil
}

// Stop unsubscribes from every topic.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil
	metrics.WorkerSubscriptions.Set(0)

	slog.Info("usage worker stopped")
	return nil
}

// Stats describes the worker's active subscriptions.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
