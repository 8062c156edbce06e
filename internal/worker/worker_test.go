package worker

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/tally/internal/bus"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/metrics"
	"github.com/opensource-finance/tally/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestRepo(t *testing.T) *repository.SQLRepository {
	t.Helper()
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: repository.MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// waitForSummary polls until cond holds or a second passes.
func waitForSummary(t *testing.T, repo domain.Repository, namespace string, cond func(*domain.UsageSummary) bool) *domain.UsageSummary {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		summary, err := repo.UsageSummary(context.Background(), namespace)
		if err != nil {
			t.Fatalf("UsageSummary failed: %v", err)
		}
		if cond(summary) {
			return summary
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for usage, last summary %+v", summary)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return m.Gauge.GetValue()
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, newTestRepo(t))

		if err := w.Start(Config{Namespaces: []string{"public"}}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != len(topicKinds) {
			t.Errorf("expected %d subscriptions, got %d", len(topicKinds), stats.SubscriptionCount)
		}
		if got := gaugeValue(t, metrics.WorkerSubscriptions); got != float64(len(topicKinds)) {
			t.Errorf("expected subscription gauge %d, got %v", len(topicKinds), got)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		if stats := w.GetStats(); stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
		if got := gaugeValue(t, metrics.WorkerSubscriptions); got != 0 {
			t.Errorf("expected subscription gauge 0 after stop, got %v", got)
		}
	})

	t.Run("RecordsUsage", func(t *testing.T) {
		repo := newTestRepo(t)
		w := NewWorker(eventBus, repo)
		if err := w.Start(Config{Namespaces: []string{"acme"}}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		ctx := context.Background()
		estimate, _ := EncodeEvent(&domain.UsageEvent{HoursSaved: 1080, MoneySaved: 48077, ActivePlayers: 50000})
		edit, _ := EncodeEvent(&domain.UsageEvent{MoneySaved: 50000})
		share, _ := EncodeEvent(&domain.UsageEvent{ScenarioID: "sc-1"})

		eventBus.Publish(ctx, "acme", domain.TopicEstimateComputed, estimate)
		eventBus.Publish(ctx, "acme", domain.TopicParameterEdited, edit)
		eventBus.Publish(ctx, "acme", domain.TopicScenarioShared, share)

		summary := waitForSummary(t, repo, "acme", func(s *domain.UsageSummary) bool {
			return s.Estimates == 1 && s.Edits == 1 && s.Shares == 1
		})
		if summary.MaxMoneySaved != 48077 {
			t.Errorf("expected max money saved 48077, got %v", summary.MaxMoneySaved)
		}
		if summary.LastActivity == nil {
			t.Error("expected last activity to be set")
		}
	})

	t.Run("IgnoresOtherNamespaces", func(t *testing.T) {
		repo := newTestRepo(t)
		w := NewWorker(eventBus, repo)
		w.Start(Config{Namespaces: []string{"acme"}})
		defer w.Stop()

		ctx := context.Background()
		payload, _ := EncodeEvent(&domain.UsageEvent{MoneySaved: 1})
		eventBus.Publish(ctx, "globex", domain.TopicEstimateComputed, payload)
		time.Sleep(50 * time.Millisecond)

		summary, err := repo.UsageSummary(ctx, "globex")
		if err != nil {
			t.Fatalf("UsageSummary failed: %v", err)
		}
		if summary.Estimates != 0 {
			t.Errorf("expected no usage for unsubscribed namespace, got %d", summary.Estimates)
		}
	})

	t.Run("EveryNamespaceByDefault", func(t *testing.T) {
		repo := newTestRepo(t)
		w := NewWorker(eventBus, repo)
		if err := w.Start(Config{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		if stats := w.GetStats(); stats.SubscriptionCount != len(topicKinds) {
			t.Errorf("expected one subscription per topic, got %d", stats.SubscriptionCount)
		}

		ctx := context.Background()
		payload, _ := EncodeEvent(&domain.UsageEvent{MoneySaved: 619})
		for _, ns := range []string{"initech", "umbrella"} {
			if err := eventBus.Publish(ctx, ns, domain.TopicEstimateComputed, payload); err != nil {
				t.Fatalf("publish to %s failed: %v", ns, err)
			}
		}

		for _, ns := range []string{"initech", "umbrella"} {
			waitForSummary(t, repo, ns, func(s *domain.UsageSummary) bool {
				return s.Estimates == 1 && s.MaxMoneySaved == 619
			})
		}
	})

	t.Run("WildcardSubsumesNamedNamespaces", func(t *testing.T) {
		w := NewWorker(eventBus, newTestRepo(t))
		w.Start(Config{Namespaces: []string{"acme", domain.AllNamespaces}})
		defer w.Stop()

		if stats := w.GetStats(); stats.SubscriptionCount != len(topicKinds) {
			t.Errorf("expected %d subscriptions, got %d", len(topicKinds), stats.SubscriptionCount)
		}
	})

	t.Run("MultiNamespace", func(t *testing.T) {
		w := NewWorker(eventBus, newTestRepo(t))
		w.Start(Config{Namespaces: []string{"acme", "globex"}})
		defer w.Stop()

		if stats := w.GetStats(); stats.SubscriptionCount != 2*len(topicKinds) {
			t.Errorf("expected %d subscriptions, got %d", 2*len(topicKinds), stats.SubscriptionCount)
		}
	})
}

func TestStartFailsOnClosedBus(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	eventBus.Close()

	w := NewWorker(eventBus, nil)
	if err := w.Start(Config{Namespaces: []string{"public"}}); err == nil {
		t.Error("expected error when no namespace can subscribe")
	}
}

func TestDecodeEvent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("FillsFromEnvelope", func(t *testing.T) {
		payload, _ := EncodeEvent(&domain.UsageEvent{MoneySaved: 48077})
		ev, err := DecodeEvent(&domain.Message{
			ID:        "msg-1",
			Namespace: "acme",
			Topic:     domain.TopicParameterEdited,
			Payload:   payload,
			Timestamp: ts.UnixNano(),
		})
		if err != nil {
			t.Fatalf("DecodeEvent failed: %v", err)
		}
		if ev.ID != "msg-1" || ev.Namespace != "acme" || ev.Kind != domain.UsageEdit {
			t.Errorf("envelope fields not applied: %+v", ev)
		}
		if !ev.CreatedAt.Equal(ts) {
			t.Errorf("expected created at %v, got %v", ts, ev.CreatedAt)
		}
		if ev.MoneySaved != 48077 {
			t.Errorf("expected money saved 48077, got %v", ev.MoneySaved)
		}
	})

	t.Run("PayloadWins", func(t *testing.T) {
		payload, _ := EncodeEvent(&domain.UsageEvent{ID: "ev-1", Kind: domain.UsageShare, CreatedAt: ts})
		ev, err := DecodeEvent(&domain.Message{ID: "msg-2", Namespace: "acme", Topic: domain.TopicEstimateComputed, Payload: payload})
		if err != nil {
			t.Fatalf("DecodeEvent failed: %v", err)
		}
		if ev.ID != "ev-1" || ev.Kind != domain.UsageShare {
			t.Errorf("payload fields overwritten: %+v", ev)
		}
	})

	t.Run("UnknownTopic", func(t *testing.T) {
		payload, _ := EncodeEvent(&domain.UsageEvent{})
		if _, err := DecodeEvent(&domain.Message{ID: "m", Topic: "other", Payload: payload}); err == nil {
			t.Error("expected error for unknown topic")
		}
	})

	t.Run("BadPayload", func(t *testing.T) {
		if _, err := DecodeEvent(&domain.Message{ID: "m", Topic: domain.TopicEstimateComputed, Payload: []byte("{")}); err == nil {
			t.Error("expected error for malformed payload")
		}
	})
}
