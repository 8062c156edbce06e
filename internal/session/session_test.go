package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/tally/internal/cache"
	"github.com/opensource-finance/tally/internal/domain"
)

func TestStore(t *testing.T) {
	store := NewStore(cache.NewLRUCache(10), time.Minute)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		p := domain.DefaultParameters()
		p.ActivePlayers = 42

		sess, err := store.Create(ctx, "acme", p)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if sess.ID == "" {
			t.Fatal("expected session ID")
		}

		got, err := store.Get(ctx, "acme", sess.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Parameters != p {
			t.Errorf("parameters mismatch: %+v", got.Parameters)
		}
	})

	t.Run("NamespaceIsolation", func(t *testing.T) {
		sess, _ := store.Create(ctx, "acme", domain.DefaultParameters())

		if _, err := store.Get(ctx, "globex", sess.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound across namespaces, got %v", err)
		}
	})

	t.Run("SaveUpdates", func(t *testing.T) {
		sess, _ := store.Create(ctx, "acme", domain.DefaultParameters())
		sess.Parameters.AvgEDDReviews = 9
		sess.Edits++

		if err := store.Save(ctx, "acme", sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, _ := store.Get(ctx, "acme", sess.ID)
		if got.Parameters.AvgEDDReviews != 9 || got.Edits != 1 {
			t.Errorf("update not persisted: %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		sess, _ := store.Create(ctx, "acme", domain.DefaultParameters())
		if err := store.Delete(ctx, "acme", sess.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Get(ctx, "acme", sess.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewStore(cache.NewLRUCache(10), 10*time.Millisecond)
		sess, _ := short.Create(ctx, "acme", domain.DefaultParameters())

		time.Sleep(20 * time.Millisecond)

		if _, err := short.Get(ctx, "acme", sess.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after expiry, got %v", err)
		}
	})
}
