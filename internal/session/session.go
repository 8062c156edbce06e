// Package session persists calculator state between HTTP requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/tally/internal/domain"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is the server-side copy of one calculator's assumptions.
type Session struct {
	ID         string                 `json:"id"`
	Parameters domain.InputParameters `json:"parameters"`
	Edits      int                    `json:"edits"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Store keeps sessions in the cache with a sliding TTL.
type Store struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewStore creates a session store backed by cache.
func NewStore(cache domain.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{cache: cache, ttl: ttl}
}

// Create starts a session holding p.
func (s *Store) Create(ctx context.Context, namespace string, p domain.InputParameters) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:         uuid.New().String(),
		Parameters: p,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.put(ctx, namespace, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session.
func (s *Store) Get(ctx context.Context, namespace, id string) (*Session, error) {
	data, err := s.cache.Get(ctx, namespace, key(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Save stores sess and extends its lifetime.
func (s *Store) Save(ctx context.Context, namespace string, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	return s.put(ctx, namespace, sess)
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	return s.cache.Delete(ctx, namespace, key(id))
}

func (s *Store) put(ctx context.Context, namespace string, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, namespace, key(sess.ID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func key(id string) string {
	return "session:" + id
}
