// Package cache stores calculator sessions, resolved short links and share
// rate-limit windows, scoped by namespace.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNamespaceRequired is returned when a call names no namespace.
var ErrNamespaceRequired = errors.New("cache: namespace is required")

// LRUCache keeps entries in process memory, evicting the least recently
// used once maxSize is reached. Expired entries are dropped lazily on read.
// It backs the community tier and is the near tier of a LayeredCache.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	recency *list.List // front is most recently used
	windows map[string]*window
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// window is one fixed rate-limit window.
type window struct {
	hits    int64
	closeAt time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries and, separately,
// at most maxSize counter windows.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		recency: list.New(),
		windows: make(map[string]*window),
	}
}

// Get returns nil, nil for a missing or expired key.
func (c *LRUCache) Get(ctx context.Context, namespace string, key string) ([]byte, error) {
	k, err := scopedKey(namespace, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[k]
	if !ok {
		return nil, nil
	}
	e := elem.Value.(*entry)
	if !time.Now().Before(e.expiresAt) {
		c.evict(elem)
		return nil, nil
	}
	c.recency.MoveToFront(elem)
	return e.value, nil
}

// Set stores value until ttl elapses. Overwriting refreshes the expiry.
func (c *LRUCache) Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error {
	k, err := scopedKey(namespace, key)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[k]; ok {
		e := elem.Value.(*entry)
		e.value, e.expiresAt = value, expiresAt
		c.recency.MoveToFront(elem)
		return nil
	}

	c.items[k] = c.recency.PushFront(&entry{key: k, value: value, expiresAt: expiresAt})
	for c.recency.Len() > c.maxSize {
		c.evict(c.recency.Back())
	}
	return nil
}

// Delete is a no-op for a missing key.
func (c *LRUCache) Delete(ctx context.Context, namespace string, key string) error {
	k, err := scopedKey(namespace, key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[k]; ok {
		c.evict(elem)
	}
	return nil
}

// IncrementCounter counts a hit in the window that started with the first
// hit on key. A new window opens once the previous one has closed.
func (c *LRUCache) IncrementCounter(ctx context.Context, namespace string, key string, span time.Duration) (int64, error) {
	k, err := scopedKey(namespace, key)
	if err != nil {
		return 0, err
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.windows[k]; ok && now.Before(w.closeAt) {
		w.hits++
		return w.hits, nil
	}

	if len(c.windows) >= c.maxSize {
		for wk, w := range c.windows {
			if !now.Before(w.closeAt) {
				delete(c.windows, wk)
			}
		}
	}
	c.windows[k] = &window{hits: 1, closeAt: now.Add(span)}
	return 1, nil
}

// Ping always succeeds.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close empties the cache. It stays usable afterwards.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.recency = list.New()
	c.windows = make(map[string]*window)
	return nil
}

// Stats reports the number of live entries and the capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len(), c.maxSize
}

// evict removes elem. Caller holds c.mu.
func (c *LRUCache) evict(elem *list.Element) {
	if elem == nil {
		return
	}
	c.recency.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

func scopedKey(namespace, key string) (string, error) {
	if namespace == "" {
		return "", ErrNamespaceRequired
	}
	return namespace + ":" + key, nil
}
