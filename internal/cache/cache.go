// Package cache is a small query cache keyed by hierarchical query keys.
//
// Entries go stale after StaleTime or when invalidated by prefix. The
// realtime router invalidates KeyTasks when the server announces a task
// change; readers see Fresh == false and refetch over REST.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultStaleTime is how long an entry is considered fresh.
const DefaultStaleTime = 5 * time.Minute

// Entry is a cached query result.
type Entry struct {
	Value     interface{}
	FetchedAt time.Time
	Fresh     bool
}

type entry struct {
	key         Key
	value       interface{}
	fetchedAt   time.Time
	invalidated bool
}

// Listener is called with the prefix of every invalidation.
type Listener func(prefix Key)

// QueryCache implements router.Invalidator.
type QueryCache struct {
	staleTime time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	entries   map[string]*entry
	listeners []Listener
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *QueryCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) {
		c.now = now
	}
}

// New creates a cache. A non-positive staleTime uses DefaultStaleTime.
func New(staleTime time.Duration, opts ...Option) *QueryCache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	c := &QueryCache{
		staleTime: staleTime,
		logger:    slog.Default(),
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a freshly fetched value.
func (c *QueryCache) Set(key Key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key.String()] = &entry{
		key:       append(Key(nil), key...),
		value:     value,
		fetchedAt: c.now(),
	}
}

// Get returns the entry for key, if any.
func (c *QueryCache) Get(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Value:     e.value,
		FetchedAt: e.fetchedAt,
		Fresh:     !e.invalidated && c.now().Sub(e.fetchedAt) < c.staleTime,
	}, true
}

// Remove drops a single entry.
func (c *QueryCache) Remove(key Key) {
	c.mu.Lock()
	delete(c.entries, key.String())
	c.mu.Unlock()
}

// OnInvalidate registers a listener for invalidations.
func (c *QueryCache) OnInvalidate(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Invalidate marks every entry under prefix stale and notifies listeners.
// It never blocks on listeners; each runs in its own goroutine.
func (c *QueryCache) Invalidate(ctx context.Context, prefix Key) int {
	c.mu.Lock()
	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) && !e.invalidated {
			e.invalidated = true
			n++
		}
	}
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "cache invalidated", "prefix", prefix.String(), "entries", n)

	for _, l := range listeners {
		go l(prefix)
	}
	return n
}
