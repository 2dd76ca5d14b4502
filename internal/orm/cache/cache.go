// Package cache provides the per-entity-type in-memory cache. Each cached
// type gets its own bounded LRU whose entries also expire after the type's
// TTL, whichever comes first. Types that declare no cache policy are never
// cached.
package cache

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// EntityCache caches the entities of one type keyed by identifier. It is
// safe for concurrent use; concurrent writers of the same key race and the
// last write wins.
type EntityCache struct {
	name   string
	policy schema.CachePolicy
	lru    *expirable.LRU[string, schema.Model]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache for the named type. A nil policy is a configuration
// error: types without a policy have opted out of caching and must never
// get a cache instance.
func New(name string, policy *schema.CachePolicy) (*EntityCache, error) {
	if policy == nil {
		return nil, ormerrors.Configuration(name, "no cache policy declared")
	}
	if policy.MaxSize <= 0 {
		return nil, ormerrors.Configuration(name, "cache policy needs a positive max size")
	}

	c := &EntityCache{name: name, policy: *policy}
	c.lru = expirable.NewLRU[string, schema.Model](policy.MaxSize, func(string, schema.Model) {
		c.evictions.Add(1)
	}, policy.TTL)
	return c, nil
}

// Get returns the cached entity for id
func (c *EntityCache) Get(id any) (schema.Model, bool) {
	key, ok := schema.Key(id)
	if !ok {
		return nil, false
	}
	e, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e, ok
}

// Put stores e under id, replacing any previous entry
func (c *EntityCache) Put(id any, e schema.Model) {
	key, ok := schema.Key(id)
	if !ok || e == nil {
		return
	}
	c.lru.Add(key, e)
}

// Invalidate removes the entry for id
func (c *EntityCache) Invalidate(id any) {
	if key, ok := schema.Key(id); ok {
		c.lru.Remove(key)
	}
}

// Clear removes every entry
func (c *EntityCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of live entries
func (c *EntityCache) Len() int {
	return c.lru.Len()
}

// Stats describes one entity cache
type Stats struct {
	Entity    string `json:"entity"`
	Size      int    `json:"size"`
	MaxSize   int    `json:"max_size"`
	TTL       string `json:"ttl"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Evictions int64  `json:"evictions"` // entries dropped by capacity, expiry or invalidation
}

// Stats returns a snapshot of the cache counters
func (c *EntityCache) Stats() Stats {
	return Stats{
		Entity:    c.name,
		Size:      c.lru.Len(),
		MaxSize:   c.policy.MaxSize,
		TTL:       c.policy.TTL.String(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Manager owns the entity caches of every cached type. Caches are created
// lazily on first use from the type's declared policy.
type Manager struct {
	caches   sync.Map // *schema.Metadata -> *EntityCache
	mu       sync.Mutex
	disabled bool
	logger   *zap.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for cache tracing
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Disabled turns every cache operation into a miss or no-op
func Disabled() Option {
	return func(m *Manager) {
		m.disabled = true
	}
}

// NewManager creates an empty cache manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CacheFor returns the cache of a type, creating it on first use. It fails
// with a configuration error for types that declare no cache policy.
func (m *Manager) CacheFor(meta *schema.Metadata) (*EntityCache, error) {
	if c, ok := m.caches.Load(meta); ok {
		return c.(*EntityCache), nil
	}
	if meta.Cache == nil {
		return nil, ormerrors.Configuration(meta.Name, "type is not cached")
	}

	// Creation is serialized so a type never ends up with two LRUs, each
	// owning an expiry goroutine.
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.caches.Load(meta); ok {
		return c.(*EntityCache), nil
	}

	c, err := New(meta.Name, meta.Cache)
	if err != nil {
		return nil, err
	}
	m.caches.Store(meta, c)
	m.logger.Debug("entity cache created",
		zap.String("entity", meta.Name),
		zap.Int("max_size", meta.Cache.MaxSize),
		zap.Duration("ttl", meta.Cache.TTL))
	return c, nil
}

// cacheFor returns the cache of a cached type, or nil for opted-out types
func (m *Manager) cacheFor(meta *schema.Metadata) *EntityCache {
	if m.disabled || meta.Cache == nil {
		return nil
	}
	c, err := m.CacheFor(meta)
	if err != nil {
		m.logger.Warn("entity cache unavailable", zap.String("entity", meta.Name), zap.Error(err))
		return nil
	}
	return c
}

// Get returns the cached entity of the type for id. Types that opted out
// always miss.
func (m *Manager) Get(meta *schema.Metadata, id any) (schema.Model, bool) {
	c := m.cacheFor(meta)
	if c == nil {
		return nil, false
	}
	e, ok := c.Get(id)
	if ok {
		m.logger.Debug("cache hit", zap.String("entity", meta.Name), zap.Any("id", id))
	} else {
		m.logger.Debug("cache miss", zap.String("entity", meta.Name), zap.Any("id", id))
	}
	return e, ok
}

// Put caches e under id. It is a no-op for types that opted out.
func (m *Manager) Put(meta *schema.Metadata, id any, e schema.Model) {
	if c := m.cacheFor(meta); c != nil {
		c.Put(id, e)
	}
}

// Invalidate removes the entry for id. It is a no-op for types that opted out.
func (m *Manager) Invalidate(meta *schema.Metadata, id any) {
	if c, ok := m.caches.Load(meta); ok {
		c.(*EntityCache).Invalidate(id)
	}
}

// InvalidateAll removes every entry of the type
func (m *Manager) InvalidateAll(meta *schema.Metadata) {
	if c, ok := m.caches.Load(meta); ok {
		c.(*EntityCache).Clear()
	}
}

// ClearAll removes every entry of every type
func (m *Manager) ClearAll() {
	m.caches.Range(func(_, c any) bool {
		c.(*EntityCache).Clear()
		return true
	})
}

// Stats returns the counters of every created cache, sorted by entity name
func (m *Manager) Stats() []Stats {
	var stats []Stats
	m.caches.Range(func(_, c any) bool {
		stats = append(stats, c.(*EntityCache).Stats())
		return true
	})
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Entity < stats[j].Entity
	})
	return stats
}
