package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

type area struct {
	ID   int
	Name string
}

func (a *area) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:  "Area",
		Table: "areas",
		Fields: []schema.Field{
			schema.Column("ID", "id", func(a *area) *int { return &a.ID }).Primary(),
			schema.Column("Name", "name", func(a *area) *string { return &a.Name }),
		},
		Cache: &schema.CachePolicy{MaxSize: 2, TTL: time.Hour},
	}
}

type monster struct {
	ID int
}

func (m *monster) Declare() *schema.Declaration {
	return &schema.Declaration{
		Name:   "Monster",
		Table:  "monsters",
		Fields: []schema.Field{schema.Column("ID", "id", func(m *monster) *int { return &m.ID }).Primary()},
	}
}

func metadata(t *testing.T) (*schema.Metadata, *schema.Metadata) {
	t.Helper()
	registry := schema.NewRegistry(dialect.MySQL)
	areas, err := schema.For[area](registry)
	require.NoError(t, err)
	monsters, err := schema.For[monster](registry)
	require.NoError(t, err)
	return areas, monsters
}

func TestManager(t *testing.T) {
	t.Run("put get invalidate", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager()

		_, ok := m.Get(areas, 1)
		assert.False(t, ok)

		a := &area{ID: 1, Name: "Battleon"}
		m.Put(areas, 1, a)

		got, ok := m.Get(areas, int64(1))
		require.True(t, ok)
		assert.Same(t, a, got)

		m.Invalidate(areas, "1")
		_, ok = m.Get(areas, 1)
		assert.False(t, ok)
	})

	t.Run("replaces on put", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager()

		m.Put(areas, 1, &area{ID: 1, Name: "old"})
		fresh := &area{ID: 1, Name: "new"}
		m.Put(areas, 1, fresh)

		got, ok := m.Get(areas, 1)
		require.True(t, ok)
		assert.Same(t, fresh, got)
	})

	t.Run("opted out types never cache", func(t *testing.T) {
		_, monsters := metadata(t)
		m := NewManager()

		m.Put(monsters, 1, &monster{ID: 1})
		_, ok := m.Get(monsters, 1)
		assert.False(t, ok)
		m.Invalidate(monsters, 1)
		assert.Empty(t, m.Stats())

		_, err := m.CacheFor(monsters)
		require.Error(t, err)
		assert.True(t, ormerrors.IsConfiguration(err))
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager()

		m.Put(areas, 1, &area{ID: 1})
		m.Put(areas, 2, &area{ID: 2})
		_, _ = m.Get(areas, 1)
		m.Put(areas, 3, &area{ID: 3})

		_, ok := m.Get(areas, 2)
		assert.False(t, ok, "least recently used entry should be evicted")
		_, ok = m.Get(areas, 1)
		assert.True(t, ok)
		_, ok = m.Get(areas, 3)
		assert.True(t, ok)
	})

	t.Run("clear all", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager()

		m.Put(areas, 1, &area{ID: 1})
		m.Put(areas, 2, &area{ID: 2})
		m.ClearAll()

		_, ok := m.Get(areas, 1)
		assert.False(t, ok)

		m.Put(areas, 1, &area{ID: 1})
		m.InvalidateAll(areas)
		_, ok = m.Get(areas, 1)
		assert.False(t, ok)
	})

	t.Run("disabled", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager(Disabled())

		m.Put(areas, 1, &area{ID: 1})
		_, ok := m.Get(areas, 1)
		assert.False(t, ok)
	})

	t.Run("one cache per type", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager()

		var wg sync.WaitGroup
		caches := make([]*EntityCache, 32)
		for i := range caches {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c, err := m.CacheFor(areas)
				assert.NoError(t, err)
				caches[i] = c
			}(i)
		}
		wg.Wait()

		for _, c := range caches {
			assert.Same(t, caches[0], c)
		}
	})

	t.Run("stats", func(t *testing.T) {
		areas, _ := metadata(t)
		m := NewManager()

		m.Put(areas, 1, &area{ID: 1})
		m.Get(areas, 1)
		m.Get(areas, 2)

		stats := m.Stats()
		require.Len(t, stats, 1)
		assert.Equal(t, "Area", stats[0].Entity)
		assert.Equal(t, 1, stats[0].Size)
		assert.Equal(t, 2, stats[0].MaxSize)
		assert.Equal(t, int64(1), stats[0].Hits)
		assert.Equal(t, int64(1), stats[0].Misses)
	})
}

func TestEntityCacheExpiry(t *testing.T) {
	c, err := New("Area", &schema.CachePolicy{MaxSize: 10, TTL: 50 * time.Millisecond})
	require.NoError(t, err)

	c.Put(1, &area{ID: 1})
	_, ok := c.Get(1)
	require.True(t, ok)

	time.Sleep(150 * time.Millisecond)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestNewRequiresPolicy(t *testing.T) {
	_, err := New("Monster", nil)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = New("Monster", &schema.CachePolicy{})
	assert.Error(t, err)
}

func TestEntityCacheConcurrentAccess(t *testing.T) {
	c, err := New("Area", &schema.CachePolicy{MaxSize: 64, TTL: time.Minute})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := (w*200 + i) % 100
				c.Put(id, &area{ID: id, Name: fmt.Sprint(w)})
				c.Get(id)
				if i%10 == 0 {
					c.Invalidate(id)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
