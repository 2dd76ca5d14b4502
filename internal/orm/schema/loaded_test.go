package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
)

func TestRelationLoadedState(t *testing.T) {
	registry := NewRegistry(dialect.MySQL)

	t.Run("single relation with no match stays loaded", func(t *testing.T) {
		meta, err := For[testOrder](registry)
		require.NoError(t, err)
		rel, ok := meta.Relation("user")
		require.True(t, ok)

		order := &testOrder{ID: 1, UserID: 99}
		assert.False(t, rel.Loaded(order))

		rel.Attach(order, nil)
		assert.Nil(t, order.User)
		assert.True(t, rel.Loaded(order))

		order.ResetLoaded()
		assert.False(t, rel.Loaded(order))
	})

	t.Run("untracked entities fall back to the field", func(t *testing.T) {
		meta, err := For[testUser](registry)
		require.NoError(t, err)
		rel, ok := meta.Relation("orders")
		require.True(t, ok)

		user := &testUser{ID: 1}
		assert.False(t, rel.Loaded(user))
		rel.Attach(user, nil)
		assert.NotNil(t, user.Orders)
		assert.True(t, rel.Loaded(user))
	})
}
