package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice/backend/internal/domain/integration"
)

func TestInMemoryWatermarkCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss on empty cache", func(t *testing.T) {
		c := NewInMemoryWatermarkCache(time.Minute)
		_, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		c := NewInMemoryWatermarkCache(time.Minute)
		ids := map[integration.EntityType]int64{
			integration.EntityProducts: 110,
			integration.EntityOrders:   500,
		}
		require.NoError(t, c.Set(ctx, 1, ids))

		got, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, ids, got)
	})

	t.Run("returned map is a copy", func(t *testing.T) {
		c := NewInMemoryWatermarkCache(time.Minute)
		require.NoError(t, c.Set(ctx, 1, map[integration.EntityType]int64{integration.EntityProducts: 1}))

		got, _, err := c.Get(ctx, 1)
		require.NoError(t, err)
		got[integration.EntityProducts] = 999

		again, _, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), again[integration.EntityProducts])
	})

	t.Run("entries expire", func(t *testing.T) {
		c := NewInMemoryWatermarkCache(time.Minute)
		now := time.Now()
		c.now = func() time.Time { return now }
		require.NoError(t, c.Set(ctx, 1, map[integration.EntityType]int64{integration.EntityProducts: 1}))

		c.now = func() time.Time { return now.Add(2 * time.Minute) }
		_, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		c := NewInMemoryWatermarkCache(time.Minute)
		require.NoError(t, c.Set(ctx, 1, map[integration.EntityType]int64{integration.EntityProducts: 1}))
		require.NoError(t, c.Invalidate(ctx, 1))

		_, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
