package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		c := NewMemory()
		val, ok, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("set then get", func(t *testing.T) {
		c := NewMemory()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		val, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("stored value is isolated from caller", func(t *testing.T) {
		c := NewMemory()
		buf := []byte("abc")
		require.NoError(t, c.Set(ctx, "k", buf, 0))
		buf[0] = 'x'
		val, _, _ := c.Get(ctx, "k")
		assert.Equal(t, []byte("abc"), val)
	})

	t.Run("entries expire", func(t *testing.T) {
		c := NewMemory()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
		_, ok, _ := c.Get(ctx, "k")
		assert.True(t, ok)

		now = now.Add(time.Minute)
		_, ok, _ = c.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("writes sweep expired entries", func(t *testing.T) {
		c := NewMemory()
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		for i := 0; i < 10000; i++ {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("kpi:rev-1:%d", i), []byte("v"), time.Minute))
		}
		require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
		assert.Equal(t, 10001, c.Len())

		now = now.Add(time.Hour)
		require.NoError(t, c.Set(ctx, "kpi:rev-2:0", []byte("v"), time.Minute))

		assert.Equal(t, 2, c.Len())
		_, ok, _ := c.Get(ctx, "forever")
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		c := NewMemory()
		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Delete(ctx, "a", "b"))
		_, ok, _ := c.Get(ctx, "a")
		assert.False(t, ok)
	})
}

func TestNew_SelectsBackend(t *testing.T) {
	_, isMemory := New(Settings{}).(*MemoryCache)
	assert.True(t, isMemory)

	rc, isRedis := New(Settings{Addr: "127.0.0.1:6379"}).(*RedisCache)
	require.True(t, isRedis)
	defer rc.Close()
	assert.Equal(t, "promo:kpi:abc", rc.key("kpi:abc"))
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	rc := NewRedis(Settings{Addr: "127.0.0.1:1", Prefix: "test"})
	defer rc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, ok, err := rc.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, rc.Delete(ctx))
}
