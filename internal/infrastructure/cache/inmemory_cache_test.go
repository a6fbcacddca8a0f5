package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	defer c.Close()

	ctx := context.Background()

	t.Run("miss on unknown key", func(t *testing.T) {
		_, err := c.Get(ctx, "series:emp-1")
		assert.ErrorIs(t, err, shared.ErrCacheMiss)
	})

	t.Run("returns stored value", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "series:emp-1", []byte(`["F001"]`), time.Minute))

		got, err := c.Get(ctx, "series:emp-1")
		require.NoError(t, err)
		assert.Equal(t, `["F001"]`, string(got))
	})

	t.Run("stored value is a copy", func(t *testing.T) {
		value := []byte("abc")
		require.NoError(t, c.Set(ctx, "copy", value, 0))
		value[0] = 'z'

		got, err := c.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	defer c.Close()

	current := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("2"), 0))

	current = current.Add(2 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, shared.ErrCacheMiss)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)

	assert.Equal(t, 2, c.Size())
	c.cleanup()
	assert.Equal(t, 1, c.Size())
}

func TestInMemoryCache_DeletePrefix(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "GET /empresas/emp-1/series", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "GET /empresas/emp-1/contadores", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "GET /empresas/emp-2/series", []byte("c"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "GET /empresas/emp-1/"))

	assert.Equal(t, 1, c.Size())
	_, err := c.Get(ctx, "GET /empresas/emp-2/series")
	assert.NoError(t, err)
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache(time.Millisecond)
	defer c.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Set(ctx, "k", []byte("v"), time.Millisecond)
				_, _ = c.Get(ctx, "k")
				_ = c.DeletePrefix(ctx, "k")
			}
		}()
	}
	wg.Wait()
}

func TestInMemoryCache_CloseStopsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewInMemoryCache(0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
