package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhura/hura.go/pkg/cache"
)

func newTestCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisWithClient(client), mr
}

func TestFetchPopulatesOnMiss(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	populate := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"search":{}}`), nil
	}

	val, err := c.Fetch(ctx, "k1", time.Hour, populate)
	require.NoError(t, err)
	assert.Equal(t, `{"search":{}}`, string(val))
	assert.Equal(t, 1, calls)

	val, err = c.Fetch(ctx, "k1", time.Hour, populate)
	require.NoError(t, err)
	assert.Equal(t, `{"search":{}}`, string(val))
	assert.Equal(t, 1, calls, "second fetch must hit the cache")
}

func TestFetchRespectsTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	populate := func(context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	_, err := c.Fetch(ctx, "k1", time.Hour, populate)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = c.Fetch(ctx, "k1", time.Hour, populate)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchPopulateErrorPropagates(t *testing.T) {
	c, _ := newTestCache(t)

	boom := errors.New("upstream down")
	_, err := c.Fetch(context.Background(), "k1", time.Hour, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	populate := func(context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	_, err := c.Fetch(ctx, "k1", time.Hour, populate)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "k1"))

	_, err = c.Fetch(ctx, "k1", time.Hour, populate)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNoopAlwaysPopulates(t *testing.T) {
	var c cache.Cache = cache.Noop{}

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
			calls++
			return []byte("v"), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}
