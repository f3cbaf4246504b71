package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, New(rdb)
}

func TestAsideFetchesOnceThenHits(t *testing.T) {
	mr, store := newStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "design", Count: 3}
			return nil
		}
	}

	var first payload
	require.NoError(t, store.Aside(ctx, "test", "k", &first, time.Minute, fetch(&first)))
	assert.Equal(t, payload{Name: "design", Count: 3}, first)
	assert.True(t, mr.Exists("k"))

	var second payload
	require.NoError(t, store.Aside(ctx, "test", "k", &second, time.Minute, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestAsidePropagatesFetchError(t *testing.T) {
	mr, store := newStore(t)

	var dest payload
	err := store.Aside(context.Background(), "test", "k", &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("k"))
}

func TestAsideFallsBackWhenRedisFails(t *testing.T) {
	mr, store := newStore(t)
	mr.Close()

	var dest payload
	err := store.Aside(context.Background(), "test", "k", &dest, time.Minute, func() error {
		dest.Name = "fresh"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", dest.Name)
}

func TestInvalidateSoftware(t *testing.T) {
	mr, store := newStore(t)
	ctx := context.Background()

	for _, k := range []string{SoftwareListKey, CategoryListKey, StatsKey, SoftwareKey("abc"), SoftwareKey("other")} {
		require.NoError(t, mr.Set(k, "{}"))
	}

	store.InvalidateSoftware(ctx, "abc")

	assert.False(t, mr.Exists(SoftwareListKey))
	assert.False(t, mr.Exists(CategoryListKey))
	assert.False(t, mr.Exists(StatsKey))
	assert.False(t, mr.Exists(SoftwareKey("abc")))
	assert.True(t, mr.Exists(SoftwareKey("other")))
}

func TestNilStoreIsNoop(t *testing.T) {
	store := New(nil)
	ctx := context.Background()

	found, err := store.GetJSON(ctx, "k", &payload{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, store.SetJSON(ctx, "k", payload{}, time.Minute))
	store.InvalidateCategories(ctx)

	var dest payload
	require.NoError(t, store.Aside(ctx, "test", "k", &dest, time.Minute, func() error {
		dest.Count = 1
		return nil
	}))
	assert.Equal(t, 1, dest.Count)
}

func TestInitRedisUnreachable(t *testing.T) {
	assert.Nil(t, InitRedis("redis://%%invalid"))
}

func TestInitRedisConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client := InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Ping(context.Background()).Err())
}
