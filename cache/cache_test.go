package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/tennisapi/cache"
	"github.com/padraicbc/tennisapi/testhelpers"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s cache.Store) {
	ctx := context.Background()

	_, found, err := s.Get(ctx, "players")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "players", []byte(`{"status":"ok"}`), time.Minute))
	got, found, err := s.Get(ctx, "players")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"status":"ok"}`, string(got))

	require.NoError(t, s.Set(ctx, "players", []byte(`{"status":"ok","data":[]}`), time.Minute))
	got, _, err = s.Get(ctx, "players")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok","data":[]}`, string(got))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("match/%d/odds", i), []byte("x"), time.Minute))
	}
	require.NoError(t, s.Purge(ctx))
	for _, key := range []string{"players", "match/0/odds", "match/2/odds"} {
		_, found, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, cache.NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := cache.NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s, err := cache.NewRedisStore(ctx, testhelpers.RedisURL(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Client.Set(ctx, "unrelated", "keep", 0).Err())
	t.Cleanup(func() { s.Client.Del(ctx, "unrelated") })

	exerciseStore(t, s)

	// Purge only touches the API's own keys.
	v, err := s.Client.Get(ctx, "unrelated").Result()
	require.NoError(t, err)
	assert.Equal(t, "keep", v)
}

func TestRedisStore_PurgesManyKeys(t *testing.T) {
	ctx := context.Background()
	s, err := cache.NewRedisStore(ctx, testhelpers.RedisURL(t))
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 1200; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("player/%d/matches", i), []byte("x"), time.Minute))
	}
	require.NoError(t, s.Purge(ctx))

	keys, err := s.Client.Keys(ctx, cache.KeyPrefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := cache.NewRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
