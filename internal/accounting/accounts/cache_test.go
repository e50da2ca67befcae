package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCacheRoundTripAndVersioning(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "1010")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Put(ctx, "1010", Entry{Account: cash()}))
	require.NoError(t, cache.Put(ctx, "9999", Entry{Missing: true}))

	entry, ok, err := cache.Get(ctx, "1010")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Cash", entry.Account.Name)
	require.Equal(t, AccountTypeAsset, entry.Account.Type)

	missing, ok, err := cache.Get(ctx, "9999")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, missing.Missing)

	require.True(t, mr.Exists("accounts:code:1010:1"))
	require.Equal(t, time.Minute, mr.TTL("accounts:code:1010:1"))

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, err = cache.Get(ctx, "1010")
	require.NoError(t, err)
	require.False(t, ok, "bumped version hides old keys")
	version, err := mr.Get(cacheVersionKey)
	require.NoError(t, err)
	require.Equal(t, "2", version)
}

func TestResolverOverRedisCache(t *testing.T) {
	_, client := newRedis(t)
	repo := newCountingRepo(cash())
	shared := NewRedisCache(client, time.Minute)

	first := NewResolver(repo, shared)
	second := NewResolver(repo, shared)
	ctx := context.Background()

	_, err := first.Resolve(ctx, "1010")
	require.NoError(t, err)
	_, err = second.Resolve(ctx, "1010")
	require.NoError(t, err)
	require.EqualValues(t, 1, repo.lookups.Load(), "second process reads the shared entry")
}

func TestListenForInvalidationClearsLocalCache(t *testing.T) {
	_, client := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewMemoryCache()
	require.NoError(t, local.Put(ctx, "1010", Entry{Account: cash()}))
	require.NoError(t, ListenForInvalidation(ctx, client, local))

	require.NoError(t, NewRedisCache(client, time.Minute).Invalidate(ctx))
	require.Eventually(t, func() bool { return local.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ListenForInvalidation(ctx, nil, local))
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "1010", Entry{Account: cash()}))
	entry, ok, err := cache.Get(ctx, "1010")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1010", entry.Account.Code)

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, _ = cache.Get(ctx, "1010")
	require.False(t, ok)
}
