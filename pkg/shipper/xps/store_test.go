package xps_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/xpsrate/pkg/shipper/xps"
)

func TestMemoryStore(t *testing.T) {
	store := xps.NewMemoryStore(time.Minute)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "xps:catalog:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "xps:catalog:1", xps.DefaultMockServices()))

	entries, ok, err := store.Load(ctx, "xps:catalog:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, xps.DefaultMockServices(), entries)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*xps.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return xps.NewRedisStore(client, ttl), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "xps:catalog:12345")
	require.NoError(t, err)
	assert.False(t, ok, "missing key is a miss, not an error")

	require.NoError(t, store.Save(ctx, "xps:catalog:12345", xps.DefaultMockServices()))
	assert.Equal(t, time.Hour, mr.TTL("xps:catalog:12345"))

	entries, ok, err := store.Load(ctx, "xps:catalog:12345")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, xps.DefaultMockServices(), entries)
}

func TestRedisStore_PreservesNullCountryLists(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	in := []xps.ServiceEntry{
		{ServiceCode: "usps_priority", ServiceLabel: "Priority"},
		{ServiceCode: "usps_ground", ServiceLabel: "Ground", UnsupportedCountries: []string{}},
	}
	require.NoError(t, store.Save(ctx, "k", in))

	out, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, out[0].UnsupportedCountries)
	assert.NotNil(t, out[1].UnsupportedCountries)
	assert.Empty(t, out[1].UnsupportedCountries)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", xps.DefaultMockServices()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	require.NoError(t, mr.Set("k", "not json"))

	_, ok, err := store.Load(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}
