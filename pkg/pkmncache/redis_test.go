package pkmncache

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	rdb, err := DialRedis(ctx, opts.Addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisGetSet(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	c := NewRedis(rdb, "pkmn:", time.Minute, nil)

	_, ok := c.Get(ctx, "pokemon/1/")
	require.False(t, ok)

	c.Set(ctx, "pokemon/1/", []byte(`{"name":"Bulbasaur"}`))
	got, ok := c.Get(ctx, "pokemon/1/")
	require.True(t, ok)
	require.JSONEq(t, `{"name":"Bulbasaur"}`, string(got))

	ttl, err := rdb.TTL(ctx, "pkmn:pokemon/1/").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestRedisErrorsAreMisses(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedis(rdb, "pkmn:", 0, nil)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	require.False(t, ok)
}

func TestDialRedisFailsFast(t *testing.T) {
	_, err := DialRedis(context.Background(), "127.0.0.1:1", "", 0)
	require.Error(t, err)
}
