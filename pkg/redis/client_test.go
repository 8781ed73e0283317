package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
)

type memoryCommands struct {
	values  map[string]string
	ttls    map[string]time.Duration
	expires int
}

func newMemoryCommands() *memoryCommands {
	return &memoryCommands{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryCommands) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := m.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.values[key] = fmt.Sprint(value)
	if ttl > 0 {
		m.ttls[key] = ttl
	}
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	var n int64
	fmt.Sscan(m.values[key], &n)
	n++
	m.values[key] = fmt.Sprint(n)
	return redis.NewIntResult(n, nil)
}

func (m *memoryCommands) PExpire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expires++
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCommands) PTTL(_ context.Context, key string) *redis.DurationCmd {
	if ttl, ok := m.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *memoryCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.values, k)
		delete(m.ttls, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCommands()
	client := &Client{cmd: mem}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip", 2, time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, allowed)
		require.Equal(t, int64(i+1), count)
	}
	require.Equal(t, 1, mem.expires)
	require.Equal(t, time.Minute, mem.ttls["tl:rate_limit:login:ip"])
}

func TestFixedWindowRepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCommands()
	mem.values["tl:rate_limit:orders"] = "5"
	client := &Client{cmd: mem}

	_, count, err := client.FixedWindowAllow(ctx, "orders", 10, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(6), count)
	require.Equal(t, 1, mem.expires)
}

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMemoryCommands()}

	won, err := client.SetNX(ctx, "k", "v", time.Minute)
	require.NoError(t, err)
	require.True(t, won)
	won, err = client.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	require.False(t, won)

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	require.NoError(t, client.Del(ctx, "k"))
	require.NoError(t, client.Del(ctx))
	_, err = client.Get(ctx, "k")
	require.ErrorIs(t, err, Nil)
}

func TestKeys(t *testing.T) {
	client := &Client{}
	require.Equal(t, "tl:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "tl:idempotency:id", client.IdempotencyKey(" ", "id"))
	require.Equal(t, "tl:rate_limit:scope", client.RateLimitKey("scope"))
	require.Equal(t, "tl:lock:cron", client.LockKey("cron"))
	require.Equal(t, "tl", Key())
}

func TestUnconnectedClient(t *testing.T) {
	var client *Client
	_, err := client.SetNX(context.Background(), "k", "v", time.Second)
	require.ErrorIs(t, err, errNotConnected)
	require.ErrorIs(t, (&Client{}).Ping(context.Background()), errNotConnected)
	require.NoError(t, client.Close())
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	require.Error(t, err)

	opts, err := options(config.RedisConfig{URL: "redis://:secret@cache:6380/2", PoolSize: 20, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 20, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 3})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 3, opts.DB)
}
