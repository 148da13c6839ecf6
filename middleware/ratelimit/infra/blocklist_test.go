package infra

import (
	"context"
	"testing"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemoryBlocklist_ExpiresAfterDuration(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	b := NewMemoryBlocklist(WithClock(clock))

	require.NoError(t, b.Block(ctx, "F", time.Minute))

	clock.Advance(20 * time.Second)
	remaining, blocked, err := b.Blocked(ctx, "F")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 40*time.Second, remaining)

	_, blocked, _ = b.Blocked(ctx, "other")
	assert.False(t, blocked)

	clock.Advance(40 * time.Second)
	_, blocked, _ = b.Blocked(ctx, "F")
	assert.False(t, blocked)
}

func TestMemoryBlocklist_ZeroDurationUnblocks(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlocklist(WithClock(clockwork.NewFakeClock()))
	require.NoError(t, b.Block(ctx, "F", time.Minute))
	require.NoError(t, b.Block(ctx, "F", 0))
	_, blocked, _ := b.Blocked(ctx, "F")
	assert.False(t, blocked)
}

func TestMemoryBlocklist_Cleanup(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	b := NewMemoryBlocklist(WithClock(clock))
	_ = b.Block(ctx, "a", time.Second)
	_ = b.Block(ctx, "b", time.Hour)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, b.Cleanup())
}

func TestMemoryBlocklist_JanitorSweepsAndLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	clock := clockwork.NewFakeClock()
	b := NewMemoryBlocklist(WithClock(clock), WithLogger(zap.New(core)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Block(ctx, "F", time.Second))
	j := b.StartJanitor(ctx, time.Minute)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("rate limit sweep").Len() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.Len())
	assert.EqualValues(t, 1, logs.FilterMessage("rate limit sweep").All()[0].ContextMap()["evicted"])

	cancel()
	require.NoError(t, j.Wait(context.Background()))
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisBlocklist_BlockAndExpire(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	b := NewRedisBlocklist(rdb, "test:block:")

	fp := domain.Identity{Address: "203.0.113.7", Agent: "bot"}.Fingerprint()
	require.NoError(t, b.Block(ctx, fp, 10*time.Minute))
	assert.True(t, mr.Exists("test:block:203.0.113.7|bot"))

	remaining, blocked, err := b.Blocked(ctx, fp)
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, 10*time.Minute, remaining)

	mr.FastForward(11 * time.Minute)
	_, blocked, err = b.Blocked(ctx, fp)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRedisBlocklist_ErrorsSurface(t *testing.T) {
	mr, rdb := newMiniredis(t)
	b := NewRedisBlocklist(rdb, "")
	mr.Close()

	_, _, err := b.Blocked(context.Background(), "F")
	assert.Error(t, err)
}
