package main

import (
	"context"
	"testing"
	"time"

	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewBlocklist_DisabledWithoutThreshold(t *testing.T) {
	cfg := config{blocklistBackend: "memory", adaptive: infra.DefaultAdaptiveConfig()}
	bl, j := newBlocklist(context.Background(), cfg, nil, zap.NewNop())
	assert.Nil(t, bl)
	assert.Nil(t, j)
}

func TestNewBlocklist_MemoryJanitorIsAwaitable(t *testing.T) {
	cfg := config{
		blockThreshold:   3,
		blocklistBackend: "memory",
		adaptive:         infra.DefaultAdaptiveConfig(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	bl, j := newBlocklist(ctx, cfg, nil, zap.NewNop())
	require.IsType(t, &infra.MemoryBlocklist{}, bl)
	require.NotNil(t, j)

	select {
	case <-j.Done():
		t.Fatal("janitor stopped before shutdown")
	default:
	}

	cancel()
	waitCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	assert.NoError(t, j.Wait(waitCtx))
}

func TestNewBlocklist_RedisHasNoJanitor(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config{blockThreshold: 3, blocklistBackend: "redis"}
	bl, j := newBlocklist(context.Background(), cfg, rdb, zap.NewNop())
	require.IsType(t, &infra.RedisBlocklist{}, bl)
	assert.Nil(t, j)
}
