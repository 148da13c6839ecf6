package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"
	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "UPSTREAM_URL", "RATE_ENABLED", "RATE_ALGORITHM", "RATE_WINDOW",
		"RATE_MAX_REQUESTS", "RATE_BURST", "RATE_PENALTY_DECAY", "RATE_FLOOR",
		"RATE_CLEANUP_INTERVAL", "RATE_EVICT_AFTER_WINDOWS", "RATE_BUCKET_RPS",
		"BLOCK_THRESHOLD", "BLOCK_DURATION", "BLOCKLIST_BACKEND", "REDIS_ADDR",
		"RATE_STATS_ENABLED", "CONCURRENCY_MAX", "LOG_LEVEL", "LOG_FORMAT",
		"RATE_KEY_HEADER", "ADMIN_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_URL", "http://storefront:3000")

	e, err := newEnv("", false)
	require.NoError(t, err)
	cfg, err := readConfig(e)
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, ":8080", cfg.listenAddr)
	assert.True(t, cfg.rateEnabled)
	assert.Equal(t, infra.AlgorithmAdaptive, cfg.rateAlgorithm)
	assert.Equal(t, infra.DefaultAdaptiveConfig(), cfg.adaptive)
	assert.Equal(t, "memory", cfg.blocklistBackend)
	assert.Equal(t, 100, cfg.concurrencyMax)
	assert.False(t, cfg.needsRedis())
}

func TestReadConfig_EnvFileIsFallback(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "UPSTREAM_URL=http://from-file:3000\nRATE_MAX_REQUESTS=50\nRATE_WINDOW=30s\n")
	t.Setenv("RATE_MAX_REQUESTS", "80")

	e, err := newEnv(path, true)
	require.NoError(t, err)
	cfg, err := readConfig(e)
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:3000", cfg.upstreamURL)
	assert.Equal(t, 80, cfg.adaptive.BaseMaxRequests, "process env wins over .env")
	assert.Equal(t, 30*time.Second, cfg.adaptive.Window)
}

func TestNewEnv_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")

	_, err := newEnv(missing, false)
	assert.NoError(t, err, "default .env is optional")

	_, err = newEnv(missing, true)
	assert.Error(t, err, "explicit --env-file must exist")
}

func TestReadConfig_InvalidNumbersAreErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_URL", "http://storefront:3000")
	t.Setenv("RATE_MAX_REQUESTS", "lots")
	t.Setenv("RATE_WINDOW", "1 minute")

	e, _ := newEnv("", false)
	_, err := readConfig(e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_MAX_REQUESTS")
	assert.Contains(t, err.Error(), "RATE_WINDOW")
}

func TestReadConfig_ZeroBurstAndFloorAreKept(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_URL", "http://storefront:3000")
	t.Setenv("RATE_BURST", "0")
	t.Setenv("RATE_FLOOR", "5")

	e, _ := newEnv("", false)
	cfg, err := readConfig(e)
	require.NoError(t, err)
	require.NoError(t, cfg.validate())
	assert.Equal(t, 0, cfg.adaptive.BurstAllowance)
	assert.Equal(t, 5, cfg.adaptive.BaseFloor)

	store, err := infra.NewAdaptiveStore(cfg.adaptive)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Config().BurstAllowance)
	assert.Equal(t, 100, store.Config().DynamicLimit(0))
}

func TestReadConfig_ZeroWhereInvalidIsAnError(t *testing.T) {
	for _, k := range []string{"RATE_WINDOW", "RATE_MAX_REQUESTS", "RATE_CLEANUP_INTERVAL", "RATE_EVICT_AFTER_WINDOWS"} {
		t.Run(k, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("UPSTREAM_URL", "http://storefront:3000")
			v := "0"
			if k == "RATE_WINDOW" || k == "RATE_CLEANUP_INTERVAL" {
				v = "0s"
			}
			t.Setenv(k, v)

			e, _ := newEnv("", false)
			cfg, err := readConfig(e)
			require.NoError(t, err)
			err = cfg.validate()
			require.Error(t, err)
			assert.True(t, domain.IsInvalidConfig(err))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() config {
		return config{
			upstreamURL:      "http://storefront:3000",
			rateAlgorithm:    infra.AlgorithmAdaptive,
			adaptive:         infra.DefaultAdaptiveConfig(),
			blocklistBackend: "memory",
		}
	}

	cases := []struct {
		name   string
		mutate func(*config)
	}{
		{"missing upstream", func(c *config) { c.upstreamURL = "" }},
		{"unknown algorithm", func(c *config) { c.rateAlgorithm = "leaky" }},
		{"bucket without rps", func(c *config) { c.rateAlgorithm = infra.AlgorithmBucket }},
		{"bucket without burst", func(c *config) {
			c.rateAlgorithm, c.bucketRPS, c.adaptive.BurstAllowance = infra.AlgorithmBucket, 10, 0
		}},
		{"no floor nor burst", func(c *config) { c.adaptive.BaseFloor, c.adaptive.BurstAllowance = 0, 0 }},
		{"decay below one", func(c *config) { c.adaptive.PenaltyDecayFactor = 0.9 }},
		{"negative threshold", func(c *config) { c.blockThreshold = -1 }},
		{"unknown blocklist", func(c *config) { c.blocklistBackend = "memcached" }},
		{"redis blocklist without addr", func(c *config) { c.blocklistBackend = "redis" }},
		{"stats without addr", func(c *config) { c.rateStatsEnabled = true }},
		{"negative concurrency", func(c *config) { c.concurrencyMax = -1 }},
	}

	require.NoError(t, base().validate())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(&c)
			assert.Error(t, c.validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = newLogger("loud", "json")
	assert.Error(t, err)

	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}
