package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/joho/godotenv"
)

type config struct {
	listenAddr  string
	upstreamURL string

	rateEnabled   bool
	rateAlgorithm string
	adaptive      infra.AdaptiveConfig
	bucketRPS     float64
	rateKeyHeader string
	trustXFF      bool
	addHeaders    bool

	blockThreshold   int
	blockDuration    time.Duration
	blocklistBackend string

	concurrencyMax     int
	concurrencyTimeout time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	rateStatsEnabled   bool
	rateStatsPrefix    string
	rateStatsTTL       time.Duration
	rateStatsBucket    string
	rateStatsTrackKeys bool

	adminToken string

	logLevel  string
	logFormat string
}

// needsRedis diz se algum componente configurado usa o Redis.
func (c config) needsRedis() bool {
	return c.rateStatsEnabled || c.blocklistBackend == "redis"
}

// env lê do ambiente do processo e, como fallback, do arquivo .env.
// O arquivo nunca sobrescreve o que já está no ambiente.
type env struct {
	file map[string]string
	errs []error
}

func newEnv(envFile string, required bool) (*env, error) {
	e := &env{file: map[string]string{}}
	if envFile == "" {
		return e, nil
	}
	vals, err := godotenv.Read(envFile)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return e, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", envFile, err)
	}
	e.file = vals
	return e, nil
}

func (e *env) get(k string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return strings.TrimSpace(e.file[k])
}

func (e *env) getStr(k, def string) string {
	if v := e.get(k); v != "" {
		return v
	}
	return def
}

func (e *env) getInt(k string, def int) int {
	v := e.get(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return i
}

func (e *env) getFloat(k string, def float64) float64 {
	v := e.get(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return f
}

func (e *env) getBool(k string, def bool) bool {
	v := e.get(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return b
}

func (e *env) getDuration(k string, def time.Duration) time.Duration {
	v := e.get(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", k, err))
		return def
	}
	return d
}

// readConfig só faz o parse; validate roda depois dos overrides de flag.
func readConfig(e *env) (config, error) {
	def := infra.DefaultAdaptiveConfig()

	cfg := config{}
	cfg.listenAddr = e.getStr("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = e.get("UPSTREAM_URL")

	cfg.rateEnabled = e.getBool("RATE_ENABLED", true)
	cfg.rateAlgorithm = strings.ToLower(e.getStr("RATE_ALGORITHM", infra.AlgorithmAdaptive))
	cfg.adaptive = infra.AdaptiveConfig{
		Window:             e.getDuration("RATE_WINDOW", def.Window),
		BaseMaxRequests:    e.getInt("RATE_MAX_REQUESTS", def.BaseMaxRequests),
		BurstAllowance:     e.getInt("RATE_BURST", def.BurstAllowance),
		PenaltyDecayFactor: e.getFloat("RATE_PENALTY_DECAY", def.PenaltyDecayFactor),
		BaseFloor:          e.getInt("RATE_FLOOR", def.BaseFloor),
		CleanupInterval:    e.getDuration("RATE_CLEANUP_INTERVAL", def.CleanupInterval),
		EvictAfterWindows:  e.getInt("RATE_EVICT_AFTER_WINDOWS", def.EvictAfterWindows),
	}
	cfg.bucketRPS = e.getFloat("RATE_BUCKET_RPS", 10)
	cfg.rateKeyHeader = e.get("RATE_KEY_HEADER")
	cfg.trustXFF = e.getBool("TRUST_XFF", false)
	cfg.addHeaders = e.getBool("ADD_RATELIMIT_HEADERS", false)

	cfg.blockThreshold = e.getInt("BLOCK_THRESHOLD", 0)
	cfg.blockDuration = e.getDuration("BLOCK_DURATION", 15*time.Minute)
	cfg.blocklistBackend = strings.ToLower(e.getStr("BLOCKLIST_BACKEND", "memory"))

	cfg.concurrencyMax = e.getInt("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = e.getDuration("CONCURRENCY_TIMEOUT", 0)

	cfg.redisAddr = e.get("REDIS_ADDR")
	cfg.redisPassword = e.get("REDIS_PASSWORD")
	cfg.redisDB = e.getInt("REDIS_DB", 0)

	cfg.rateStatsEnabled = e.getBool("RATE_STATS_ENABLED", false)
	cfg.rateStatsPrefix = e.getStr("RATE_STATS_PREFIX", "storefront:ratelimit:stats")
	cfg.rateStatsTTL = e.getDuration("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = e.getStr("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = e.getBool("RATE_STATS_TRACK_KEYS", false)

	cfg.adminToken = e.get("ADMIN_TOKEN")

	cfg.logLevel = e.getStr("LOG_LEVEL", "info")
	cfg.logFormat = e.getStr("LOG_FORMAT", "json")

	if err := errors.Join(e.errs...); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.upstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	if c.rateAlgorithm != infra.AlgorithmAdaptive && c.rateAlgorithm != infra.AlgorithmBucket {
		return fmt.Errorf("RATE_ALGORITHM must be %q or %q", infra.AlgorithmAdaptive, infra.AlgorithmBucket)
	}
	if c.rateAlgorithm == infra.AlgorithmBucket && c.bucketRPS <= 0 {
		return errors.New("RATE_BUCKET_RPS must be > 0")
	}
	if c.rateAlgorithm == infra.AlgorithmBucket && c.adaptive.BurstAllowance <= 0 {
		return errors.New("RATE_BURST must be > 0 for the bucket algorithm")
	}
	// valida os valores crus: zero explícito no ambiente não vira padrão
	if err := c.adaptive.Validate(); err != nil {
		return fmt.Errorf("rate limit config: %w", err)
	}
	if c.blockThreshold < 0 {
		return errors.New("BLOCK_THRESHOLD must be >= 0")
	}
	if c.blocklistBackend != "memory" && c.blocklistBackend != "redis" {
		return errors.New(`BLOCKLIST_BACKEND must be "memory" or "redis"`)
	}
	if c.needsRedis() && c.redisAddr == "" {
		return errors.New("REDIS_ADDR is required when RATE_STATS_ENABLED=true or BLOCKLIST_BACKEND=redis")
	}
	if c.concurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}
