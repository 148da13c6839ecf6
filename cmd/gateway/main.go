package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-gateway/middleware/ratelimit"
	"storefront-gateway/middleware/ratelimit/domain"
	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile  string
		listen   string
		upstream string
	)

	cmd := &cobra.Command{
		Use:          "gateway",
		Short:        "Reverse proxy com rate limit adaptativo na frente da API da loja",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(envFile, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}
			cfg, err := readConfig(e)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if listen != "" {
				cfg.listenAddr = listen
			}
			if upstream != "" {
				cfg.upstreamURL = upstream
			}
			if err := cfg.validate(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "arquivo .env opcional (o ambiente do processo tem prioridade)")
	cmd.Flags().StringVar(&listen, "listen", "", "sobrescreve LISTEN_ADDR")
	cmd.Flags().StringVar(&upstream, "upstream", "", "sobrescreve UPSTREAM_URL")
	return cmd
}

func run(parent context.Context, cfg config) error {
	logger, err := newLogger(cfg.logLevel, cfg.logFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	store, err := infra.NewStore(cfg.rateAlgorithm, cfg.adaptive, cfg.bucketRPS, infra.WithLogger(logger.Named("ratelimit")))
	if err != nil {
		return fmt.Errorf("rate limit store: %w", err)
	}

	var rdb *redis.Client
	if cfg.needsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(parent, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	memStats := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.rateStatsTrackKeys))
	var redisStats domain.StatsStore
	if cfg.rateStatsEnabled {
		redisStats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// janitors nascem com o servidor e morrem no shutdown
	janitors := []*infra.Janitor{store.StartJanitor(ctx)}

	blocklist, blocklistJanitor := newBlocklist(ctx, cfg, rdb, logger.Named("blocklist"))
	if blocklistJanitor != nil {
		janitors = append(janitors, blocklistJanitor)
	}

	deps := routerDeps{
		upstream:   proxy,
		stats:      memStats,
		store:      store,
		adminToken: cfg.adminToken,
		concurrency: ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Max:            cfg.concurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
			Logger:         logger.Named("concurrency"),
		}),
	}
	if cfg.rateEnabled {
		deps.rateLimit = ratelimit.Middleware(ratelimit.Options{
			Limiter:             store,
			Stats:               infra.TeeStats(memStats, redisStats),
			Blocklist:           blocklist,
			BlockThreshold:      cfg.blockThreshold,
			BlockDuration:       cfg.blockDuration,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			AddRateLimitHeaders: cfg.addHeaders,
			Logger:              logger.Named("ratelimit"),
		})
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
		for _, j := range janitors {
			if err := j.Wait(shutdownCtx); err != nil {
				logger.Warn("janitor did not stop", zap.Error(err))
			}
		}
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.listenAddr),
		zap.Stringer("upstream", target),
	)
	logger.Info("rate limit",
		zap.Bool("enabled", cfg.rateEnabled),
		zap.String("algorithm", cfg.rateAlgorithm),
		zap.Duration("window", cfg.adaptive.Window),
		zap.Int("max_requests", cfg.adaptive.BaseMaxRequests),
		zap.Int("burst", cfg.adaptive.BurstAllowance),
		zap.Float64("penalty_decay", cfg.adaptive.PenaltyDecayFactor),
		zap.Int("floor", cfg.adaptive.BaseFloor),
		zap.String("key_header", cfg.rateKeyHeader),
		zap.Bool("trust_xff", cfg.trustXFF),
		zap.Int("block_threshold", cfg.blockThreshold),
		zap.String("blocklist", cfg.blocklistBackend),
	)
	logger.Info("concurrency",
		zap.Int("max", cfg.concurrencyMax),
		zap.Duration("acquire_timeout", cfg.concurrencyTimeout),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-shutdownDone
		return fmt.Errorf("server error: %w", err)
	}
	<-shutdownDone
	logger.Info("gateway stopped")
	return nil
}

// newBlocklist devolve nil sem BLOCK_THRESHOLD. O janitor só existe no backend
// em memória; no Redis o TTL da chave faz a limpeza.
func newBlocklist(ctx context.Context, cfg config, rdb redis.UniversalClient, logger *zap.Logger) (domain.Blocklist, *infra.Janitor) {
	if cfg.blockThreshold <= 0 {
		return nil, nil
	}
	if cfg.blocklistBackend == "redis" {
		return infra.NewRedisBlocklist(rdb, "storefront:ratelimit:block"), nil
	}
	mem := infra.NewMemoryBlocklist(infra.WithLogger(logger))
	// validate já recusou intervalo zero, então é o mesmo que o store usa
	return mem, mem.StartJanitor(ctx, cfg.adaptive.CleanupInterval)
}
