package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-gateway/middleware/ratelimit"
	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Exemplo: o middleware injetado direto na API da loja (sem proxy).
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := infra.NewAdaptiveStore(infra.DefaultAdaptiveConfig(), infra.WithLogger(logger))
	if err != nil {
		logger.Fatal("rate limit store", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	janitor := store.StartJanitor(ctx)
	blocklist := infra.NewMemoryBlocklist(infra.WithLogger(logger))
	blocklistJanitor := blocklist.StartJanitor(ctx, store.Config().CleanupInterval)

	r := chi.NewRouter()
	r.Use(ratelimit.Middleware(ratelimit.Options{
		Limiter:             store,
		Blocklist:           blocklist,
		BlockThreshold:      10,
		AddRateLimitHeaders: true,
		Logger:              logger,
	}))

	r.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"products": []map[string]any{
			{"id": "p-1", "name": "Camiseta", "price": 79.9},
			{"id": "p-2", "name": "Caneca", "price": 39.9},
		}})
	})
	r.With(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50, Logger: logger})).
		Post("/api/checkout", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		})

	addr := ":8082"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = janitor.Wait(shutdownCtx)
		_ = blocklistJanitor.Wait(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	<-stopped
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
