package main

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type routerDeps struct {
	upstream    http.Handler
	rateLimit   func(http.Handler) http.Handler
	concurrency func(http.Handler) http.Handler
	stats       *infra.MemoryStatsStore
	store       infra.Store
	adminToken  string
}

// newRouter: health e admin ficam fora do rate limit; o resto vai para o upstream.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	if d.adminToken != "" {
		r.With(requireToken(d.adminToken)).Get("/admin/ratelimit/stats", func(w http.ResponseWriter, r *http.Request) {
			resp := struct {
				Entries int            `json:"entries"`
				Stats   infra.Snapshot `json:"stats"`
			}{Stats: d.stats.Snapshot()}
			if d.store != nil {
				resp.Entries = d.store.Len()
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(resp)
		})
	}

	r.Group(func(r chi.Router) {
		if d.rateLimit != nil {
			r.Use(d.rateLimit)
		}
		if d.concurrency != nil {
			r.Use(d.concurrency)
		}
		r.Handle("/*", d.upstream)
	})
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
