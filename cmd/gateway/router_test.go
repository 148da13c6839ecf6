package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-gateway/middleware/ratelimit"
	"storefront-gateway/middleware/ratelimit/infra"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeps(t *testing.T) routerDeps {
	t.Helper()
	store, err := infra.NewAdaptiveStore(infra.AdaptiveConfig{
		Window:          time.Minute,
		BaseMaxRequests: 1,
		BaseFloor:       1,
		BurstAllowance:  1,
	}, infra.WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	stats := infra.NewMemoryStatsStore()
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[]}`))
	})

	return routerDeps{
		upstream:   upstream,
		stats:      stats,
		store:      store,
		adminToken: "s3cret",
		rateLimit:  ratelimit.Middleware(ratelimit.Options{Limiter: store, Stats: stats}),
	}
}

func do(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	r.RemoteAddr = "10.1.1.1:5000"
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRouter_ProxiedRoutesAreRateLimited(t *testing.T) {
	h := newRouter(newTestDeps(t))

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/products", nil).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/cart", nil).Code)
	w := do(h, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRouter_HealthIsNotRateLimited(t *testing.T) {
	h := newRouter(newTestDeps(t))
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", nil).Code)
	}
}

func TestRouter_AdminStatsRequiresToken(t *testing.T) {
	h := newRouter(newTestDeps(t))

	do(h, http.MethodGet, "/api/products", nil)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/admin/ratelimit/stats", nil).Code)
	for _, auth := range []string{"s3cret", "Basic s3cret", "bearer s3cret", "Bearer wrong"} {
		w := do(h, http.MethodGet, "/admin/ratelimit/stats", map[string]string{"Authorization": auth})
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "Authorization %q", auth)
	}

	w := do(h, http.MethodGet, "/admin/ratelimit/stats", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Entries int            `json:"entries"`
		Stats   infra.Snapshot `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Entries)
	assert.EqualValues(t, 1, resp.Stats.Total.Allowed)
}

func TestRouter_AdminDisabledWithoutToken(t *testing.T) {
	d := newTestDeps(t)
	d.adminToken = ""
	d.rateLimit = nil
	h := newRouter(d)

	// sem token a rota admin não existe e cai no upstream
	w := do(h, http.MethodGet, "/admin/ratelimit/stats", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, `{"products":[]}`, w.Body.String())
}
