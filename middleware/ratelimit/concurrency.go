package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"storefront-gateway/middleware/ratelimit/application"
	"storefront-gateway/middleware/ratelimit/domain"
	"storefront-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *zap.Logger
}

// ConcurrencyMiddleware limita requisições simultâneas (ex: checkout/pagamento).
// Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	pool := infra.NewChanPool(opts.Max)
	svc := application.ConcurrencyService{
		Pool:           pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				if !errors.Is(err, domain.ErrNoSlot) {
					// cliente desistiu; não há para quem responder
					return
				}
				opts.Logger.Warn("concurrency limit reached",
					zap.Int("max", opts.Max),
					zap.Int("in_flight", pool.InFlight()),
					zap.String("path", r.URL.Path),
				)
				writeJSON(w, opts.RejectStatus, errorBody{
					Error:   "overloaded",
					Message: http.StatusText(opts.RejectStatus),
				})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
