package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"storefront-gateway/middleware/ratelimit/application"
	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Options struct {
	Limiter domain.Limiter
	Stats   domain.StatsStore

	// Blocklist + BlockThreshold > 0 ativam o bloqueio de reincidentes.
	Blocklist      domain.Blocklist
	BlockThreshold int
	BlockDuration  time.Duration

	IdentityFn         IdentityFunc
	KeyHeader          string
	TrustXForwardedFor bool

	RejectStatus        int
	AddRateLimitHeaders bool

	Logger *zap.Logger
	// Clock data os eventos de estatística; padrão é o relógio real.
	Clock clockwork.Clock
}

// Middleware aplica o limiter antes de qualquer lógica de negócio.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.IdentityFn == nil {
		opts.IdentityFn = DefaultIdentityFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	svc := application.Service{
		Limiter:        opts.Limiter,
		Blocklist:      opts.Blocklist,
		BlockThreshold: opts.BlockThreshold,
		BlockDuration:  opts.BlockDuration,
		Logger:         opts.Logger,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := requestID(r)
			w.Header().Set(headerRequestID, reqID)

			id := opts.IdentityFn(r)
			fp := id.Fingerprint()
			dec := svc.Decide(r.Context(), id)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", string(fp))
				if dec.Limit > 0 {
					w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
					w.Header().Set("X-RateLimit-Remaining", formatInt(max(dec.Remaining, 0)))
				}
			}

			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Fingerprint:  fp,
					Allowed:      dec.Allowed,
					Blocked:      dec.Blocked,
					PenaltyLevel: dec.PenaltyLevel,
					Method:       r.Method,
					Path:         r.URL.Path,
					At:           opts.Clock.Now(),
				})
				if err != nil {
					opts.Logger.Warn("rate limit stats failed", zap.Error(err))
				}
			}

			if dec.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			opts.Logger.Debug("request rejected",
				zap.String("request_id", reqID),
				zap.String("fingerprint", string(fp)),
				zap.String("path", r.URL.Path),
				zap.Bool("blocked", dec.Blocked),
				zap.Int("penalty_level", dec.PenaltyLevel),
				zap.Duration("retry_after", dec.RetryAfter),
			)

			if secs := dec.RetryAfterSeconds(); secs > 0 {
				w.Header().Set("Retry-After", formatInt(secs))
			}
			code := "too_many_requests"
			if dec.Blocked {
				code = "blocked"
			}
			writeJSON(w, opts.RejectStatus, errorBody{
				Error:        code,
				Message:      dec.Message,
				RetryAfterMs: dec.RetryAfterMillis(),
				PenaltyLevel: dec.PenaltyLevel,
				RequestID:    reqID,
			})
		})
	}
}

// requestID reaproveita o X-Request-Id do cliente/proxy ou gera um novo.
func requestID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(headerRequestID)); v != "" && len(v) <= 128 {
		return v
	}
	return uuid.NewString()
}
