package application

import (
	"context"
	"fmt"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

const defaultBlockDuration = 15 * time.Minute

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Com Blocklist e BlockThreshold > 0, um fingerprint que chega a BlockThreshold
// penalidades fica bloqueado por BlockDuration, sem nem passar pelo limiter.
type Service struct {
	Limiter domain.Limiter

	Blocklist      domain.Blocklist
	BlockThreshold int
	BlockDuration  time.Duration

	Logger *zap.Logger
}

func (s Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s Service) Decide(ctx context.Context, id domain.Identity) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}
	}
	fp := id.Fingerprint()

	if s.Blocklist != nil {
		remaining, blocked, err := s.Blocklist.Blocked(ctx, fp)
		switch {
		case err != nil:
			// fail open: o limiter em memória continua valendo
			s.logger().Warn("blocklist lookup failed", zap.String("fingerprint", string(fp)), zap.Error(err))
		case blocked:
			return blockedDecision(remaining)
		}
	}

	dec := s.Limiter.Check(fp)
	if dec.Allowed || s.Blocklist == nil || s.BlockThreshold <= 0 || dec.PenaltyLevel < s.BlockThreshold {
		return dec
	}

	d := s.BlockDuration
	if d <= 0 {
		d = defaultBlockDuration
	}
	if err := s.Blocklist.Block(ctx, fp, d); err != nil {
		s.logger().Warn("blocklist update failed", zap.String("fingerprint", string(fp)), zap.Error(err))
		return dec
	}
	s.logger().Warn("fingerprint blocked after repeated violations",
		zap.String("fingerprint", string(fp)),
		zap.Int("penalty_level", dec.PenaltyLevel),
		zap.Duration("block_duration", d),
	)
	return dec
}

func blockedDecision(remaining time.Duration) domain.Decision {
	d := domain.Decision{Allowed: false, Blocked: true, RetryAfter: remaining}
	if remaining > 0 {
		d.Message = fmt.Sprintf("Access temporarily blocked. Please try again in %d seconds.", d.RetryAfterSeconds())
	} else {
		d.Message = "Access temporarily blocked."
	}
	return d
}
