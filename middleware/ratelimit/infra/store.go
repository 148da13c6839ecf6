package infra

import (
	"context"
	"fmt"
	"strings"

	"storefront-gateway/middleware/ratelimit/domain"
)

const (
	AlgorithmAdaptive = "adaptive"
	AlgorithmBucket   = "bucket"
)

// Store é o que o binário precisa de um limiter em memória: decidir,
// limpar e rodar a limpeza periódica.
type Store interface {
	domain.Limiter
	Cleanup() int
	Len() int
	StartJanitor(ctx context.Context) *Janitor
}

var (
	_ Store = (*AdaptiveStore)(nil)
	_ Store = (*BucketStore)(nil)
)

// NewStore escolhe a implementação pelo nome do algoritmo.
// O token bucket reaproveita Window, BurstAllowance e CleanupInterval de cfg.
func NewStore(algorithm string, cfg AdaptiveConfig, bucketRPS float64, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmAdaptive:
		s, err := NewAdaptiveStore(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case AlgorithmBucket:
		cfg = cfg.withDefaults()
		s, err := NewBucketStore(bucketRPS, cfg.BurstAllowance,
			append([]Option{WithIdleTTL(cfg.EvictAfter()), WithCleanupEvery(cfg.CleanupInterval)}, opts...)...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", domain.ErrInvalidConfig, algorithm)
	}
}
