package infra

import (
	"context"
	"sync"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BucketStore é a alternativa em token-bucket (x/time/rate) ao AdaptiveStore,
// com um limiter por fingerprint e limpeza periódica de chaves inativas.
//
// Não encolhe a cota com penalidade; o contador só informa o nível de reincidência
// para a blocklist.
type BucketStore struct {
	mu           sync.Mutex
	entries      map[domain.Fingerprint]*bucketEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	clock        clockwork.Clock
	logger       *zap.Logger
}

type bucketEntry struct {
	lim       *rate.Limiter
	lastSeen  time.Time
	penalties int
}

var _ domain.Limiter = (*BucketStore)(nil)

func NewBucketStore(rps float64, burst int, opts ...Option) (*BucketStore, error) {
	if rps <= 0 || burst <= 0 {
		return nil, domain.ErrInvalidConfig
	}
	o := buildOptions(opts)
	return &BucketStore{
		entries:      make(map[domain.Fingerprint]*bucketEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      o.idleTTL,
		cleanupEvery: o.cleanupEvery,
		clock:        o.clock,
		logger:       o.logger,
	}, nil
}

func (s *BucketStore) RPS() float64 { return float64(s.rps) }
func (s *BucketStore) Burst() int    { return s.burst }

// Check implementa domain.Limiter.
func (s *BucketStore) Check(fp domain.Fingerprint) domain.Decision {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[fp]
	if !ok {
		ent = &bucketEntry{lim: rate.NewLimiter(s.rps, s.burst)}
		s.entries[fp] = ent
	}
	ent.lastSeen = now

	r := ent.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay == 0 {
		return domain.Decision{Allowed: true, Limit: s.burst, Remaining: int(ent.lim.TokensAt(now))}
	}
	// não vamos esperar: devolve o token reservado
	r.CancelAt(now)
	ent.penalties++
	return domain.Reject(delay, ent.penalties, s.burst)
}

func (s *BucketStore) Cleanup() int {
	cutoff := s.clock.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			evicted++
		}
	}
	return evicted
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia a limpeza de chaves inativas. Pare cancelando o contexto.
func (s *BucketStore) StartJanitor(ctx context.Context) *Janitor {
	return startJanitor(ctx, s.clock, s.cleanupEvery, s.logger, s.Cleanup, s.Len)
}
