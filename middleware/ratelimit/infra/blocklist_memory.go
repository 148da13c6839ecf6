package infra

import (
	"context"
	"sync"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// MemoryBlocklist guarda bloqueios no processo. Entradas vencidas saem
// na consulta ou no Cleanup.
type MemoryBlocklist struct {
	mu     sync.Mutex
	until  map[domain.Fingerprint]time.Time
	clock  clockwork.Clock
	logger *zap.Logger
}

var _ domain.Blocklist = (*MemoryBlocklist)(nil)

// NewMemoryBlocklist aceita WithClock e WithLogger; as demais opções são ignoradas.
func NewMemoryBlocklist(opts ...Option) *MemoryBlocklist {
	o := buildOptions(opts)
	return &MemoryBlocklist{
		until:  make(map[domain.Fingerprint]time.Time),
		clock:  o.clock,
		logger: o.logger,
	}
}

func (b *MemoryBlocklist) Block(_ context.Context, fp domain.Fingerprint, d time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d <= 0 {
		delete(b.until, fp)
		return nil
	}
	b.until[fp] = b.clock.Now().Add(d)
	return nil
}

func (b *MemoryBlocklist) Blocked(_ context.Context, fp domain.Fingerprint) (time.Duration, bool, error) {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.until[fp]
	if !ok {
		return 0, false, nil
	}
	if !now.Before(until) {
		delete(b.until, fp)
		return 0, false, nil
	}
	return until.Sub(now), true, nil
}

func (b *MemoryBlocklist) Cleanup() int {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for fp, until := range b.until {
		if !now.Before(until) {
			delete(b.until, fp)
			n++
		}
	}
	return n
}

func (b *MemoryBlocklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.until)
}

// StartJanitor remove bloqueios vencidos de quem nunca mais voltou.
func (b *MemoryBlocklist) StartJanitor(ctx context.Context, every time.Duration) *Janitor {
	return startJanitor(ctx, b.clock, every, b.logger, b.Cleanup, b.Len)
}
