package infra

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// AdaptiveConfig parametriza a janela deslizante com penalidade.
//
// Window, BaseMaxRequests, PenaltyDecayFactor, CleanupInterval e EvictAfterWindows
// zerados assumem os valores de DefaultAdaptiveConfig. BurstAllowance e BaseFloor
// valem como estão: zero é zero. Para partir dos padrões, use DefaultAdaptiveConfig
// e sobrescreva os campos.
type AdaptiveConfig struct {
	Window             time.Duration
	BaseMaxRequests    int
	BurstAllowance     int
	PenaltyDecayFactor float64
	// BaseFloor é o mínimo por janela (antes do burst), qualquer que seja a penalidade.
	BaseFloor int
	// CleanupInterval negativo desliga o janitor.
	CleanupInterval time.Duration
	// EvictAfterWindows: quantas janelas desde a última violação até a entrada vazia poder sair.
	EvictAfterWindows int
}

func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Window:             60 * time.Second,
		BaseMaxRequests:    100,
		BurstAllowance:     20,
		PenaltyDecayFactor: 1.4,
		BaseFloor:          20,
		CleanupInterval:    120 * time.Second,
		EvictAfterWindows:  5,
	}
}

// withDefaults só preenche campos em que zero não é um valor válido.
func (c AdaptiveConfig) withDefaults() AdaptiveConfig {
	def := DefaultAdaptiveConfig()
	if c.Window == 0 {
		c.Window = def.Window
	}
	if c.BaseMaxRequests == 0 {
		c.BaseMaxRequests = def.BaseMaxRequests
	}
	if c.PenaltyDecayFactor == 0 {
		c.PenaltyDecayFactor = def.PenaltyDecayFactor
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.EvictAfterWindows == 0 {
		c.EvictAfterWindows = def.EvictAfterWindows
	}
	return c
}

// Validate confere a configuração tal como está, sem aplicar padrões.
// O gateway chama antes de construir o store, então um zero vindo do
// ambiente é erro e não vira padrão em silêncio.
func (c AdaptiveConfig) Validate() error {
	switch {
	case c.Window <= 0:
		return fmt.Errorf("%w: window must be > 0", domain.ErrInvalidConfig)
	case c.BaseMaxRequests <= 0:
		return fmt.Errorf("%w: base max requests must be > 0", domain.ErrInvalidConfig)
	case c.BurstAllowance < 0:
		return fmt.Errorf("%w: burst allowance must be >= 0", domain.ErrInvalidConfig)
	case c.PenaltyDecayFactor < 1:
		return fmt.Errorf("%w: penalty decay factor must be >= 1", domain.ErrInvalidConfig)
	case c.BaseFloor < 0:
		return fmt.Errorf("%w: base floor must be >= 0", domain.ErrInvalidConfig)
	case c.BaseFloor+c.BurstAllowance < 1:
		return fmt.Errorf("%w: base floor + burst allowance must be >= 1", domain.ErrInvalidConfig)
	case c.CleanupInterval == 0:
		return fmt.Errorf("%w: cleanup interval must be > 0 (negative disables it)", domain.ErrInvalidConfig)
	case c.EvictAfterWindows < 1:
		return fmt.Errorf("%w: evict after windows must be >= 1", domain.ErrInvalidConfig)
	}
	return nil
}

// EvictAfter é o tempo desde a última violação a partir do qual uma entrada vazia é lixo.
func (c AdaptiveConfig) EvictAfter() time.Duration {
	return time.Duration(c.EvictAfterWindows) * c.Window
}

// DynamicLimit é a cota para um fingerprint com `penalties` violações.
// Decresce a cada violação até saturar em BaseFloor+BurstAllowance.
func (c AdaptiveConfig) DynamicLimit(penalties int) int {
	base := float64(c.BaseMaxRequests) / math.Pow(c.PenaltyDecayFactor, float64(penalties))
	return int(math.Floor(math.Max(float64(c.BaseFloor), base))) + c.BurstAllowance
}

// AdaptiveStore é a janela deslizante por fingerprint com penalidade progressiva.
//
// Um único mutex protege o mapa inteiro: Check e Cleanup fazem
// podar-decidir-mutar como uma unidade, senão dois Check concorrentes
// podem ler o mesmo tamanho de janela e estourar a cota.
type AdaptiveStore struct {
	mu      sync.Mutex
	entries map[domain.Fingerprint]*rateEntry
	cfg     AdaptiveConfig
	clock   clockwork.Clock
	logger  *zap.Logger
}

type rateEntry struct {
	timestamps    []time.Time
	penalties     int
	lastViolation time.Time
}

var _ domain.Limiter = (*AdaptiveStore)(nil)

func NewAdaptiveStore(cfg AdaptiveConfig, opts ...Option) (*AdaptiveStore, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &AdaptiveStore{
		entries: make(map[domain.Fingerprint]*rateEntry),
		cfg:     cfg,
		clock:   o.clock,
		logger:  o.logger,
	}, nil
}

func (s *AdaptiveStore) Config() AdaptiveConfig { return s.cfg }

// Check implementa domain.Limiter.
func (s *AdaptiveStore) Check(fp domain.Fingerprint) domain.Decision {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[fp]
	if !ok {
		s.entries[fp] = &rateEntry{timestamps: []time.Time{now}}
		limit := s.cfg.DynamicLimit(0)
		return domain.Decision{Allowed: true, Limit: limit, Remaining: limit - 1}
	}

	ent.prune(now.Add(-s.cfg.Window))
	limit := s.cfg.DynamicLimit(ent.penalties)

	if len(ent.timestamps) >= limit {
		ent.penalties++
		ent.lastViolation = now
		// a mais antiga é a próxima a sair da janela e liberar vaga
		retry := s.cfg.Window
		if len(ent.timestamps) > 0 {
			retry -= now.Sub(ent.timestamps[0])
		}
		return domain.Reject(retry, ent.penalties, limit)
	}

	ent.timestamps = append(ent.timestamps, now)
	return domain.Decision{Allowed: true, Limit: limit, Remaining: limit - len(ent.timestamps)}
}

// Cleanup remove entradas sem timestamps vivos e sem violação recente.
// Retorna quantas entradas saíram.
func (s *AdaptiveStore) Cleanup() int {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.Window)
	evictAfter := s.cfg.EvictAfter()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for fp, ent := range s.entries {
		ent.prune(cutoff)
		if len(ent.timestamps) > 0 {
			continue
		}
		if ent.lastViolation.IsZero() || now.Sub(ent.lastViolation) > evictAfter {
			delete(s.entries, fp)
			evicted++
		}
	}
	return evicted
}

// StartJanitor roda Cleanup a cada CleanupInterval até o ctx ser cancelado.
func (s *AdaptiveStore) StartJanitor(ctx context.Context) *Janitor {
	return startJanitor(ctx, s.clock, s.cfg.CleanupInterval, s.logger, s.Cleanup, s.Len)
}

func (s *AdaptiveStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Penalties devolve o contador atual do fingerprint (0 se não existir).
func (s *AdaptiveStore) Penalties(fp domain.Fingerprint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent, ok := s.entries[fp]; ok {
		return ent.penalties
	}
	return 0
}

// prune descarta timestamps em ou antes de cutoff. A lista é cronológica.
func (e *rateEntry) prune(cutoff time.Time) {
	i := 0
	for i < len(e.timestamps) && !e.timestamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	// copia para não segurar o array antigo inteiro na memória
	kept := make([]time.Time, len(e.timestamps)-i)
	copy(kept, e.timestamps[i:])
	e.timestamps = kept
}
