package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão do rate limit.
//
// Method/Path são strings genéricas e podem ser usadas para web, gRPC, etc.
// Cuidado com cardinalidade: salvar Fingerprint sem controle pode
// explodir o número de chaves no Redis.
type StatsEvent struct {
	Fingerprint Fingerprint
	Allowed     bool
	Blocked     bool

	PenaltyLevel int

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
