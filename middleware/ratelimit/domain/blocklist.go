package domain

import (
	"context"
	"time"
)

// Blocklist guarda fingerprints bloqueados temporariamente após reincidência.
//
// Blocked devolve o tempo restante de bloqueio quando blocked=true.
// Implementações podem usar memória ou Redis; o chamador trata erro como best-effort.
type Blocklist interface {
	Block(ctx context.Context, fp Fingerprint, d time.Duration) error
	Blocked(ctx context.Context, fp Fingerprint) (remaining time.Duration, blocked bool, err error)
}
