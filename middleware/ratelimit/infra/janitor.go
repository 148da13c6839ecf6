package infra

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Janitor é a goroutine de limpeza periódica de um store.
// Pare cancelando o contexto passado a StartJanitor; Done fecha quando ela sai.
type Janitor struct {
	done chan struct{}
}

func (j *Janitor) Done() <-chan struct{} { return j.done }

// Wait bloqueia até o janitor encerrar ou o ctx expirar.
func (j *Janitor) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func startJanitor(ctx context.Context, clock clockwork.Clock, every time.Duration, logger *zap.Logger, sweep func() int, size func() int) *Janitor {
	j := &Janitor{done: make(chan struct{})}
	if every <= 0 {
		close(j.done)
		return j
	}

	t := clock.NewTicker(every)
	go func() {
		defer close(j.done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.Chan():
				evicted := sweep()
				logger.Debug("rate limit sweep",
					zap.Int("evicted", evicted),
					zap.Int("remaining", size()),
				)
			}
		}
	}()
	return j
}
