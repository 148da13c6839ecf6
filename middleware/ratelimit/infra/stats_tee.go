package infra

import (
	"context"
	"errors"

	"storefront-gateway/middleware/ratelimit/domain"
)

type teeStats []domain.StatsStore

// TeeStats grava o mesmo evento em vários stores (ex: memória para o admin + Redis).
// Nil são ignorados; com um único store ele é devolvido direto.
func TeeStats(stores ...domain.StatsStore) domain.StatsStore {
	var out teeStats
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (t teeStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range t {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
