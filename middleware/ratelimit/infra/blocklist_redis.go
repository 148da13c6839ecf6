package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisBlocklist compartilha bloqueios entre réplicas do gateway.
// A expiração fica a cargo do TTL da chave.
type RedisBlocklist struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ domain.Blocklist = (*RedisBlocklist)(nil)

func NewRedisBlocklist(rdb redis.UniversalClient, prefix string) *RedisBlocklist {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "storefront:ratelimit:block"
	}
	return &RedisBlocklist{rdb: rdb, prefix: prefix}
}

func (b *RedisBlocklist) key(fp domain.Fingerprint) string {
	return b.prefix + ":" + string(fp)
}

func (b *RedisBlocklist) Block(ctx context.Context, fp domain.Fingerprint, d time.Duration) error {
	if d <= 0 {
		if err := b.rdb.Del(ctx, b.key(fp)).Err(); err != nil {
			return fmt.Errorf("unblock %s: %w", fp, err)
		}
		return nil
	}
	if err := b.rdb.Set(ctx, b.key(fp), "1", d).Err(); err != nil {
		return fmt.Errorf("block %s: %w", fp, err)
	}
	return nil
}

func (b *RedisBlocklist) Blocked(ctx context.Context, fp domain.Fingerprint) (time.Duration, bool, error) {
	ttl, err := b.rdb.PTTL(ctx, b.key(fp)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("check block %s: %w", fp, err)
	}
	// -2: chave não existe; -1: sem TTL (não deveria acontecer, tratamos como bloqueado sem prazo)
	switch {
	case ttl == -2:
		return 0, false, nil
	case ttl < 0:
		return 0, true, nil
	default:
		return ttl, true, nil
	}
}
