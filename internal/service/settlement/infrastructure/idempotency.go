// internal/service/settlement/infrastructure/idempotency.go
package infrastructure

import (
	"context"
	"time"

	redispkg "bazaar/internal/pkg/redis"
)

const (
	idempotencyKeyPrefix = "settlement:booking:"
	idempotencyTTL       = 24 * time.Hour
)

// RedisIdempotencyGuard 用 SETNX 做入账前的快速去重。
// 占位带 TTL，过期后的重复事件由流水表唯一约束拦下。
type RedisIdempotencyGuard struct {
	rdb *redispkg.Client
}

func NewRedisIdempotencyGuard(rdb *redispkg.Client) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{rdb: rdb}
}

func (g *RedisIdempotencyGuard) Reserve(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, idempotencyKeyPrefix+key, "1", idempotencyTTL)
}

func (g *RedisIdempotencyGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, idempotencyKeyPrefix+key)
}
