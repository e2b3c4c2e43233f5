package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	stockSnapshotTTL  = 30 * time.Second
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter caches product stock snapshots and holds idempotency keys.
// The database stays authoritative for stock; a snapshot may lag by up to
// stockSnapshotTTL.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetStock(ctx context.Context, productID int64) (int64, bool, error) {
	key := stockKeyPrefix + strconv.FormatInt(productID, 10)

	stock, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID, stock int64) error {
	key := stockKeyPrefix + strconv.FormatInt(productID, 10)
	return r.client.Set(ctx, key, stock, stockSnapshotTTL).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, "idempotency:"+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
