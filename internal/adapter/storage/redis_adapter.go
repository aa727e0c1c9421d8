package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

const (
	idempotencyKeyPrefix = "checkout:"
	ratingKeyPrefix      = "rating-summary:"
	idempotencyKeyTTL    = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *RedisAdapter) GetRatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, bool, error) {
	raw, err := r.client.Get(ctx, ratingKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RatingSummary{}, false, nil
	}
	if err != nil {
		return domain.RatingSummary{}, false, fmt.Errorf("get rating summary: %w", err)
	}

	var summary domain.RatingSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// Treat a corrupt entry as a miss; the write path will replace it.
		return domain.RatingSummary{}, false, nil
	}
	return summary, true, nil
}

func (r *RedisAdapter) SetRatingSummary(ctx context.Context, summary domain.RatingSummary, ttl time.Duration) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal rating summary: %w", err)
	}
	if err := r.client.Set(ctx, ratingKey(summary.ProductID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set rating summary: %w", err)
	}
	return nil
}

func (r *RedisAdapter) InvalidateRatingSummary(ctx context.Context, productID int64) error {
	if err := r.client.Del(ctx, ratingKey(productID)).Err(); err != nil {
		return fmt.Errorf("invalidate rating summary: %w", err)
	}
	return nil
}

func ratingKey(productID int64) string {
	return fmt.Sprintf("%s%d", ratingKeyPrefix, productID)
}
