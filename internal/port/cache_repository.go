package port

import (
	"context"
	"time"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency deletes the key so a failed request may be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetRatingSummary returns the cached summary and whether it was present
	GetRatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, bool, error)

	// SetRatingSummary caches the summary with a TTL
	SetRatingSummary(ctx context.Context, summary domain.RatingSummary, ttl time.Duration) error

	// InvalidateRatingSummary drops the cached summary after a rating write
	InvalidateRatingSummary(ctx context.Context, productID int64) error
}
