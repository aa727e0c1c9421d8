package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/port"
)

const ratingSummaryTTL = 10 * time.Minute

// RatingService gates reviews on purchase history. Eligibility counts any
// order containing the product, whatever its status; submitting again
// overwrites the previous rating for the (user, product) pair.
type RatingService struct {
	store  Store
	cache  port.CacheRepository
	logger *zap.Logger
}

func NewRatingService(store Store, cache port.CacheRepository, logger *zap.Logger) *RatingService {
	return &RatingService{store: store, cache: cache, logger: logger}
}

func (s *RatingService) SubmitRating(ctx context.Context, userID string, productID int64, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return domain.ErrInvalidRating
	}

	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		if _, err := repo.GetProduct(ctx, productID); err != nil {
			return err
		}
		purchased, err := repo.HasPurchased(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !purchased {
			return domain.ErrNotPurchased
		}
		return repo.UpsertRating(ctx, domain.ProductRating{
			ProductID: productID,
			UserID:    userID,
			Rating:    rating,
			Comment:   comment,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return err
	}

	// Invalidation rides the write path, never ad hoc remove calls
	// scattered around readers.
	if err := s.cache.InvalidateRatingSummary(ctx, productID); err != nil {
		s.logger.Warn("failed to invalidate rating summary",
			zap.Int64("product_id", productID), zap.Error(err))
	}
	return nil
}

// ProductSummary serves the average rating from cache, recomputing from the
// store on a miss.
func (s *RatingService) ProductSummary(ctx context.Context, productID int64) (domain.RatingSummary, error) {
	if summary, ok, err := s.cache.GetRatingSummary(ctx, productID); err == nil && ok {
		return summary, nil
	} else if err != nil {
		s.logger.Warn("rating summary cache read failed",
			zap.Int64("product_id", productID), zap.Error(err))
	}

	summary, err := s.store.RatingSummary(ctx, productID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	if err := s.cache.SetRatingSummary(ctx, summary, ratingSummaryTTL); err != nil {
		s.logger.Warn("rating summary cache write failed",
			zap.Int64("product_id", productID), zap.Error(err))
	}
	return summary, nil
}
