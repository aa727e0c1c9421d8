package storage

import (
	"context"
	"fmt"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

// UpsertRating relies on the UNIQUE(product_id, user_id) index: a repeated
// submission overwrites rating, comment and timestamp instead of adding a
// second row.
func (s *queries) UpsertRating(ctx context.Context, rating domain.ProductRating) error {
	var comment any
	if rating.Comment != "" {
		comment = rating.Comment
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO product_ratings (product_id, user_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE rating = VALUES(rating), comment = VALUES(comment), created_at = VALUES(created_at)`,
		rating.ProductID, rating.UserID, rating.Rating, comment, rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (s *queries) RatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, error) {
	summary := domain.RatingSummary{ProductID: productID}
	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM product_ratings WHERE product_id = ?`, productID,
	).Scan(&summary.Average, &summary.Count)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("query rating summary: %w", err)
	}
	return summary, nil
}
