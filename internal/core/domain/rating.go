package domain

import "time"

// ProductRating is one user's review of a product; unique per
// (product, user) pair, overwritten on resubmission.
type ProductRating struct {
	ID        int64
	ProductID int64
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// RatingSummary is the aggregate served on product pages.
type RatingSummary struct {
	ProductID int64   `json:"product_id"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}
