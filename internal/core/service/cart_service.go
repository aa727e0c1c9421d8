package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/port"
)

// CartService owns cart mutations. Every mutation commits before returning,
// so a following Snapshot always reflects it.
type CartService struct {
	store  Store
	logger *zap.Logger
}

func NewCartService(store Store, logger *zap.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

// AddItem puts quantity units of the product into the user's cart, creating
// the cart on first use. Adding a product already in the cart increments
// the existing line; the unit price stays the one captured by the first add.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *domain.Cart
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		product, err := repo.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return &domain.ProductInactiveError{ProductID: productID}
		}
		if product.QuantityAvailable < quantity {
			return &domain.InsufficientStockError{
				ProductID: productID,
				Requested: quantity,
				Available: product.QuantityAvailable,
			}
		}

		cartID, err := repo.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		item := domain.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		}
		if err := repo.AddCartItem(ctx, cartID, item); err != nil {
			return err
		}

		cart, err = repo.GetCart(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the line's quantity. Zero removes the line; negative
// quantities are rejected.
func (s *CartService) UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, domain.ErrNegativeQuantity
	}

	var cart *domain.Cart
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		current, err := repo.GetCart(ctx, userID)
		if err != nil {
			return err
		}

		if quantity == 0 {
			if err := repo.RemoveCartItem(ctx, current.ID, productID); err != nil {
				return err
			}
		} else {
			product, err := repo.GetProduct(ctx, productID)
			if err != nil {
				return err
			}
			if product.QuantityAvailable < quantity {
				return &domain.InsufficientStockError{
					ProductID: productID,
					Requested: quantity,
					Available: product.QuantityAvailable,
				}
			}
			if err := repo.SetCartItemQuantity(ctx, current.ID, productID, quantity); err != nil {
				return err
			}
		}

		cart, err = repo.GetCart(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem deletes the product's line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		current, err := repo.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if err := repo.RemoveCartItem(ctx, current.ID, productID); err != nil {
			return err
		}
		cart, err = repo.GetCart(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// Snapshot returns the user's cart with all committed writes applied. A
// user who never added anything gets an empty cart, not an error.
func (s *CartService) Snapshot(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.store.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return &domain.Cart{UserID: userID}, nil
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	return cart, nil
}
