package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/port"
)

// CheckoutService turns a cart into a durable order: stock reservation,
// order snapshot and cart clearing commit as one transaction or not at all.
type CheckoutService struct {
	store  Store
	cache  port.CacheRepository
	audit  *AuditQueue
	logger *zap.Logger
}

func NewCheckoutService(store Store, cache port.CacheRepository, audit *AuditQueue, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{store: store, cache: cache, audit: audit, logger: logger}
}

// PlaceOrder places an order for everything in the user's cart. requestID,
// when non-empty, guards against duplicate submissions of the same checkout;
// the guard is released on failure so the client may retry.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID, deliveryAddress, paymentMethod, requestID string) (*domain.Order, error) {
	if requestID != "" {
		ok, err := s.cache.SetIdempotency(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	order, err := s.placeOrder(ctx, userID, deliveryAddress, paymentMethod)
	if err != nil {
		if requestID != "" {
			if releaseErr := s.cache.ReleaseIdempotency(ctx, requestID); releaseErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("request_id", requestID), zap.Error(releaseErr))
			}
		}
		return nil, err
	}

	s.audit.Publish(order.ID, domain.EventOrderPlaced, order.OrderNumber)
	s.logger.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	return order, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, userID, deliveryAddress, paymentMethod string) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		cart, err := repo.GetCart(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrCartNotFound) {
				return domain.ErrEmptyCart
			}
			return err
		}

		order, err = domain.NewOrderFromCart(cart, deliveryAddress, paymentMethod)
		if err != nil {
			return err
		}

		// Reserving before the insert keeps the row locks ordered the same
		// way cancellation takes them.
		if err := repo.ReserveStock(ctx, cart.StockLines()); err != nil {
			return err
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		consumed := make([]int64, 0, len(cart.Items))
		for _, item := range cart.Items {
			consumed = append(consumed, item.ProductID)
		}
		return repo.ClearCartItems(ctx, cart.ID, consumed)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
