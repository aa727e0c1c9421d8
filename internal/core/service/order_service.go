package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/port"
)

// OrderService drives the order lifecycle after checkout. Status updates
// and cancellation are farmer operations: the requester must own at least
// one of the order's line items.
type OrderService struct {
	store  Store
	audit  *AuditQueue
	logger *zap.Logger
}

func NewOrderService(store Store, audit *AuditQueue, logger *zap.Logger) *OrderService {
	return &OrderService{store: store, audit: audit, logger: logger}
}

// UpdateStatus moves the order forward along Pending -> Processing ->
// Shipped -> Delivered, skips allowed. Entering Delivered settles
// cash-on-delivery payments.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, requesterID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		order, err = repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.OwnsLine(requesterID) {
			return domain.ErrNotOrderFarmer
		}
		if err := order.MarkStatus(newStatus); err != nil {
			return err
		}
		return repo.SaveOrderStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Publish(order.ID, domain.EventOrderStatusChanged, string(newStatus))
	s.logger.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(newStatus)))
	return order, nil
}

// CancelOrder cancels an order still in Pending or Processing and restores
// every line's stock. Restock and the status write commit together; a
// failure of either leaves the order untouched.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, requesterID, reason string) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, repo port.Repository) error {
		var err error
		order, err = repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.OwnsLine(requesterID) {
			return domain.ErrNotOrderFarmer
		}
		if err := order.MarkCancelled(reason); err != nil {
			return err
		}
		if err := repo.ReleaseStock(ctx, order.StockLines()); err != nil {
			return fmt.Errorf("restock cancelled order %d: %w", orderID, err)
		}
		return repo.SaveOrderStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Publish(order.ID, domain.EventOrderCancelled, reason)
	s.logger.Info("order cancelled",
		zap.Int64("order_id", orderID),
		zap.String("requester_id", requesterID))
	return order, nil
}
