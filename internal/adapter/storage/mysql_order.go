package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

func (s *queries) CreateOrder(ctx context.Context, order *domain.Order) error {
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (order_number, customer_id, total_amount, status, payment_method,
			payment_status, delivery_address, order_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderNumber, order.CustomerID, order.TotalAmount, order.Status,
		order.PaymentMethod, order.PaymentStatus, order.DeliveryAddress,
		order.OrderDate, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	order.ID = orderID

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = orderID
		itemResult, err := s.q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?)`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		item.ID, _ = itemResult.LastInsertId()
	}
	return nil
}

// GetOrderForUpdate locks the order row and loads its items joined with the
// owning farmer in one pass, so authorization and restock never trigger
// extra per-item lookups.
func (s *queries) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	var o domain.Order
	var reason sql.NullString
	var delivery, updated sql.NullTime
	err := s.q.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, total_amount, status, payment_method,
			payment_status, delivery_address, cancellation_reason, order_date, delivery_date, updated_at
		FROM orders WHERE id = ? FOR UPDATE`, orderID,
	).Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.Status,
		&o.PaymentMethod, &o.PaymentStatus, &o.DeliveryAddress, &reason,
		&o.OrderDate, &delivery, &updated)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if reason.Valid {
		o.CancellationReason = reason.String
	}
	if delivery.Valid {
		o.DeliveryDate = &delivery.Time
	}
	if updated.Valid {
		o.UpdatedAt = updated.Time
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.farmer_id, oi.quantity, oi.unit_price, oi.total_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.FarmerID,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return &o, nil
}

func (s *queries) SaveOrderStatus(ctx context.Context, order *domain.Order) error {
	var reason any
	if order.CancellationReason != "" {
		reason = order.CancellationReason
	}
	var delivery any
	if order.DeliveryDate != nil {
		delivery = *order.DeliveryDate
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, cancellation_reason = ?, delivery_date = ?, updated_at = ?
		WHERE id = ?`,
		order.Status, order.PaymentStatus, reason, delivery, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("save order status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *queries) HasPurchased(ctx context.Context, userID string, productID int64) (bool, error) {
	var exists int
	err := s.q.QueryRowContext(ctx, `
		SELECT 1 FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE o.customer_id = ? AND oi.product_id = ?
		LIMIT 1`, userID, productID,
	).Scan(&exists)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query purchase history: %w", err)
	}
	return true, nil
}

func (s *queries) RecordOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO order_events (order_id, event_type, detail, created_at)
		VALUES (?, ?, ?, ?)`,
		event.OrderID, event.Type, event.Detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record order event: %w", err)
	}
	return nil
}
