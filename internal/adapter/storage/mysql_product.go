package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

func (s *queries) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := s.q.QueryRowContext(ctx, `
		SELECT id, farmer_id, name, price, unit, quantity_available, is_active, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.FarmerID, &p.Name, &p.Price, &p.Unit, &p.QuantityAvailable,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

// ReserveStock decrements every line with a single conditional UPDATE per
// product. The predicate makes check and decrement one atomic statement and
// holds the row lock until the surrounding transaction ends, so concurrent
// reservations against the same product serialize instead of racing. A line
// that matches no row aborts the whole unit of work, which rolls back the
// lines already decremented.
func (s *queries) ReserveStock(ctx context.Context, lines []domain.StockLine) error {
	for _, line := range lines {
		result, err := s.q.ExecContext(ctx, `
			UPDATE products
			SET quantity_available = quantity_available - ?, updated_at = NOW()
			WHERE id = ? AND is_active = 1 AND quantity_available >= ?`,
			line.Quantity, line.ProductID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("reserve stock for product %d: %w", line.ProductID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return s.classifyReserveFailure(ctx, line)
		}
	}
	return nil
}

// classifyReserveFailure re-reads the product row to turn a zero-row UPDATE
// into the specific conflict the caller can act on.
func (s *queries) classifyReserveFailure(ctx context.Context, line domain.StockLine) error {
	var available int
	var isActive bool
	err := s.q.QueryRowContext(ctx,
		`SELECT quantity_available, is_active FROM products WHERE id = ?`, line.ProductID,
	).Scan(&available, &isActive)

	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ProductNotFoundError{ProductID: line.ProductID}
	}
	if err != nil {
		return fmt.Errorf("classify reserve failure for product %d: %w", line.ProductID, err)
	}
	if !isActive {
		return &domain.ProductInactiveError{ProductID: line.ProductID}
	}
	return &domain.InsufficientStockError{
		ProductID: line.ProductID,
		Requested: line.Quantity,
		Available: available,
	}
}

func (s *queries) ReleaseStock(ctx context.Context, lines []domain.StockLine) error {
	for _, line := range lines {
		result, err := s.q.ExecContext(ctx, `
			UPDATE products
			SET quantity_available = quantity_available + ?, updated_at = NOW()
			WHERE id = ?`,
			line.Quantity, line.ProductID,
		)
		if err != nil {
			return fmt.Errorf("release stock for product %d: %w", line.ProductID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
	}
	return nil
}
