package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

func (s *queries) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.quantity, ci.unit_price, ci.added_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.added_at, ci.id`, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.AddedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return &cart, nil
}

func (s *queries) EnsureCart(ctx context.Context, userID string) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), updated_at = NOW()`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("ensure cart: %w", err)
	}
	cartID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ensure cart id: %w", err)
	}
	return cartID, nil
}

// AddCartItem upserts on the (cart_id, product_id) unique key: a repeated
// add increments the quantity and keeps the unit price captured by the
// first add.
func (s *queries) AddCartItem(ctx context.Context, cartID int64, item domain.CartItem) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price, added_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = NOW()`,
		cartID, item.ProductID, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (s *queries) SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?, updated_at = NOW()
		WHERE cart_id = ? AND product_id = ?`,
		quantity, cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing line from an unchanged quantity.
		var exists int
		err := s.q.QueryRowContext(ctx,
			`SELECT 1 FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCartItemNotFound
		}
		if err != nil {
			return fmt.Errorf("check cart item: %w", err)
		}
	}
	return nil
}

func (s *queries) RemoveCartItem(ctx context.Context, cartID, productID int64) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (s *queries) ClearCartItems(ctx context.Context, cartID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(productIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(productIDs)+1)
	args = append(args, cartID)
	for _, id := range productIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM cart_items WHERE cart_id = ? AND product_id IN (%s)`, placeholders)
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}
