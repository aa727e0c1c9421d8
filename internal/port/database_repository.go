package port

import (
	"context"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

// Repository is the persistence surface the core services operate on.
// Inside RunInTransaction every method runs on the same database
// transaction; outside, each call is its own implicit transaction.
type Repository interface {
	ProductRepository
	CartRepository
	OrderRepository
	RatingRepository
}

// TxRunner is the transaction coordinator. fn either commits as a whole or
// leaves no trace; transient storage failures re-run fn a bounded number of
// times before surfacing domain.ErrStorageUnavailable.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

type ProductRepository interface {
	// GetProduct returns the product or *domain.ProductNotFoundError.
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// ReserveStock decrements quantity_available for every line, or fails
	// without decrementing anything. Per-line failures are
	// *domain.InsufficientStockError, *domain.ProductInactiveError or
	// *domain.ProductNotFoundError.
	ReserveStock(ctx context.Context, lines []domain.StockLine) error

	// ReleaseStock re-adds previously reserved quantities.
	ReleaseStock(ctx context.Context, lines []domain.StockLine) error
}

type CartRepository interface {
	// GetCart loads the user's cart with its items and product names in one
	// query. A user without a cart gets domain.ErrCartNotFound.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// EnsureCart returns the user's cart ID, creating the cart if needed.
	EnsureCart(ctx context.Context, userID string) (int64, error)

	// AddCartItem inserts the line or, if the product is already in the
	// cart, increments its quantity keeping the originally captured price.
	AddCartItem(ctx context.Context, cartID int64, item domain.CartItem) error

	// SetCartItemQuantity overwrites the line quantity (> 0). Missing lines
	// report domain.ErrCartItemNotFound.
	SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error

	// RemoveCartItem deletes the line if present.
	RemoveCartItem(ctx context.Context, cartID, productID int64) error

	// ClearCartItems deletes the given consumed lines after checkout.
	ClearCartItems(ctx context.Context, cartID int64, productIDs []int64) error
}

type OrderRepository interface {
	// CreateOrder persists the order and its items, filling in the IDs.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// GetOrderForUpdate loads the order with items and owning farmer IDs in
	// one query, locking the order row for the transaction.
	GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error)

	// SaveOrderStatus writes status, payment status, timestamps and the
	// cancellation reason of an already-loaded order.
	SaveOrderStatus(ctx context.Context, order *domain.Order) error

	// HasPurchased reports whether any of the user's orders contains the
	// product, regardless of order status.
	HasPurchased(ctx context.Context, userID string, productID int64) (bool, error)

	// RecordOrderEvent appends one audit row.
	RecordOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type RatingRepository interface {
	// UpsertRating creates or overwrites the (product, user) rating.
	UpsertRating(ctx context.Context, rating domain.ProductRating) error

	// RatingSummary computes average and count from the ratings table.
	RatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, error)
}
