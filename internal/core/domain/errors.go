package domain

import (
	"errors"
	"fmt"
)

// Kind buckets every error the core returns into the closed set callers
// are expected to branch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindConflict
	KindTransient
)

var (
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrNegativeQuantity     = errors.New("quantity cannot be negative")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrEmptyDeliveryAddress = errors.New("delivery address is required")

	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")

	ErrNotOrderFarmer = errors.New("order contains none of the requester's products")
	ErrNotPurchased   = errors.New("only purchased products can be rated")

	ErrDuplicateRequest = errors.New("duplicate request")

	ErrStorageUnavailable = errors.New("storage unavailable")
)

type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type ProductInactiveError struct {
	ProductID int64
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product %d is not active", e.ProductID)
}

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// KindOf classifies err for handler-level mapping. Unwrapped and unknown
// errors report KindUnknown and are treated as internal failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrNegativeQuantity),
		errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrEmptyDeliveryAddress):
		return KindValidation
	case errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrCartItemNotFound),
		errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotOrderFarmer),
		errors.Is(err, ErrNotPurchased):
		return KindAuthorization
	case errors.Is(err, ErrDuplicateRequest):
		return KindConflict
	case errors.Is(err, ErrStorageUnavailable):
		return KindTransient
	}

	var (
		insufficient *InsufficientStockError
		inactive     *ProductInactiveError
		notFound     *ProductNotFoundError
		transition   *InvalidTransitionError
	)
	switch {
	case errors.As(err, &insufficient), errors.As(err, &inactive), errors.As(err, &transition):
		return KindConflict
	case errors.As(err, &notFound):
		return KindNotFound
	}
	return KindUnknown
}
