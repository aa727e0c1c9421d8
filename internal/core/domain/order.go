package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusPaid      PaymentStatus = "Paid"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusCancelled PaymentStatus = "Cancelled"
)

const PaymentMethodCOD = "Cash on Delivery"

type Order struct {
	ID                 int64
	OrderNumber        string
	CustomerID         string
	Items              []OrderItem
	TotalAmount        decimal.Decimal
	Status             OrderStatus
	PaymentMethod      string
	PaymentStatus      PaymentStatus
	DeliveryAddress    string
	CancellationReason string
	OrderDate          time.Time
	DeliveryDate       *time.Time
	UpdatedAt          time.Time
}

// OrderItem is an immutable snapshot of a cart line at checkout time.
// FarmerID is denormalized from the product row when the order is loaded,
// so ownership checks never traverse a hidden object graph.
type OrderItem struct {
	ID         int64
	OrderID    int64
	ProductID  int64
	FarmerID   string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// NewOrderFromCart snapshots the cart into an order. Prices and quantities
// are copied, never re-read from the catalog.
func NewOrderFromCart(cart *Cart, deliveryAddress, paymentMethod string) (*Order, error) {
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(deliveryAddress) == "" {
		return nil, ErrEmptyDeliveryAddress
	}
	if paymentMethod == "" {
		paymentMethod = PaymentMethodCOD
	}

	now := time.Now().UTC()
	order := &Order{
		OrderNumber:     NewOrderNumber(now),
		CustomerID:      cart.UserID,
		TotalAmount:     decimal.Zero,
		Status:          OrderStatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   PaymentStatusPending,
		DeliveryAddress: deliveryAddress,
		OrderDate:       now,
		UpdatedAt:       now,
	}
	for _, item := range cart.Items {
		lineTotal := item.LineTotal()
		order.Items = append(order.Items, OrderItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: lineTotal,
		})
		order.TotalAmount = order.TotalAmount.Add(lineTotal)
	}
	return order, nil
}

// NewOrderNumber builds a human-readable order number with a uuid-derived
// suffix. 48 bits of entropy keep the collision probability negligible at
// marketplace volumes; the unique index on order_number backstops it.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}

// statusRank orders the forward path Pending -> Processing -> Shipped ->
// Delivered. Cancelled has no rank; it is reached only through CanCancel.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// CanTransitionTo reports whether a farmer-driven status update from the
// current status to next is allowed. Any forward move along the path is
// valid, skips included, so a farmer may mark a Processing order Delivered
// directly. Backward moves and moves out of Delivered or Cancelled are
// rejected. Cancellation goes through CanCancel.
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	from, ok := statusRank[o.Status]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// MarkStatus applies a validated status transition. Entering Delivered
// stamps the delivery date and settles cash-on-delivery payments; no other
// transition touches the payment status.
func (o *Order) MarkStatus(next OrderStatus) error {
	if !o.CanTransitionTo(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	if next == OrderStatusDelivered {
		now := time.Now().UTC()
		o.DeliveryDate = &now
		if o.PaymentMethod == PaymentMethodCOD {
			o.PaymentStatus = PaymentStatusPaid
		}
	}
	o.touch()
	return nil
}

// MarkCancelled records the cancellation. The caller restocks the order's
// lines in the same transaction.
func (o *Order) MarkCancelled(reason string) error {
	if !o.CanCancel() {
		return &InvalidTransitionError{From: o.Status, To: OrderStatusCancelled}
	}
	o.Status = OrderStatusCancelled
	o.CancellationReason = reason
	o.touch()
	return nil
}

// OwnsLine reports whether the farmer owns at least one line item.
func (o *Order) OwnsLine(farmerID string) bool {
	for _, item := range o.Items {
		if item.FarmerID == farmerID {
			return true
		}
	}
	return false
}

// StockLines maps order items to the restock request used by cancellation.
func (o *Order) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
