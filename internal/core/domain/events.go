package domain

import "time"

type OrderEventType string

const (
	EventOrderPlaced        OrderEventType = "order_placed"
	EventOrderStatusChanged OrderEventType = "order_status_changed"
	EventOrderCancelled     OrderEventType = "order_cancelled"
)

// OrderEvent is an audit record queued after a committed order mutation and
// persisted by background workers outside the request transaction.
type OrderEvent struct {
	OrderID   int64
	Type      OrderEventType
	Detail    string
	CreatedAt time.Time
}
