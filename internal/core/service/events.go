package service

import (
	"time"

	"github.com/agrobazaar/marketplace/internal/core/domain"
)

// AuditQueue is a bounded queue of order events drained by background
// workers into the order_events table, outside the request transaction.
type AuditQueue struct {
	events chan domain.OrderEvent
}

func NewAuditQueue(size int) *AuditQueue {
	return &AuditQueue{events: make(chan domain.OrderEvent, size)}
}

// Publish enqueues the event, blocking while the queue is full so events
// are delivered rather than dropped.
func (q *AuditQueue) Publish(orderID int64, eventType domain.OrderEventType, detail string) {
	q.events <- domain.OrderEvent{
		OrderID:   orderID,
		Type:      eventType,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

func (q *AuditQueue) Events() <-chan domain.OrderEvent {
	return q.events
}

func (q *AuditQueue) Close() {
	close(q.events)
}
