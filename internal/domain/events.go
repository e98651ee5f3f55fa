package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrderCreated  = "order.created"
	TopicOrderCanceled = "order.canceled"
)

// OrderEvent is published on order lifecycle changes. EventID is assigned
// by the publisher so consumers can deduplicate redeliveries.
type OrderEvent struct {
	EventID    string      `json:"event_id"`
	OrderID    int64       `json:"order_id"`
	CustomerID int         `json:"customer_id"`
	Status     OrderStatus `json:"status"`
	Total      float64     `json:"total"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewOrderEvent snapshots an order for publishing.
func NewOrderEvent(order *Order) OrderEvent {
	return OrderEvent{
		EventID:    uuid.New().String(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Total:      order.Total(),
		Timestamp:  time.Now().UTC(),
	}
}
