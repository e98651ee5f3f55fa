package domain

import (
	"math"
	"time"
)

type OrderStatus string

const (
	OrderStatusReceived   OrderStatus = "received"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// OrderItem is a single product line owned by exactly one Order. Items have
// no lifecycle of their own; they are written and removed with their order.
type OrderItem struct {
	ID        int64   `json:"id,omitempty"`
	OrderID   int64   `json:"order_id,omitempty"`
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Total is the line total, rounded to 2 decimal places. Rounding happens
// here and only here; the order total is a plain sum of line totals.
func (i OrderItem) Total() float64 {
	return round2(i.Price * float64(i.Quantity))
}

// Order is the aggregate root for a customer purchase.
//
// ID is zero until the store assigns one on first save and is never mutated
// afterwards. OrderDate defaults to the insert time and LastUpdated is set
// by the store on every write; neither is part of the inbound payload.
type Order struct {
	ID          int64       `json:"id,omitempty"`
	CustomerID  int         `json:"customer_id"`
	OrderDate   time.Time   `json:"order_date,omitzero"`
	LastUpdated time.Time   `json:"-"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"order_items"`
}

// Total sums the line totals of all items. It is derived at read time,
// never stored.
func (o *Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Total()
	}
	return total
}

// Saved reports whether the order has been persisted at least once.
func (o *Order) Saved() bool {
	return o.ID != 0
}

// Cancel moves the order to the canceled status. Any prior status is
// allowed, including shipped and delivered, and canceling twice is a no-op.
func (o *Order) Cancel() {
	o.Status = OrderStatusCanceled
}

// Deserialize populates the order from an untyped decoded JSON payload.
// customer_id and status are required; order_items is optional and each
// entry must carry product_id, name, quantity and price. The receiver is
// mutated in place and nothing is persisted.
//
// Failures are reported as *ValidationError with a machine-readable cause.
func (o *Order) Deserialize(data any) error {
	payload, ok := data.(map[string]any)
	if !ok {
		return errBadPayload()
	}

	customerID, err := requireInt(payload, "customer_id")
	if err != nil {
		return err
	}

	status, err := requireString(payload, "status")
	if err != nil {
		return err
	}

	items, err := deserializeItems(payload)
	if err != nil {
		return err
	}

	o.CustomerID = customerID
	o.Status = OrderStatus(status)
	o.Items = append(o.Items, items...)
	return nil
}

func deserializeItems(payload map[string]any) ([]OrderItem, error) {
	raw, ok := payload["order_items"]
	if !ok || raw == nil {
		return nil, nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, errBadPayload()
	}

	items := make([]OrderItem, 0, len(entries))
	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, errBadPayload()
		}

		productID, err := requireInt(fields, "product_id")
		if err != nil {
			return nil, err
		}
		name, err := requireString(fields, "name")
		if err != nil {
			return nil, err
		}
		quantity, err := requireInt(fields, "quantity")
		if err != nil {
			return nil, err
		}
		price, err := requireFloat(fields, "price")
		if err != nil {
			return nil, err
		}

		items = append(items, OrderItem{
			ProductID: productID,
			Name:      name,
			Quantity:  quantity,
			Price:     price,
		})
	}

	return items, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
