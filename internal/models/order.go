package models

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order is a customer order. Total and the per-item unit prices are fixed
// at creation time; later catalog price changes never affect an existing
// order.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Items     []OrderItem `json:"items"`
	Total     Money       `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order. It references the product by id and
// carries a snapshot of the unit price and display name taken when the
// order was created.
type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	Total       Money  `json:"total"`
}

// CalculateTotal recomputes the order total from its item totals.
// Called once at creation; settled orders are never recalculated.
func (o *Order) CalculateTotal() {
	var total Money
	for i, item := range o.Items {
		if i == 0 {
			total.Currency = item.Total.Currency
		}
		total = total.Add(item.Total)
	}
	o.Total = total
}

// IsTerminal reports whether the order has left the pending state.
// Terminal orders never transition again.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusCanceled
}
