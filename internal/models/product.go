package models

import "time"

// ProductStatus represents the catalog availability of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a catalog item. Order code reads price and status at order
// creation and mutates stock only inside a settlement transaction; it
// never owns the product record.
type Product struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	Price         Money         `json:"price"`
	StockQuantity int           `json:"stock_quantity"`
	Status        ProductStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsActive reports whether the product can be ordered.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
