package products

import (
	"errors"
	"time"
)

// Product represents a catalog product. Records are created either ahead of
// time or lazily by the receiving flow when a purchase-order line arrives for
// a product that does not exist yet.
type Product struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	SKU               string    `json:"sku"`
	Unit              string    `json:"unit"`
	PurchasePrice     float64   `json:"purchase_price"`
	SellingPrice      float64   `json:"selling_price"`
	TaxRate           float64   `json:"tax_rate"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("products: not found")
