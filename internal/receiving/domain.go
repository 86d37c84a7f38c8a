package receiving

import (
	"time"

	"github.com/meridian-retail/meridian/internal/payments"
)

// OrderStatus is the purchase-order lifecycle status.
type OrderStatus string

const (
	StatusDraft             OrderStatus = "draft"
	StatusOrdered           OrderStatus = "ordered"
	StatusPartiallyReceived OrderStatus = "partially_received"
	StatusReceived          OrderStatus = "received"
	StatusCancelled         OrderStatus = "cancelled"
)

// Order is the purchase-order aggregate as seen by the receiving flow. The
// grand total is fixed at order time; amount paid, amount due and both status
// fields are mutated only here and by cancellation.
type Order struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	SupplierID    int64           `json:"supplier_id"`
	StoreID       int64           `json:"store_id"`
	GrandTotal    float64         `json:"grand_total"`
	AmountPaid    float64         `json:"amount_paid"`
	AmountDue     float64         `json:"amount_due"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus payments.Status `json:"payment_status"`
	OrderedAt     time.Time       `json:"ordered_at"`
	Lines         []LineItem      `json:"lines"`
}

// LineItem is one ordered product entry. QtyOrdered never changes after order
// time; QtyReceived only grows and never exceeds QtyOrdered. ProductID zero
// means the product does not exist yet and is materialized on first receipt.
type LineItem struct {
	ID                int64          `json:"id"`
	OrderID           int64          `json:"order_id"`
	ProductID         int64          `json:"product_id,omitempty"`
	Name              string         `json:"name"`
	Unit              string         `json:"unit"`
	QtyOrdered        float64        `json:"quantity_ordered"`
	QtyReceived       float64        `json:"quantity_received"`
	PurchasePrice     float64        `json:"purchase_price"`
	SellingPrice      float64        `json:"selling_price"`
	TaxRate           float64        `json:"tax_rate"`
	LowStockThreshold float64        `json:"low_stock_threshold"`
	Variant           map[string]any `json:"variant_descriptor,omitempty"`
}

// LineItemTarget is the resolution state of a line item: either it points at
// an existing catalog product, or it carries the snapshot a product will be
// created from on first receipt.
type LineItemTarget interface {
	isTarget()
}

// ExistingProduct marks a line already bound to a catalog product.
type ExistingProduct struct {
	ProductID int64
}

// PendingProduct marks a line whose product is created on receipt.
type PendingProduct struct {
	Snapshot ProductSnapshot
}

// ProductSnapshot carries the fields a new product is created from.
type ProductSnapshot struct {
	Name              string
	Unit              string
	PurchasePrice     float64
	SellingPrice      float64
	TaxRate           float64
	LowStockThreshold float64
}

func (ExistingProduct) isTarget() {}
func (PendingProduct) isTarget()  {}

// Target reports the resolution state of the line.
func (li LineItem) Target() LineItemTarget {
	if li.ProductID > 0 {
		return ExistingProduct{ProductID: li.ProductID}
	}
	return PendingProduct{Snapshot: ProductSnapshot{
		Name:              li.Name,
		Unit:              li.Unit,
		PurchasePrice:     li.PurchasePrice,
		SellingPrice:      li.SellingPrice,
		TaxRate:           li.TaxRate,
		LowStockThreshold: li.LowStockThreshold,
	}}
}

// Resolved reports whether the line is bound to a catalog product.
func (li LineItem) Resolved() bool {
	_, ok := li.Target().(ExistingProduct)
	return ok
}
