package receiving

import "github.com/meridian-retail/meridian/internal/payments"

// ReceiveItemsRequest is one submission of delivered goods (and optionally a
// payment) against a purchase order. ClientRequestToken deduplicates retries:
// the same token submitted twice for the same order replays the original
// result instead of reprocessing.
type ReceiveItemsRequest struct {
	OrderID            int64         `json:"order_id"`
	ClientRequestToken string        `json:"client_request_token" validate:"required,max=128"`
	Items              []ReceiveItem `json:"items" validate:"required,min=1,dive"`
	Payment            *PaymentInput `json:"payment"`
}

// ReceiveItem is one line-item delta within a receipt.
type ReceiveItem struct {
	LineItemID        int64          `json:"line_item_id" validate:"required,gt=0"`
	QtyReceivedDelta  float64        `json:"quantity_received_delta" validate:"gte=0"`
	PurchasePrice     float64        `json:"purchase_price" validate:"gt=0"`
	SellingPrice      *float64       `json:"selling_price,omitempty" validate:"omitempty,gt=0"`
	TaxRate           *float64       `json:"tax_rate,omitempty" validate:"omitempty,gte=0"`
	LowStockThreshold *float64       `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Variant           map[string]any `json:"variant_descriptor,omitempty"`
}

// PaymentInput is the optional payment recorded with a receipt.
type PaymentInput struct {
	Amount float64 `json:"amount" validate:"gte=0"`
	Method string  `json:"method" validate:"omitempty,max=64"`
	Notes  string  `json:"notes" validate:"omitempty,max=500"`
}

// OrderSnapshot is the post-commit view of the order returned to the caller.
type OrderSnapshot struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus payments.Status `json:"payment_status"`
	AmountPaid    float64         `json:"amount_paid"`
	AmountDue     float64         `json:"amount_due"`
	GrandTotal    float64         `json:"grand_total"`
}

// NewProduct describes a product materialized by this receipt.
type NewProduct struct {
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	InitialStock float64 `json:"initial_stock"`
}

// UpdatedLine describes a line item whose received quantity changed.
type UpdatedLine struct {
	LineItemID  int64   `json:"line_item_id"`
	QtyReceived float64 `json:"quantity_received"`
	QtyOrdered  float64 `json:"quantity_ordered"`
}

// ReceiptResult is the summary of one committed receipt. It is also the
// payload stored against the request token and replayed on duplicates.
type ReceiptResult struct {
	Order              OrderSnapshot `json:"order"`
	NewProductsCreated []NewProduct  `json:"new_products_created"`
	UpdatedLineItems   []UpdatedLine `json:"updated_line_items"`
}
