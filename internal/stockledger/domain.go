package stockledger

import (
	"errors"
	"time"
)

// Batch is a single append-only stock ledger entry. Quantity on hand for a
// product is derived by summing its batches minus recorded consumption;
// batches themselves are never mutated after insert.
type Batch struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	StoreID      int64     `json:"store_id"`
	Qty          float64   `json:"qty"`
	UnitCost     float64   `json:"unit_cost"`
	SourceLineID int64     `json:"source_line_id,omitempty"`
	SourceRef    string    `json:"source_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OnHandRow is an aggregated stock position for a product at a store.
type OnHandRow struct {
	ProductID int64   `json:"product_id"`
	StoreID   int64   `json:"store_id"`
	Qty       float64 `json:"qty"`
}

var (
	// ErrInvalidQty indicates a batch quantity that is zero or negative.
	ErrInvalidQty = errors.New("stockledger: batch qty must be positive")
	// ErrInvalidCost indicates a negative unit cost.
	ErrInvalidCost = errors.New("stockledger: unit cost must not be negative")
	// ErrMissingProduct indicates a batch without a product reference.
	ErrMissingProduct = errors.New("stockledger: product id required")
	// ErrMissingStore indicates a batch without a store reference.
	ErrMissingStore = errors.New("stockledger: store id required")
)
