package stockledger

import "context"

// BatchWriter persists ledger batches. The receiving transaction supplies an
// implementation bound to its own database transaction so batch inserts commit
// atomically with the rest of the receipt.
type BatchWriter interface {
	InsertBatch(ctx context.Context, b Batch) (int64, error)
}

// Ledger validates and appends stock batches.
type Ledger struct{}

// NewLedger constructs a ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append validates the batch and writes it through the supplied writer. The
// returned batch carries the assigned ID.
func (l *Ledger) Append(ctx context.Context, w BatchWriter, b Batch) (Batch, error) {
	if err := validateBatch(b); err != nil {
		return Batch{}, err
	}
	id, err := w.InsertBatch(ctx, b)
	if err != nil {
		return Batch{}, err
	}
	b.ID = id
	return b, nil
}

func validateBatch(b Batch) error {
	if b.ProductID <= 0 {
		return ErrMissingProduct
	}
	if b.StoreID <= 0 {
		return ErrMissingStore
	}
	if b.Qty <= 0 {
		return ErrInvalidQty
	}
	if b.UnitCost < 0 {
		return ErrInvalidCost
	}
	return nil
}
