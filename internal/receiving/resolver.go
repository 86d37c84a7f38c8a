package receiving

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProductRecord carries the fields a new product row is created from.
type ProductRecord struct {
	Name              string
	SKU               string
	Unit              string
	PurchasePrice     float64
	SellingPrice      float64
	TaxRate           float64
	LowStockThreshold float64
}

// ProductStore is the transactional product surface the resolver writes
// through. CreateProduct returns ErrDuplicateSKU on a SKU collision.
type ProductStore interface {
	CreateProduct(ctx context.Context, rec ProductRecord) (int64, error)
	SetLineProduct(ctx context.Context, lineID, productID int64) error
	SKUExists(ctx context.Context, sku string) (bool, error)
}

// ResolvedTarget is the outcome of resolving one line item.
type ResolvedTarget struct {
	ProductID int64
	Created   bool
	SKU       string
}

// Resolver materializes products for unresolved line items. The transition is
// one-way and idempotent within a transaction: resolving the same line twice
// returns the product created the first time.
type Resolver struct {
	store    ProductStore
	resolved map[int64]ResolvedTarget
}

// NewResolver constructs a resolver scoped to one receipt transaction.
func NewResolver(store ProductStore) *Resolver {
	return &Resolver{store: store, resolved: make(map[int64]ResolvedTarget)}
}

// Resolve returns the product identity for a line item, creating the product
// and rewriting the line when it is still unresolved.
func (r *Resolver) Resolve(ctx context.Context, line *LineItem) (ResolvedTarget, error) {
	switch target := line.Target().(type) {
	case ExistingProduct:
		return ResolvedTarget{ProductID: target.ProductID}, nil
	case PendingProduct:
		if prev, ok := r.resolved[line.ID]; ok {
			line.ProductID = prev.ProductID
			return prev, nil
		}
		snap := target.Snapshot
		if snap.PurchasePrice <= 0 || snap.SellingPrice <= 0 {
			return ResolvedTarget{}, fmt.Errorf("%w: line %d", ErrMissingPrice, line.ID)
		}

		sku, err := r.generateSKU(ctx, line)
		if err != nil {
			return ResolvedTarget{}, err
		}
		productID, err := r.store.CreateProduct(ctx, ProductRecord{
			Name:              snap.Name,
			SKU:               sku,
			Unit:              snap.Unit,
			PurchasePrice:     snap.PurchasePrice,
			SellingPrice:      snap.SellingPrice,
			TaxRate:           snap.TaxRate,
			LowStockThreshold: snap.LowStockThreshold,
		})
		if err != nil {
			return ResolvedTarget{}, err
		}
		if err := r.store.SetLineProduct(ctx, line.ID, productID); err != nil {
			return ResolvedTarget{}, err
		}

		out := ResolvedTarget{ProductID: productID, Created: true, SKU: sku}
		r.resolved[line.ID] = out
		line.ProductID = productID
		return out, nil
	default:
		return ResolvedTarget{}, fmt.Errorf("receiving: unknown line target %T", target)
	}
}

// generateSKU derives a SKU from the order and line identity. On collision it
// retries once with a random suffix before giving up.
func (r *Resolver) generateSKU(ctx context.Context, line *LineItem) (string, error) {
	sku := fmt.Sprintf("PO%d-L%d", line.OrderID, line.ID)
	exists, err := r.store.SKUExists(ctx, sku)
	if err != nil {
		return "", err
	}
	if !exists {
		return sku, nil
	}
	sku = fmt.Sprintf("%s-%s", sku, uuid.NewString()[:8])
	exists, err = r.store.SKUExists(ctx, sku)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSKU, sku)
	}
	return sku, nil
}
