package stockledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides read access to aggregated stock positions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OnHand returns aggregated on-hand quantities for a store. On-hand is the sum
// of batch quantities minus recorded consumption.
func (r *Repository) OnHand(ctx context.Context, storeID int64) ([]OnHandRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.product_id, b.store_id,
		       SUM(b.qty) - COALESCE((
		           SELECT SUM(c.qty) FROM stock_consumptions c
		           WHERE c.product_id = b.product_id AND c.store_id = b.store_id
		       ), 0) AS on_hand
		FROM stock_batches b
		WHERE b.store_id = $1
		GROUP BY b.product_id, b.store_id
		ORDER BY b.product_id`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OnHandRow
	for rows.Next() {
		var row OnHandRow
		if err := rows.Scan(&row.ProductID, &row.StoreID, &row.Qty); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// OnHandFor returns the on-hand quantity for one product at one store.
func (r *Repository) OnHandFor(ctx context.Context, productID, storeID int64) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE((
		    SELECT SUM(qty) FROM stock_batches WHERE product_id=$1 AND store_id=$2
		), 0) - COALESCE((
		    SELECT SUM(qty) FROM stock_consumptions WHERE product_id=$1 AND store_id=$2
		), 0)`, productID, storeID).Scan(&qty)
	return qty, err
}

// BatchesFor lists the batches for a product at a store, oldest first.
func (r *Repository) BatchesFor(ctx context.Context, productID, storeID int64) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, store_id, qty, unit_cost, COALESCE(source_line_id, 0), COALESCE(source_ref, ''), created_at
		FROM stock_batches
		WHERE product_id=$1 AND store_id=$2
		ORDER BY created_at, id`, productID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.StoreID, &b.Qty, &b.UnitCost, &b.SourceLineID, &b.SourceRef, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
