package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the stock projection from the batch ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StockRows returns the on-hand position per product for a store. Products
// without any batch at the store are omitted.
func (r *Repository) StockRows(ctx context.Context, storeID int64) ([]StockRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.sku, p.unit, b.store_id,
		       SUM(b.qty) - COALESCE((
		           SELECT SUM(c.qty) FROM stock_consumptions c
		           WHERE c.product_id = p.id AND c.store_id = b.store_id
		       ), 0) AS on_hand,
		       p.low_stock_threshold,
		       SUM(b.qty * b.unit_cost) / NULLIF(SUM(b.qty), 0) AS avg_unit_cost
		FROM stock_batches b
		JOIN products p ON p.id = b.product_id
		WHERE b.store_id = $1
		GROUP BY p.id, p.name, p.sku, p.unit, b.store_id, p.low_stock_threshold
		ORDER BY p.name, p.id`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockRow
	for rows.Next() {
		var row StockRow
		var avg *float64
		if err := rows.Scan(&row.ProductID, &row.Name, &row.SKU, &row.Unit, &row.StoreID,
			&row.OnHand, &row.LowStockThreshold, &avg); err != nil {
			return nil, err
		}
		if avg != nil {
			row.AvgUnitCost = *avg
		}
		row.Class = Classify(row.OnHand, row.LowStockThreshold)
		out = append(out, row)
	}
	return out, rows.Err()
}

// StoreIDs lists the stores that have ledger activity.
func (r *Repository) StoreIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT store_id FROM stock_batches ORDER BY store_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
