package receiving

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/payments"
	"github.com/meridian-retail/meridian/internal/platform/db"
	"github.com/meridian-retail/meridian/internal/stockledger"
)

// Repository is the PostgreSQL implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in a repeatable-read transaction. Serialization failures
// from the database surface unchanged; the service treats them as transient.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetOrder loads the order with its lines without locking.
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (Order, error) {
	return loadOrder(ctx, r.pool, orderID, false)
}

// DeleteExpiredTokens removes consumed receipt tokens created before the
// cutoff. Replays after that point reprocess the request, which is safe only
// because the order state then rejects it (over-receipt or terminal status).
func (r *Repository) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM receipt_tokens WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error) {
	return loadOrder(ctx, t.tx, orderID, true)
}

func (t *txRepo) LookupReceiptToken(ctx context.Context, orderID int64, token string) ([]byte, error) {
	var result []byte
	err := t.tx.QueryRow(ctx, `SELECT result FROM receipt_tokens WHERE order_id=$1 AND token=$2`, orderID, token).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func (t *txRepo) SaveReceiptToken(ctx context.Context, orderID int64, token string, result []byte) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO receipt_tokens (order_id, token, result, created_at)
		VALUES ($1, $2, $3, NOW())`, orderID, token, result)
	if db.IsUniqueViolation(err) {
		// Another transaction consumed the token between our lookup and this
		// insert; retrying replays the stored result.
		return ErrWriteConflict
	}
	return err
}

func (t *txRepo) UpdateLine(ctx context.Context, line LineItem) error {
	var variant []byte
	if line.Variant != nil {
		b, err := json.Marshal(line.Variant)
		if err != nil {
			return err
		}
		variant = b
	}
	ct, err := t.tx.Exec(ctx, `
		UPDATE purchase_order_lines
		SET qty_received=$2, purchase_price=$3, selling_price=$4, tax_rate=$5,
		    low_stock_threshold=$6, variant=COALESCE($7, variant), updated_at=NOW()
		WHERE id=$1`,
		line.ID, line.QtyReceived, line.PurchasePrice, line.SellingPrice,
		line.TaxRate, line.LowStockThreshold, variant)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *txRepo) UpdateOrderFinancials(ctx context.Context, orderID int64, status OrderStatus, fig payments.Figures) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status=$2, payment_status=$3, amount_paid=$4, amount_due=$5, updated_at=NOW()
		WHERE id=$1`,
		orderID, string(status), string(fig.Status), fig.AmountPaid, fig.AmountDue)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *txRepo) CreateProduct(ctx context.Context, rec ProductRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (name, sku, unit, purchase_price, selling_price, tax_rate, low_stock_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`,
		rec.Name, rec.SKU, rec.Unit, rec.PurchasePrice, rec.SellingPrice, rec.TaxRate, rec.LowStockThreshold).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateSKU
	}
	return id, err
}

func (t *txRepo) SetLineProduct(ctx context.Context, lineID, productID int64) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE purchase_order_lines SET product_id=$2, updated_at=NOW()
		WHERE id=$1 AND product_id IS NULL`, lineID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("receiving: line already resolved")
	}
	return nil
}

func (t *txRepo) SKUExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku=$1)`, sku).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertBatch(ctx context.Context, b stockledger.Batch) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_batches (product_id, store_id, qty, unit_cost, source_line_id, source_ref, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, ''), NOW())
		RETURNING id`,
		b.ProductID, b.StoreID, b.Qty, b.UnitCost, b.SourceLineID, b.SourceRef).Scan(&id)
	return id, err
}

func (t *txRepo) InsertPayment(ctx context.Context, rec payments.Record) (int64, error) {
	var id int64
	var created any
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payment_records (order_id, amount, method, note, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), COALESCE($5, NOW()))
		RETURNING id`,
		rec.OrderID, rec.Amount, rec.Method, rec.Note, created).Scan(&id)
	return id, err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadOrder(ctx context.Context, q queryer, orderID int64, lock bool) (Order, error) {
	orderSQL := `
		SELECT id, invoice_number, supplier_id, store_id, grand_total, amount_paid, amount_due,
		       status, payment_status, ordered_at
		FROM purchase_orders WHERE id=$1`
	if lock {
		orderSQL += ` FOR UPDATE`
	}

	var o Order
	err := q.QueryRow(ctx, orderSQL, orderID).Scan(
		&o.ID, &o.InvoiceNumber, &o.SupplierID, &o.StoreID, &o.GrandTotal,
		&o.AmountPaid, &o.AmountDue, &o.Status, &o.PaymentStatus, &o.OrderedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, COALESCE(product_id, 0), name, unit, qty_ordered, qty_received,
		       purchase_price, COALESCE(selling_price, 0), COALESCE(tax_rate, 0),
		       COALESCE(low_stock_threshold, 0), variant
		FROM purchase_order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var li LineItem
		var variant []byte
		if err := rows.Scan(&li.ID, &li.OrderID, &li.ProductID, &li.Name, &li.Unit,
			&li.QtyOrdered, &li.QtyReceived, &li.PurchasePrice, &li.SellingPrice,
			&li.TaxRate, &li.LowStockThreshold, &variant); err != nil {
			return Order{}, err
		}
		if len(variant) > 0 {
			if err := json.Unmarshal(variant, &li.Variant); err != nil {
				return Order{}, err
			}
		}
		o.Lines = append(o.Lines, li)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}
	return o, nil
}
