package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/platform/db"
)

// Repository is the PostgreSQL implementation of RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ApplyTx runs fn in a repeatable-read transaction. The order row is locked by
// GetFinancials via FOR UPDATE, serialising concurrent payments per order.
func (r *Repository) ApplyTx(ctx context.Context, orderID int64, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListByOrder returns payment records for an order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, amount, COALESCE(method, ''), COALESCE(note, ''), created_at
		FROM payment_records WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Amount, &rec.Method, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetFinancials(ctx context.Context, orderID int64) (OrderFinancials, error) {
	var fin OrderFinancials
	err := t.tx.QueryRow(ctx, `
		SELECT id, grand_total, amount_paid, status = 'cancelled'
		FROM purchase_orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&fin.OrderID, &fin.GrandTotal, &fin.AmountPaid, &fin.Cancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderFinancials{}, ErrNotFound
		}
		return OrderFinancials{}, err
	}
	return fin, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payment_records (order_id, amount, method, note, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), COALESCE($5, NOW()))
		RETURNING id`,
		rec.OrderID, rec.Amount, rec.Method, rec.Note, nullTime(rec.CreatedAt)).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateFinancials(ctx context.Context, orderID int64, fig Figures) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders
		SET amount_paid=$2, amount_due=$3, payment_status=$4, updated_at=NOW()
		WHERE id=$1`, orderID, fig.AmountPaid, fig.AmountDue, string(fig.Status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
