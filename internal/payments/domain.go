package payments

import (
	"context"
	"errors"
	"math"
	"time"
)

// Status is the payment status of a purchase order, derived from amounts only.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// Record is one payment applied to a purchase order.
type Record struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Figures is the payment position of an order after applying an amount.
type Figures struct {
	AmountPaid float64 `json:"amount_paid"`
	AmountDue  float64 `json:"amount_due"`
	Status     Status  `json:"payment_status"`
}

// OrderFinancials is the slice of a purchase order the payment service needs.
type OrderFinancials struct {
	OrderID    int64
	GrandTotal float64
	AmountPaid float64
	Cancelled  bool
}

var (
	// ErrOverpayment indicates the payment would push amount paid past the
	// order grand total.
	ErrOverpayment = errors.New("payments: amount exceeds outstanding balance")
	// ErrInvalidAmount indicates a negative payment amount.
	ErrInvalidAmount = errors.New("payments: amount must not be negative")
	// ErrOrderCancelled indicates payments cannot be applied to a cancelled order.
	ErrOrderCancelled = errors.New("payments: order is cancelled")
	// ErrNotFound indicates the purchase order does not exist.
	ErrNotFound = errors.New("payments: order not found")
)

// RecordWriter persists payment records inside a caller supplied transaction.
type RecordWriter interface {
	InsertPayment(ctx context.Context, rec Record) (int64, error)
}

// ApplyAmount computes the payment figures after applying amount to the given
// paid/total position. Amounts are rounded to cents before comparison so float
// accumulation noise cannot flip a fully paid order to partial.
func ApplyAmount(grandTotal, alreadyPaid, amount float64) (Figures, error) {
	if amount < 0 {
		return Figures{}, ErrInvalidAmount
	}
	paid := round2(alreadyPaid + amount)
	total := round2(grandTotal)
	if paid > total {
		return Figures{}, ErrOverpayment
	}
	return Figures{
		AmountPaid: paid,
		AmountDue:  round2(total - paid),
		Status:     DeriveStatus(total, paid),
	}, nil
}

// DeriveStatus maps a paid/total position to a payment status.
func DeriveStatus(grandTotal, amountPaid float64) Status {
	total := round2(grandTotal)
	paid := round2(amountPaid)
	switch {
	case paid <= 0:
		return StatusPending
	case paid < total:
		return StatusPartial
	default:
		return StatusPaid
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
