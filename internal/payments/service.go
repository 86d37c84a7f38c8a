package payments

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-retail/meridian/internal/shared"
)

// RepositoryPort abstracts payment persistence for the standalone payment flow.
type RepositoryPort interface {
	// ApplyTx runs fn inside a transaction with the order row locked.
	ApplyTx(ctx context.Context, orderID int64, fn func(ctx context.Context, tx TxRepository) error) error
	ListByOrder(ctx context.Context, orderID int64) ([]Record, error)
}

// TxRepository is the transactional surface used while applying a payment.
type TxRepository interface {
	RecordWriter
	GetFinancials(ctx context.Context, orderID int64) (OrderFinancials, error)
	UpdateFinancials(ctx context.Context, orderID int64, fig Figures) error
}

// Service applies standalone payments to purchase orders, independent of goods
// receipts. Payments arriving inside a receipt go through the receiving flow
// instead so they share its transaction.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
	log   *slog.Logger
}

// NewService constructs a payment service.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, log *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, log: log}
}

// ApplyInput is a standalone payment request.
type ApplyInput struct {
	OrderID int64
	Amount  float64
	Method  string
	Note    string
	ActorID int64
}

// Apply records a payment against an order and updates its payment figures.
// A zero amount is accepted and leaves the order unchanged.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (Figures, error) {
	if in.Amount < 0 {
		return Figures{}, ErrInvalidAmount
	}

	var out Figures
	err := s.repo.ApplyTx(ctx, in.OrderID, func(ctx context.Context, tx TxRepository) error {
		fin, err := tx.GetFinancials(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if fin.Cancelled {
			return ErrOrderCancelled
		}

		fig, err := ApplyAmount(fin.GrandTotal, fin.AmountPaid, in.Amount)
		if err != nil {
			return err
		}
		out = fig
		if in.Amount == 0 {
			return nil
		}

		if _, err := tx.InsertPayment(ctx, Record{
			OrderID:   in.OrderID,
			Amount:    in.Amount,
			Method:    in.Method,
			Note:      in.Note,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return tx.UpdateFinancials(ctx, in.OrderID, fig)
	})
	if err != nil {
		return Figures{}, err
	}

	if in.Amount > 0 && s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "payment.apply",
			Entity:   "purchase_order",
			EntityID: strconv.FormatInt(in.OrderID, 10),
			Meta:     map[string]any{"amount": in.Amount, "status": out.Status},
		}); err != nil {
			s.log.Warn("audit log failed", slog.Any("error", err))
		}
	}
	return out, nil
}

// History returns the payment records for an order, oldest first.
func (s *Service) History(ctx context.Context, orderID int64) ([]Record, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
