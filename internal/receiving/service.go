package receiving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-retail/meridian/internal/payments"
	"github.com/meridian-retail/meridian/internal/platform/db"
	"github.com/meridian-retail/meridian/internal/shared"
	"github.com/meridian-retail/meridian/internal/stockledger"
)

// RepositoryPort abstracts receipt persistence. WithTx must run fn inside a
// transaction whose isolation is strong enough that a lost race surfaces as
// ErrWriteConflict or a database serialization failure.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetOrder(ctx context.Context, orderID int64) (Order, error)
}

// TxRepository is the transactional surface of one receipt. It embeds the
// collaborator write ports so product creation, batch appends and payment
// records commit atomically with the order mutation.
type TxRepository interface {
	ProductStore
	stockledger.BatchWriter
	payments.RecordWriter

	// GetOrderForUpdate loads the order with its lines under an exclusive
	// per-order lock.
	GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error)
	// LookupReceiptToken returns the stored result for a consumed token, or
	// nil when the token is fresh.
	LookupReceiptToken(ctx context.Context, orderID int64, token string) ([]byte, error)
	SaveReceiptToken(ctx context.Context, orderID int64, token string, result []byte) error
	UpdateLine(ctx context.Context, line LineItem) error
	UpdateOrderFinancials(ctx context.Context, orderID int64, status OrderStatus, fig payments.Figures) error
}

// Options tunes the receipt processor.
type Options struct {
	// DefaultMarkup is the selling-price multiplier applied when an
	// existing-product line arrives without a selling price.
	DefaultMarkup float64
	// MaxConflictRetries bounds the transparent retries on write conflicts
	// before ErrConcurrentModification is surfaced.
	MaxConflictRetries int
}

// Service is the receipt processor: it validates a receipt request against
// the order's current state and applies it as one atomic unit.
type Service struct {
	repo   RepositoryPort
	ledger *stockledger.Ledger
	audit  *shared.AuditLogger
	log    *slog.Logger
	opts   Options
}

// NewService constructs the receipt processor.
func NewService(repo RepositoryPort, ledger *stockledger.Ledger, audit *shared.AuditLogger, log *slog.Logger, opts Options) *Service {
	if opts.DefaultMarkup < 1 {
		opts.DefaultMarkup = 1.30
	}
	if opts.MaxConflictRetries < 1 {
		opts.MaxConflictRetries = 3
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, log: log, opts: opts}
}

// Receive applies a receipt request. Validation failures are reported with a
// reason per offending line and leave no state behind; transient write
// conflicts are retried transparently up to the configured bound.
func (s *Service) Receive(ctx context.Context, req ReceiveItemsRequest) (ReceiptResult, error) {
	if req.ClientRequestToken == "" {
		return ReceiptResult{}, &ValidationError{Reason: "client request token is required"}
	}
	if len(req.Items) == 0 {
		return ReceiptResult{}, &ValidationError{Reason: "receipt must contain at least one item"}
	}

	var (
		result   ReceiptResult
		replayed bool
	)
	var err error
	for attempt := 0; attempt < s.opts.MaxConflictRetries; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return s.receiveTx(ctx, tx, req, &result, &replayed)
		})
		if err == nil {
			break
		}
		if !isTransient(err) {
			return ReceiptResult{}, err
		}
		s.log.Warn("receipt conflict, retrying",
			slog.Int64("order_id", req.OrderID),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	if err != nil {
		if isTransient(err) {
			return ReceiptResult{}, ErrConcurrentModification
		}
		return ReceiptResult{}, err
	}

	if !replayed {
		s.recordAudit(ctx, req, result)
	}
	return result, nil
}

// GetOrder returns the order aggregate for read-only display.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

func (s *Service) receiveTx(ctx context.Context, tx TxRepository, req ReceiveItemsRequest, out *ReceiptResult, replayed *bool) error {
	order, err := tx.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		return err
	}

	stored, err := tx.LookupReceiptToken(ctx, order.ID, req.ClientRequestToken)
	if err != nil {
		return err
	}
	if stored != nil {
		if err := json.Unmarshal(stored, out); err != nil {
			return fmt.Errorf("decode stored receipt result: %w", err)
		}
		*replayed = true
		return nil
	}

	switch order.Status {
	case StatusCancelled:
		return fmt.Errorf("%w: order is cancelled", ErrTerminalState)
	case StatusReceived:
		return fmt.Errorf("%w: order is fully received", ErrTerminalState)
	case StatusDraft:
		return &ValidationError{Reason: "order has not been confirmed yet"}
	}

	if err := validateReceive(order, req); err != nil {
		return err
	}

	// All validation passed; every write below must succeed or the whole
	// transaction rolls back.
	resolver := NewResolver(tx)
	receiptRef := receiptSourceRef(order.ID, req.ClientRequestToken)

	var (
		newProducts  []NewProduct
		updatedLines []UpdatedLine
	)
	for _, item := range req.Items {
		line := findLine(order.Lines, item.LineItemID)
		applySnapshot(line, item, s.opts.DefaultMarkup)

		target, err := resolver.Resolve(ctx, line)
		if err != nil {
			return err
		}
		if target.Created {
			newProducts = append(newProducts, NewProduct{
				ProductID:    target.ProductID,
				Name:         line.Name,
				SKU:          target.SKU,
				InitialStock: item.QtyReceivedDelta,
			})
		}

		if item.QtyReceivedDelta > 0 {
			line.QtyReceived += item.QtyReceivedDelta
			if _, err := s.ledger.Append(ctx, tx, stockledger.Batch{
				ProductID:    line.ProductID,
				StoreID:      order.StoreID,
				Qty:          item.QtyReceivedDelta,
				UnitCost:     item.PurchasePrice,
				SourceLineID: line.ID,
				SourceRef:    receiptRef,
			}); err != nil {
				return err
			}
			updatedLines = append(updatedLines, UpdatedLine{
				LineItemID:  line.ID,
				QtyReceived: line.QtyReceived,
				QtyOrdered:  line.QtyOrdered,
			})
		}

		if err := tx.UpdateLine(ctx, *line); err != nil {
			return err
		}
	}

	amount := 0.0
	if req.Payment != nil {
		amount = req.Payment.Amount
	}
	fig, err := payments.ApplyAmount(order.GrandTotal, order.AmountPaid, amount)
	if err != nil {
		return err
	}
	if amount > 0 {
		if _, err := tx.InsertPayment(ctx, payments.Record{
			OrderID:   order.ID,
			Amount:    amount,
			Method:    req.Payment.Method,
			Note:      req.Payment.Notes,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
	}

	status, _ := RecomputeStatus(order.Status, order.Lines)
	if err := tx.UpdateOrderFinancials(ctx, order.ID, status, fig); err != nil {
		return err
	}

	*out = ReceiptResult{
		Order: OrderSnapshot{
			ID:            order.ID,
			InvoiceNumber: order.InvoiceNumber,
			Status:        status,
			PaymentStatus: fig.Status,
			AmountPaid:    fig.AmountPaid,
			AmountDue:     fig.AmountDue,
			GrandTotal:    order.GrandTotal,
		},
		NewProductsCreated: newProducts,
		UpdatedLineItems:   updatedLines,
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode receipt result: %w", err)
	}
	return tx.SaveReceiptToken(ctx, order.ID, req.ClientRequestToken, payload)
}

// applySnapshot copies the request's snapshot fields onto the line. An
// existing-product line arriving without a selling price gets the configured
// default markup over the purchase price; new-product lines already passed
// the mandatory-price check.
func applySnapshot(line *LineItem, item ReceiveItem, markup float64) {
	line.PurchasePrice = item.PurchasePrice
	switch {
	case item.SellingPrice != nil:
		line.SellingPrice = *item.SellingPrice
	case line.SellingPrice <= 0 && line.Resolved():
		line.SellingPrice = item.PurchasePrice * markup
	}
	if item.TaxRate != nil {
		line.TaxRate = *item.TaxRate
	}
	if item.LowStockThreshold != nil {
		line.LowStockThreshold = *item.LowStockThreshold
	}
	if item.Variant != nil {
		line.Variant = item.Variant
	}
}

func findLine(lines []LineItem, id int64) *LineItem {
	for i := range lines {
		if lines[i].ID == id {
			return &lines[i]
		}
	}
	return nil
}

// receiptSourceRef derives a stable reference for the batches written by one
// receipt, so replays and audits can correlate them.
func receiptSourceRef(orderID int64, token string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("receipt:%d:%s", orderID, token)))
	return "receipt:" + id.String()
}

func isTransient(err error) bool {
	return errors.Is(err, ErrWriteConflict) || db.IsSerializationFailure(err)
}

func (s *Service) recordAudit(ctx context.Context, req ReceiveItemsRequest, result ReceiptResult) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"token":        req.ClientRequestToken,
		"lines":        len(result.UpdatedLineItems),
		"new_products": len(result.NewProductsCreated),
		"status":       result.Order.Status,
	}
	if req.Payment != nil && req.Payment.Amount > 0 {
		meta["payment_amount"] = req.Payment.Amount
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   "receipt.apply",
		Entity:   "purchase_order",
		EntityID: strconv.FormatInt(req.OrderID, 10),
		Meta:     meta,
	}); err != nil {
		s.log.Warn("audit log failed", slog.Any("error", err))
	}
}
