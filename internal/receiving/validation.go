package receiving

import (
	"fmt"

	"github.com/meridian-retail/meridian/internal/payments"
)

const (
	reasonUnknownLine   = "line item does not belong to this order"
	reasonDuplicateLine = "line item appears more than once in the request"
	reasonNegativeDelta = "quantity received delta must not be negative"
	reasonBadPrice      = "purchase price must be positive"
	reasonMissingPrice  = "selling price is required for a new product"
)

// validateReceive is the dry-run pass over the whole request. It inspects
// every line and the payment against the order's current state and returns an
// error describing all offending lines; no write happens before it succeeds.
func validateReceive(order Order, req ReceiveItemsRequest) error {
	byID := make(map[int64]*LineItem, len(order.Lines))
	for i := range order.Lines {
		byID[order.Lines[i].ID] = &order.Lines[i]
	}

	var lineErrs []LineError
	missingPriceOnly := true
	seen := make(map[int64]bool, len(req.Items))
	for _, item := range req.Items {
		fail := func(reason string) {
			lineErrs = append(lineErrs, LineError{LineItemID: item.LineItemID, Reason: reason})
			if reason != reasonMissingPrice {
				missingPriceOnly = false
			}
		}

		if seen[item.LineItemID] {
			fail(reasonDuplicateLine)
			continue
		}
		seen[item.LineItemID] = true

		line, ok := byID[item.LineItemID]
		if !ok {
			fail(reasonUnknownLine)
			continue
		}
		if item.QtyReceivedDelta < 0 {
			fail(reasonNegativeDelta)
		}
		if item.PurchasePrice <= 0 {
			fail(reasonBadPrice)
		}
		if newTotal := line.QtyReceived + item.QtyReceivedDelta; newTotal > line.QtyOrdered {
			fail(fmt.Sprintf("over-receipt: %.2f received + %.2f delta exceeds %.2f ordered",
				line.QtyReceived, item.QtyReceivedDelta, line.QtyOrdered))
		}
		if !line.Resolved() {
			if item.SellingPrice == nil || *item.SellingPrice <= 0 {
				fail(reasonMissingPrice)
			}
		}
	}

	if len(lineErrs) > 0 {
		kind := KindValidation
		if missingPriceOnly {
			kind = KindMissingPrice
		}
		return &ValidationError{Kind: kind, Reason: "receipt rejected", Lines: lineErrs}
	}

	if req.Payment != nil {
		if req.Payment.Amount < 0 {
			return payments.ErrInvalidAmount
		}
		if _, err := payments.ApplyAmount(order.GrandTotal, order.AmountPaid, req.Payment.Amount); err != nil {
			return err
		}
	}
	return nil
}
