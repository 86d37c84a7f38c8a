package receiving

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meridian-retail/meridian/internal/payments"
)

// ErrorKind is the machine-readable error classification carried on problem
// responses.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation_error"
	KindConcurrentModification ErrorKind = "concurrent_modification_error"
	KindPersistence            ErrorKind = "persistence_error"
	KindDuplicateSKU           ErrorKind = "duplicate_sku_error"
	KindMissingPrice           ErrorKind = "missing_price_error"
	KindOverpayment            ErrorKind = "overpayment_error"
	KindTerminalState          ErrorKind = "terminal_state_error"
	KindNotFound               ErrorKind = "not_found"
)

// LineError reports a validation failure scoped to one line item.
type LineError struct {
	LineItemID int64  `json:"line_item_id"`
	Reason     string `json:"reason"`
}

// ValidationError carries the structured outcome of the dry-run validation
// pass. When set, Lines lists a reason per offending line item.
type ValidationError struct {
	Kind   ErrorKind
	Reason string
	Lines  []LineError
}

func (e *ValidationError) Error() string {
	if len(e.Lines) == 0 {
		return e.Reason
	}
	parts := make([]string, 0, len(e.Lines))
	for _, le := range e.Lines {
		parts = append(parts, fmt.Sprintf("line %d: %s", le.LineItemID, le.Reason))
	}
	if e.Reason != "" {
		return e.Reason + ": " + strings.Join(parts, "; ")
	}
	return strings.Join(parts, "; ")
}

var (
	// ErrOrderNotFound indicates the purchase order does not exist.
	ErrOrderNotFound = errors.New("receiving: purchase order not found")
	// ErrTerminalState indicates the order is cancelled or fully received and
	// accepts no further receipts.
	ErrTerminalState = errors.New("receiving: order is in a terminal state")
	// ErrConcurrentModification is surfaced after the bounded internal retry
	// on write conflicts is exhausted.
	ErrConcurrentModification = errors.New("receiving: order was modified concurrently")
	// ErrMissingPrice indicates a new product line without a positive
	// purchase or selling price.
	ErrMissingPrice = errors.New("receiving: price required for new product")
	// ErrDuplicateSKU indicates the generated SKU for a new product collides.
	ErrDuplicateSKU = errors.New("receiving: generated sku already exists")
	// ErrWriteConflict marks a transient conflict that the processor retries
	// transparently. Repository implementations return it (or a database
	// serialization failure) when the optimistic race is lost.
	ErrWriteConflict = errors.New("receiving: transient write conflict")
)

// KindOf classifies an error from the receiving flow.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Kind != "" {
			return ve.Kind
		}
		return KindValidation
	case errors.Is(err, payments.ErrOverpayment):
		return KindOverpayment
	case errors.Is(err, ErrMissingPrice):
		return KindMissingPrice
	case errors.Is(err, ErrDuplicateSKU):
		return KindDuplicateSKU
	case errors.Is(err, ErrTerminalState):
		return KindTerminalState
	case errors.Is(err, ErrConcurrentModification):
		return KindConcurrentModification
	case errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, payments.ErrInvalidAmount):
		return KindValidation
	default:
		return KindPersistence
	}
}
