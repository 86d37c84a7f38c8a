package receiving

// LineStatus is the per-line received/pending projection.
type LineStatus struct {
	LineItemID  int64   `json:"line_item_id"`
	QtyOrdered  float64 `json:"quantity_ordered"`
	QtyReceived float64 `json:"quantity_received"`
	QtyPending  float64 `json:"quantity_pending"`
	Fulfilled   bool    `json:"fulfilled"`
}

// RecomputeStatus derives the order status and per-line statuses from the
// line items. Pure function: cancelled is sticky, received requires every
// line fully received, any progress short of that is partially_received, and
// an untouched order keeps its prior status.
func RecomputeStatus(prev OrderStatus, lines []LineItem) (OrderStatus, []LineStatus) {
	perLine := make([]LineStatus, 0, len(lines))
	allFull := len(lines) > 0
	anyProgress := false
	for _, li := range lines {
		full := li.QtyReceived >= li.QtyOrdered
		if !full {
			allFull = false
		}
		if li.QtyReceived > 0 {
			anyProgress = true
		}
		perLine = append(perLine, LineStatus{
			LineItemID:  li.ID,
			QtyOrdered:  li.QtyOrdered,
			QtyReceived: li.QtyReceived,
			QtyPending:  li.QtyOrdered - li.QtyReceived,
			Fulfilled:   full,
		})
	}

	if prev == StatusCancelled {
		return StatusCancelled, perLine
	}
	switch {
	case allFull:
		return StatusReceived, perLine
	case anyProgress:
		return StatusPartiallyReceived, perLine
	default:
		return prev, perLine
	}
}
