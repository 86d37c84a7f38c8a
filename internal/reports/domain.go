package reports

// StockClass is the read-side classification of a stock position.
type StockClass string

const (
	StockOK  StockClass = "ok"
	StockLow StockClass = "low_stock"
	StockOut StockClass = "out_of_stock"
)

// StockRow is one product's on-hand position at a store. On-hand is derived
// from the batch ledger minus recorded consumption; the classification is a
// projection only and never feeds back into the ledger.
type StockRow struct {
	ProductID         int64      `json:"product_id"`
	Name              string     `json:"name"`
	SKU               string     `json:"sku"`
	Unit              string     `json:"unit"`
	StoreID           int64      `json:"store_id"`
	OnHand            float64    `json:"on_hand"`
	LowStockThreshold float64    `json:"low_stock_threshold"`
	AvgUnitCost       float64    `json:"avg_unit_cost"`
	Class             StockClass `json:"classification"`
}

// Classify derives the stock classification from quantity and threshold.
func Classify(onHand, threshold float64) StockClass {
	switch {
	case onHand <= 0:
		return StockOut
	case threshold > 0 && onHand <= threshold:
		return StockLow
	default:
		return StockOK
	}
}
