package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// WriteStockCSV serialises the stock projection to CSV.
func WriteStockCSV(w io.Writer, rows []StockRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Product", "SKU", "Unit", "Store", "On Hand", "Threshold", "Avg Unit Cost", "Status"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Name,
			row.SKU,
			row.Unit,
			strconv.FormatInt(row.StoreID, 10),
			formatQty(row.OnHand),
			formatQty(row.LowStockThreshold),
			formatMoney(row.AvgUnitCost),
			string(row.Class),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMoney(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}
