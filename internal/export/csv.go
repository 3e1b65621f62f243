package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"palm-weighbridge/internal/core"

	"github.com/shopspring/decimal"
)

// DailyCSV writes the same layout as DailyXLSX as CSV.
func DailyCSV(w io.Writer, r *core.DailyReport) error {
	cw := csv.NewWriter(w)
	_ = cw.Write(dailyHeader)
	for _, t := range r.Transactions {
		_ = cw.Write(csvRow(transactionCells(t)))
	}
	_ = cw.Write([]string{"TOTAL", "", "", "", "", "", strconv.Itoa(r.Totals.Count) + " trx",
		r.Totals.Bruto.StringFixed(2), r.Totals.Tara.StringFixed(2), r.Totals.Netto.StringFixed(2), ""})
	cw.Flush()
	return cw.Error()
}

func MonthlyCSV(w io.Writer, r *core.MonthlyReport) error {
	cw := csv.NewWriter(w)
	_ = cw.Write(monthlyHeader)
	for _, st := range r.BySupplier {
		_ = cw.Write([]string{csvSafe(st.SupplierRef), strconv.Itoa(st.Count), st.Netto.StringFixed(2)})
	}
	_ = cw.Write([]string{"TOTAL", strconv.Itoa(r.Totals.Count), r.Totals.Netto.StringFixed(2)})
	cw.Flush()
	return cw.Error()
}

func csvRow(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case decimal.Decimal:
			out[i] = v.StringFixed(2)
		case string:
			out[i] = csvSafe(v)
		}
	}
	return out
}

// csvSafe prefixes values that spreadsheet applications would evaluate as
// formulas.
func csvSafe(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
