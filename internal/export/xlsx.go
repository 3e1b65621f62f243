// Package export renders report rollups as spreadsheet downloads.
package export

import (
	"fmt"
	"io"

	"palm-weighbridge/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"

	dailySheet   = "Daily"
	monthlySheet = "Monthly"

	// built-in number format "#,##0.00"
	numFmtWeight = 4
)

var dailyHeader = []string{"Ticket", "Delivery Order", "Time", "Supplier", "Driver", "Vehicle", "Product", "Bruto (kg)", "Tara (kg)", "Netto (kg)", "Note"}

var monthlyHeader = []string{"Supplier", "Transactions", "Netto (kg)"}

// sheet wraps a single excelize worksheet with a running row cursor.
type sheet struct {
	f      *excelize.File
	name   string
	row    int
	weight int
}

func newSheet(name string) (*sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtWeight})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &sheet{f: f, name: name, weight: style}, nil
}

// appendRow writes values starting at column A of the next row. Decimal
// values are stored as numbers with the weight style applied.
func (s *sheet) appendRow(values ...any) error {
	s.row++
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return err
		}
		if d, ok := v.(decimal.Decimal); ok {
			if err := s.f.SetCellValue(s.name, cell, d.InexactFloat64()); err != nil {
				return err
			}
			if err := s.f.SetCellStyle(s.name, cell, cell, s.weight); err != nil {
				return err
			}
			continue
		}
		if err := s.f.SetCellValue(s.name, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheet) appendHeader(cols []string) error {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	if err := s.appendRow(vals...); err != nil {
		return err
	}
	return s.f.SetPanes(s.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (s *sheet) writeTo(w io.Writer) error {
	defer s.f.Close()
	if err := s.f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// DailyXLSX writes one row per transaction followed by a totals row.
func DailyXLSX(w io.Writer, r *core.DailyReport) error {
	s, err := newSheet(dailySheet)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := s.appendHeader(dailyHeader); err != nil {
		return err
	}
	for _, t := range r.Transactions {
		if err := s.appendRow(transactionCells(t)...); err != nil {
			return err
		}
	}
	if err := s.appendRow("TOTAL", "", "", "", "", "", fmt.Sprintf("%d trx", r.Totals.Count),
		r.Totals.Bruto, r.Totals.Tara, r.Totals.Netto); err != nil {
		return err
	}
	return s.writeTo(w)
}

// MonthlyXLSX writes one row per supplier followed by a totals row.
func MonthlyXLSX(w io.Writer, r *core.MonthlyReport) error {
	s, err := newSheet(monthlySheet)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := s.appendHeader(monthlyHeader); err != nil {
		return err
	}
	for _, st := range r.BySupplier {
		if err := s.appendRow(st.SupplierRef, st.Count, st.Netto); err != nil {
			return err
		}
	}
	if err := s.appendRow("TOTAL", r.Totals.Count, r.Totals.Netto); err != nil {
		return err
	}
	return s.writeTo(w)
}

func transactionCells(t core.WeighingTransaction) []any {
	doRef := ""
	if t.DeliveryOrderRef != nil {
		doRef = *t.DeliveryOrderRef
	}
	var tara, netto any = "", ""
	if t.Tara != nil {
		tara = *t.Tara
	}
	if t.Netto != nil {
		netto = *t.Netto
	}
	return []any{
		t.TicketNumber, doRef, t.EventDate.Format("15:04"), t.SupplierRef, t.DriverRef,
		t.VehicleRef, t.ProductKind, t.Bruto, tara, netto, t.Note,
	}
}

// DailyFilename and MonthlyFilename name downloads after company and period.
func DailyFilename(r *core.DailyReport, ext string) string {
	return fmt.Sprintf("daily-%s-%s.%s", r.CompanyCode, r.Date, ext)
}

func MonthlyFilename(r *core.MonthlyReport, ext string) string {
	return fmt.Sprintf("monthly-%s-%04d-%02d.%s", r.CompanyCode, r.Year, r.Month, ext)
}
