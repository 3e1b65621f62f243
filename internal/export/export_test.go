package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"palm-weighbridge/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleDaily() *core.DailyReport {
	do := "DO-001"
	return &core.DailyReport{
		CompanyCode: "PKS001",
		Date:        "2024-03-01",
		Totals: core.WeightTotals{
			Count: 2,
			Bruto: decimal.RequireFromString("22750.75"),
			Tara:  decimal.RequireFromString("5000"),
			Netto: decimal.RequireFromString("10750.75"),
		},
		Transactions: []core.WeighingTransaction{
			{
				TicketNumber: "PKS001-2400001", DeliveryOrderRef: &do, SupplierRef: "SUP-01", DriverRef: "DRV-01",
				VehicleRef: "BK 1234 XY", ProductKind: "TBS", Bruto: *dec("15750.75"), Tara: dec("5000"), Netto: dec("10750.75"),
				EventDate: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
			},
			{
				TicketNumber: "PKS001-2400002", SupplierRef: "=HYPERLINK()", DriverRef: "DRV-02",
				VehicleRef: "BK 2", ProductKind: "TBS", Bruto: *dec("7000"),
				EventDate: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestDailyXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := DailyXLSX(&buf, sampleDaily()); err != nil {
		t.Fatalf("DailyXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(dailySheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 2 rows + total, got %d rows", len(rows))
	}
	if rows[0][0] != "Ticket" || rows[1][0] != "PKS001-2400001" || rows[3][0] != "TOTAL" {
		t.Errorf("unexpected first column: %q %q %q", rows[0][0], rows[1][0], rows[3][0])
	}

	netto, err := f.GetCellValue(dailySheet, "J2", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if netto != "10750.75" {
		t.Errorf("netto cell = %q", netto)
	}
	pendingTara, _ := f.GetCellValue(dailySheet, "I3")
	if pendingTara != "" {
		t.Errorf("pending tara should be blank, got %q", pendingTara)
	}
}

func TestMonthlyXLSX(t *testing.T) {
	r := &core.MonthlyReport{
		CompanyCode: "PKS001", Year: 2024, Month: 3,
		Totals: core.WeightTotals{Count: 3, Netto: decimal.RequireFromString("28000.25")},
		BySupplier: []core.SupplierTotal{
			{SupplierRef: "SUP-01", Count: 2, Netto: decimal.RequireFromString("22000.25")},
			{SupplierRef: "SUP-02", Count: 1, Netto: decimal.RequireFromString("6000")},
		},
	}
	var buf bytes.Buffer
	if err := MonthlyXLSX(&buf, r); err != nil {
		t.Fatalf("MonthlyXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	total, _ := f.GetCellValue(monthlySheet, "C4", excelize.Options{RawCellValue: true})
	if total != "28000.25" {
		t.Errorf("total netto cell = %q", total)
	}
	if got := MonthlyFilename(r, "xlsx"); got != "monthly-PKS001-2024-03.xlsx" {
		t.Errorf("filename = %s", got)
	}
}

func TestDailyCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := DailyCSV(&buf, sampleDaily()); err != nil {
		t.Fatalf("DailyCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if records[1][9] != "10750.75" || records[1][1] != "DO-001" {
		t.Errorf("unexpected row: %v", records[1])
	}
	if records[2][3] != "'=HYPERLINK()" {
		t.Errorf("formula-like supplier not escaped: %q", records[2][3])
	}
	if records[2][8] != "" || records[2][9] != "" {
		t.Errorf("pending tara/netto should be blank: %v", records[2])
	}
	if records[3][9] != "10750.75" {
		t.Errorf("total netto = %q", records[3][9])
	}
	if got := DailyFilename(sampleDaily(), "csv"); got != "daily-PKS001-2024-03-01.csv" {
		t.Errorf("filename = %s", got)
	}
}
