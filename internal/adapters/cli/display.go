package cli

import (
	"fmt"
	"io"
	"strings"

	"palm-weighbridge/internal/app"
	"palm-weighbridge/internal/core"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04"

func rule(out io.Writer, ch string) {
	fmt.Fprintln(out, strings.Repeat(ch, 78))
}

func weightOrDash(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

// PrintWeighing renders one weighing ticket with its grade, if graded.
func PrintWeighing(out io.Writer, r *app.WeighingResult) {
	t := r.Transaction
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  TICKET %s  [%s]\n", t.TicketNumber, strings.ToUpper(string(t.Status)))
	rule(out, "=")
	if t.DeliveryOrderRef != nil {
		fmt.Fprintf(out, "  Delivery order : %s\n", *t.DeliveryOrderRef)
	}
	fmt.Fprintf(out, "  Company        : %s\n", t.CompanyCode)
	fmt.Fprintf(out, "  Supplier       : %s\n", t.SupplierRef)
	fmt.Fprintf(out, "  Driver         : %s\n", t.DriverRef)
	fmt.Fprintf(out, "  Vehicle        : %s\n", t.VehicleRef)
	fmt.Fprintf(out, "  Product        : %s\n", t.ProductKind)
	fmt.Fprintf(out, "  Weighed in     : %s\n", t.EventDate.Format(timeLayout))
	if t.WeighedOutAt != nil {
		fmt.Fprintf(out, "  Weighed out    : %s\n", t.WeighedOutAt.Format(timeLayout))
	}
	rule(out, "-")
	fmt.Fprintf(out, "  %-14s %15s kg\n", "Bruto", t.Bruto.StringFixed(2))
	fmt.Fprintf(out, "  %-14s %15s kg\n", "Tara", weightOrDash(t.Tara))
	fmt.Fprintf(out, "  %-14s %15s kg\n", "Netto", weightOrDash(t.Netto))
	if r.Grading != nil {
		rule(out, "-")
		fmt.Fprintf(out, "  Grade %s (ripe %s%%)\n", r.Grading.GradeLetter, r.Grading.Composition.Ripe.StringFixed(2))
	}
	if t.Note != "" {
		fmt.Fprintf(out, "  Note: %s\n", t.Note)
	}
	rule(out, "=")
}

func printWeighingList(out io.Writer, title string, r *app.WeighingListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  %s  (%s, %d rows)\n", title, r.CompanyCode, len(r.Transactions))
	rule(out, "=")
	fmt.Fprintf(out, "  %-6s %-16s %-12s %-10s %-16s %12s %12s\n", "ID", "TICKET", "VEHICLE", "SUPPLIER", "IN", "BRUTO", "NETTO")
	rule(out, "-")
	for _, t := range r.Transactions {
		fmt.Fprintf(out, "  %-6d %-16s %-12s %-10s %-16s %12s %12s\n",
			t.ID, t.TicketNumber, t.VehicleRef, t.SupplierRef, t.EventDate.Format(timeLayout),
			t.Bruto.StringFixed(2), weightOrDash(t.Netto))
	}
	rule(out, "=")
}

// PrintGrading renders a grading and its composition.
func PrintGrading(out io.Writer, g *core.Grading) {
	c := g.Composition
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  GRADING #%d for transaction %d: GRADE %s\n", g.ID, g.TransactionID, g.GradeLetter)
	rule(out, "=")
	fmt.Fprintf(out, "  Sample      %8s\n", g.TotalSample.StringFixed(2))
	printComposition(out, c)
	rule(out, "=")
}

func printComposition(out io.Writer, c core.Composition) {
	fmt.Fprintf(out, "  Ripe        %7s%%\n", c.Ripe.StringFixed(2))
	fmt.Fprintf(out, "  Unripe      %7s%%\n", c.Unripe.StringFixed(2))
	fmt.Fprintf(out, "  Rotten      %7s%%\n", c.Rotten.StringFixed(2))
	fmt.Fprintf(out, "  Loose fruit %7s%%\n", c.LooseFruit.StringFixed(2))
	fmt.Fprintf(out, "  Trash       %7s%%\n", c.Trash.StringFixed(2))
	fmt.Fprintf(out, "  Water       %7s%%\n", c.Water.StringFixed(2))
}

func printTotals(out io.Writer, t core.WeightTotals) {
	fmt.Fprintf(out, "  %-14s %15d\n", "Transactions", t.Count)
	fmt.Fprintf(out, "  %-14s %15s kg\n", "Bruto", t.Bruto.StringFixed(2))
	fmt.Fprintf(out, "  %-14s %15s kg\n", "Tara", t.Tara.StringFixed(2))
	fmt.Fprintf(out, "  %-14s %15s kg\n", "Netto", t.Netto.StringFixed(2))
}

func printDailyReport(out io.Writer, r *core.DailyReport) {
	printWeighingList(out, "DAILY REPORT "+r.Date, &app.WeighingListResult{CompanyCode: r.CompanyCode, Transactions: r.Transactions})
	printTotals(out, r.Totals)
	rule(out, "=")
}

func printMonthlyReport(out io.Writer, r *core.MonthlyReport) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  MONTHLY REPORT %04d-%02d  (%s)\n", r.Year, r.Month, r.CompanyCode)
	rule(out, "=")
	fmt.Fprintf(out, "  %-30s %8s %18s\n", "SUPPLIER", "TRX", "NETTO (kg)")
	rule(out, "-")
	for _, s := range r.BySupplier {
		fmt.Fprintf(out, "  %-30s %8d %18s\n", s.SupplierRef, s.Count, s.Netto.StringFixed(2))
	}
	rule(out, "-")
	printTotals(out, r.Totals)
	rule(out, "=")
}

func printGradeCounts(out io.Writer, s core.GradingSummary) {
	parts := make([]string, 0, len(core.Grades))
	for _, g := range core.Grades {
		parts = append(parts, fmt.Sprintf("%s=%d", g, s.GradeCounts[g]))
	}
	fmt.Fprintf(out, "  Gradings: %d  [%s]\n", s.Count, strings.Join(parts, " "))
}

func printGradingReport(out io.Writer, r *core.GradingReport) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  GRADING REPORT %s .. %s  (%s)\n", r.StartDate, r.EndDate, r.CompanyCode)
	rule(out, "=")
	printGradeCounts(out, r.Summary)
	printComposition(out, r.Summary.Average)
	for _, s := range r.BySupplier {
		rule(out, "-")
		fmt.Fprintf(out, "  %s\n", s.SupplierRef)
		printGradeCounts(out, s.Summary)
		fmt.Fprintf(out, "  Avg ripe    %7s%%\n", s.Summary.Average.Ripe.StringFixed(2))
	}
	rule(out, "=")
}

func printSupplierReport(out io.Writer, r *core.SupplierReport) {
	printWeighingList(out, fmt.Sprintf("SUPPLIER %s %s .. %s", r.SupplierRef, r.StartDate, r.EndDate),
		&app.WeighingListResult{CompanyCode: r.CompanyCode, Transactions: r.Transactions})
	printTotals(out, r.Totals)
	rule(out, "-")
	printGradeCounts(out, r.Grading)
	printComposition(out, r.Grading.Average)
	rule(out, "=")
}
