package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// WeightTotals sums the weights of a set of active transactions. Pending
// weighings contribute their bruto only; their tara and netto count as zero.
type WeightTotals struct {
	Count int             `json:"count"`
	Bruto decimal.Decimal `json:"bruto"`
	Tara  decimal.Decimal `json:"tara"`
	Netto decimal.Decimal `json:"netto"`
}

func (w *WeightTotals) add(t WeighingTransaction) {
	w.Count++
	w.Bruto = w.Bruto.Add(t.Bruto)
	if t.Tara != nil {
		w.Tara = w.Tara.Add(*t.Tara)
	}
	if t.Netto != nil {
		w.Netto = w.Netto.Add(*t.Netto)
	}
}

// DailyReport covers one local calendar day.
type DailyReport struct {
	CompanyCode  string                `json:"company_code"`
	Date         string                `json:"date"`
	Totals       WeightTotals          `json:"totals"`
	Transactions []WeighingTransaction `json:"transactions"`
}

// SupplierTotal is one supplier's share of a period.
type SupplierTotal struct {
	SupplierRef string          `json:"supplier_ref"`
	Count       int             `json:"count"`
	Netto       decimal.Decimal `json:"netto"`
}

// MonthlyReport covers one calendar month, grouped by supplier.
type MonthlyReport struct {
	CompanyCode string          `json:"company_code"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Totals      WeightTotals    `json:"totals"`
	BySupplier  []SupplierTotal `json:"by_supplier"`
}

// GradingSummary averages each composition field over a set of gradings and
// counts grade letters. Every letter is present in GradeCounts, and averages
// of an empty set are zero.
type GradingSummary struct {
	Count       int           `json:"count"`
	Average     Composition   `json:"average"`
	GradeCounts map[Grade]int `json:"grade_counts"`
}

type SupplierGrading struct {
	SupplierRef string         `json:"supplier_ref"`
	Summary     GradingSummary `json:"summary"`
}

// GradingReport covers gradings whose transaction falls in [StartDate, EndDate].
type GradingReport struct {
	CompanyCode string            `json:"company_code"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Summary     GradingSummary    `json:"summary"`
	BySupplier  []SupplierGrading `json:"by_supplier"`
}

// SupplierReport is a single supplier's weights and grading over a date range.
type SupplierReport struct {
	CompanyCode  string                `json:"company_code"`
	SupplierRef  string                `json:"supplier_ref"`
	StartDate    string                `json:"start_date"`
	EndDate      string                `json:"end_date"`
	Totals       WeightTotals          `json:"totals"`
	Grading      GradingSummary        `json:"grading"`
	Transactions []WeighingTransaction `json:"transactions"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportAggregator provides read-only rollups over weighings and gradings.
// Only active transactions are counted. Day windows are local calendar days
// [00:00:00.000, 23:59:59.999] in the configured location.
type ReportAggregator interface {
	DailyReport(ctx context.Context, companyCode string, date time.Time) (*DailyReport, error)
	MonthlyReport(ctx context.Context, companyCode string, year, month int) (*MonthlyReport, error)
	GradingReport(ctx context.Context, companyCode string, startDate, endDate time.Time) (*GradingReport, error)
	SupplierReport(ctx context.Context, companyCode, supplierRef string, startDate, endDate time.Time) (*SupplierReport, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewReportingService constructs a ReportAggregator backed by the given pool.
func NewReportingService(pool *pgxpool.Pool, loc *time.Location) ReportAggregator {
	if loc == nil {
		loc = time.Local
	}
	return &reportingService{pool: pool, loc: loc}
}

const dateLayout = "2006-01-02"

// dayStart returns local midnight of the calendar day containing t.
func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// dayRange spans from the first millisecond of from's day to the last
// millisecond of to's day.
func dayRange(from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	start := dayStart(from, loc)
	end := dayStart(to, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

func monthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// ── DailyReport ───────────────────────────────────────────────────────────────

func (s *reportingService) DailyReport(ctx context.Context, companyCode string, date time.Time) (*DailyReport, error) {
	start, end := dayRange(date, date, s.loc)

	txs, err := s.activeTransactions(ctx, companyCode, "", start, end)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{
		CompanyCode:  companyCode,
		Date:         start.Format(dateLayout),
		Transactions: txs,
	}
	for _, t := range txs {
		report.Totals.add(t)
	}
	return report, nil
}

// ── MonthlyReport ─────────────────────────────────────────────────────────────

func (s *reportingService) MonthlyReport(ctx context.Context, companyCode string, year, month int) (*MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range 1-12", ErrValidation, month)
	}
	start, end := monthRange(year, month, s.loc)

	const q = `
		SELECT supplier_ref,
		       COUNT(*)                        AS trx_count,
		       COALESCE(SUM(bruto), 0)         AS bruto_total,
		       COALESCE(SUM(tara), 0)          AS tara_total,
		       COALESCE(SUM(netto), 0)         AS netto_total
		FROM weighing_transactions
		WHERE company_code = $1
		  AND status = 'active'
		  AND event_date BETWEEN $2 AND $3
		GROUP BY supplier_ref
		ORDER BY supplier_ref`

	rows, err := s.pool.Query(ctx, q, companyCode, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly report: %w", err)
	}
	defer rows.Close()

	report := &MonthlyReport{CompanyCode: companyCode, Year: year, Month: month, BySupplier: []SupplierTotal{}}
	for rows.Next() {
		var st SupplierTotal
		var bruto, tara decimal.Decimal
		if err := rows.Scan(&st.SupplierRef, &st.Count, &bruto, &tara, &st.Netto); err != nil {
			return nil, fmt.Errorf("failed to scan monthly row: %w", err)
		}
		report.BySupplier = append(report.BySupplier, st)
		report.Totals.Count += st.Count
		report.Totals.Bruto = report.Totals.Bruto.Add(bruto)
		report.Totals.Tara = report.Totals.Tara.Add(tara)
		report.Totals.Netto = report.Totals.Netto.Add(st.Netto)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly row iteration error: %w", err)
	}
	return report, nil
}

// ── GradingReport ─────────────────────────────────────────────────────────────

type gradingSample struct {
	SupplierRef string
	Composition Composition
	Grade       Grade
}

func (s *reportingService) GradingReport(ctx context.Context, companyCode string, startDate, endDate time.Time) (*GradingReport, error) {
	start, end := dayRange(startDate, endDate, s.loc)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrValidation)
	}

	samples, err := s.gradingSamples(ctx, companyCode, "", start, end)
	if err != nil {
		return nil, err
	}

	bySupplier := make(map[string][]gradingSample)
	for _, smp := range samples {
		bySupplier[smp.SupplierRef] = append(bySupplier[smp.SupplierRef], smp)
	}
	suppliers := make([]string, 0, len(bySupplier))
	for ref := range bySupplier {
		suppliers = append(suppliers, ref)
	}
	sort.Strings(suppliers)

	report := &GradingReport{
		CompanyCode: companyCode,
		StartDate:   start.Format(dateLayout),
		EndDate:     end.Format(dateLayout),
		Summary:     summarizeGradings(samples),
		BySupplier:  make([]SupplierGrading, 0, len(suppliers)),
	}
	for _, ref := range suppliers {
		report.BySupplier = append(report.BySupplier, SupplierGrading{
			SupplierRef: ref,
			Summary:     summarizeGradings(bySupplier[ref]),
		})
	}
	return report, nil
}

// ── SupplierReport ────────────────────────────────────────────────────────────

func (s *reportingService) SupplierReport(ctx context.Context, companyCode, supplierRef string, startDate, endDate time.Time) (*SupplierReport, error) {
	if supplierRef == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrValidation)
	}
	start, end := dayRange(startDate, endDate, s.loc)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrValidation)
	}

	txs, err := s.activeTransactions(ctx, companyCode, supplierRef, start, end)
	if err != nil {
		return nil, err
	}
	samples, err := s.gradingSamples(ctx, companyCode, supplierRef, start, end)
	if err != nil {
		return nil, err
	}

	report := &SupplierReport{
		CompanyCode:  companyCode,
		SupplierRef:  supplierRef,
		StartDate:    start.Format(dateLayout),
		EndDate:      end.Format(dateLayout),
		Grading:      summarizeGradings(samples),
		Transactions: txs,
	}
	for _, t := range txs {
		report.Totals.add(t)
	}
	return report, nil
}

// ── queries ───────────────────────────────────────────────────────────────────

func (s *reportingService) activeTransactions(ctx context.Context, companyCode, supplierRef string, start, end time.Time) ([]WeighingTransaction, error) {
	q := "SELECT " + transactionColumns + `
		FROM weighing_transactions
		WHERE company_code = $1
		  AND status = 'active'
		  AND event_date BETWEEN $2 AND $3`
	args := []any{companyCode, start, end}
	if supplierRef != "" {
		args = append(args, supplierRef)
		q += fmt.Sprintf(" AND supplier_ref = $%d", len(args))
	}
	q += " ORDER BY event_date ASC, id ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []WeighingTransaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		localize(t, s.loc)
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transaction row iteration error: %w", err)
	}
	return txs, nil
}

func (s *reportingService) gradingSamples(ctx context.Context, companyCode, supplierRef string, start, end time.Time) ([]gradingSample, error) {
	q := `
		SELECT wt.supplier_ref,
		       g.ripe_pct, g.unripe_pct, g.rotten_pct, g.loose_fruit_pct, g.trash_pct, g.water_pct,
		       g.grade_letter
		FROM gradings g
		JOIN weighing_transactions wt ON wt.id = g.transaction_id
		WHERE wt.company_code = $1
		  AND wt.status = 'active'
		  AND wt.event_date BETWEEN $2 AND $3`
	args := []any{companyCode, start, end}
	if supplierRef != "" {
		args = append(args, supplierRef)
		q += fmt.Sprintf(" AND wt.supplier_ref = $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gradings: %w", err)
	}
	defer rows.Close()

	var samples []gradingSample
	for rows.Next() {
		var smp gradingSample
		var grade string
		c := &smp.Composition
		if err := rows.Scan(&smp.SupplierRef, &c.Ripe, &c.Unripe, &c.Rotten, &c.LooseFruit, &c.Trash, &c.Water, &grade); err != nil {
			return nil, fmt.Errorf("failed to scan grading row: %w", err)
		}
		smp.Grade = Grade(grade)
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grading row iteration error: %w", err)
	}
	return samples, nil
}

// summarizeGradings averages each field to two decimals. An empty input yields
// zero averages rather than a division error.
func summarizeGradings(samples []gradingSample) GradingSummary {
	summary := GradingSummary{GradeCounts: make(map[Grade]int, len(Grades))}
	for _, g := range Grades {
		summary.GradeCounts[g] = 0
	}

	var total Composition
	for _, smp := range samples {
		c := smp.Composition
		total.Ripe = total.Ripe.Add(c.Ripe)
		total.Unripe = total.Unripe.Add(c.Unripe)
		total.Rotten = total.Rotten.Add(c.Rotten)
		total.LooseFruit = total.LooseFruit.Add(c.LooseFruit)
		total.Trash = total.Trash.Add(c.Trash)
		total.Water = total.Water.Add(c.Water)
		summary.GradeCounts[smp.Grade]++
	}
	summary.Count = len(samples)
	if summary.Count == 0 {
		return summary
	}

	n := decimal.NewFromInt(int64(summary.Count))
	avg := func(d decimal.Decimal) decimal.Decimal { return d.DivRound(n, 2) }
	summary.Average = Composition{
		Ripe:       avg(total.Ripe),
		Unripe:     avg(total.Unripe),
		Rotten:     avg(total.Rotten),
		LooseFruit: avg(total.LooseFruit),
		Trash:      avg(total.Trash),
		Water:      avg(total.Water),
	}
	return summary
}
