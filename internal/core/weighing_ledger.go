package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// WeighingLedger owns the weighing-transaction lifecycle: weigh-in, weigh-out,
// edits and cancellation.
type WeighingLedger interface {
	// CreateIncoming records the laden weighing of an arriving vehicle and
	// assigns its ticket number in the same database transaction.
	CreateIncoming(ctx context.Context, company CompanyContext, in WeighInInput) (*WeighingTransaction, error)

	// CompleteOutgoing records the unladen weighing and derives netto = bruto - tara.
	CompleteOutgoing(ctx context.Context, id int, tara decimal.Decimal) (*WeighingTransaction, error)

	// RecordWeighing creates a completed transaction when both weights are
	// known up front. Weigh-in and weigh-out commit atomically.
	RecordWeighing(ctx context.Context, company CompanyContext, in WeighInInput, tara decimal.Decimal) (*WeighingTransaction, error)

	// Update applies a partial patch. Netto is recomputed from the patched
	// weights, falling back to the stored value for whichever one is absent.
	Update(ctx context.Context, id int, patch WeighingPatch) (*WeighingTransaction, error)

	// Cancel marks the transaction cancelled. The ticket number is retained.
	Cancel(ctx context.Context, id int) (*WeighingTransaction, error)

	GetByID(ctx context.Context, id int) (*WeighingTransaction, error)
	GetByDeliveryOrder(ctx context.Context, deliveryOrderRef string) (*WeighingTransaction, error)
	GetByTicket(ctx context.Context, ticketNumber string) (*WeighingTransaction, error)

	// ListPending returns vehicles weighed in but not yet weighed out, oldest first.
	ListPending(ctx context.Context, companyCode string) ([]WeighingTransaction, error)
	List(ctx context.Context, f ListFilter) ([]WeighingTransaction, error)
}

// Constraint names declared in migrations/001_weighbridge_schema.sql.
const (
	constraintDeliveryOrderRef = "uq_weighing_delivery_order_ref"
	constraintOpenVehicle      = "uq_weighing_open_vehicle"
	constraintTicketNumber     = "uq_weighing_ticket_number"
)

const transactionColumns = `
	id, ticket_number, delivery_order_ref, company_code, supplier_ref, driver_ref,
	vehicle_ref, product_kind, bruto, tara, netto, event_date, weighed_out_at,
	status, note, created_by, created_at, updated_at`

type Ledger struct {
	pool    *pgxpool.Pool
	tickets TicketSequencer
	loc     *time.Location
	now     func() time.Time
}

// NewLedger constructs the weighing ledger. loc decides which calendar year a
// ticket belongs to; nil means time.Local.
func NewLedger(pool *pgxpool.Pool, tickets TicketSequencer, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{pool: pool, tickets: tickets, loc: loc, now: time.Now}
}

func (l *Ledger) CreateIncoming(ctx context.Context, company CompanyContext, in WeighInInput) (*WeighingTransaction, error) {
	return l.create(ctx, company, in, nil)
}

func (l *Ledger) RecordWeighing(ctx context.Context, company CompanyContext, in WeighInInput, tara decimal.Decimal) (*WeighingTransaction, error) {
	return l.create(ctx, company, in, &tara)
}

func (l *Ledger) create(ctx context.Context, company CompanyContext, in WeighInInput, tara *decimal.Decimal) (*WeighingTransaction, error) {
	if company.Code == "" {
		return nil, fmt.Errorf("%w: no active company resolved for weigh-in", ErrConfiguration)
	}
	in = normalizeWeighIn(in)
	if err := validateWeighIn(in); err != nil {
		return nil, err
	}

	var netto decimal.NullDecimal
	taraVal := decimal.NullDecimal{}
	if tara != nil {
		n, err := computeNetto(in.Bruto, *tara)
		if err != nil {
			return nil, err
		}
		netto = decimal.NewNullDecimal(n)
		taraVal = decimal.NewNullDecimal(*tara)
	}

	eventDate := l.now()
	if in.EventDate != nil {
		eventDate = *in.EventDate
	}
	var weighedOutAt *time.Time
	if tara != nil {
		weighedOutAt = &eventDate
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ticket issuance shares tx with the insert: a failed insert rolls the
	// counter back, so no issued ticket is left without a record.
	ticket, err := l.tickets.NextTicketTx(ctx, tx, company.Code, eventDate.In(l.loc).Year())
	if err != nil {
		return nil, err
	}

	var doRef *string
	if in.DeliveryOrderRef != "" {
		doRef = &in.DeliveryOrderRef
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO weighing_transactions (
			ticket_number, delivery_order_ref, company_code, supplier_ref, driver_ref,
			vehicle_ref, product_kind, bruto, tara, netto, event_date, weighed_out_at,
			status, note, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+transactionColumns,
		ticket, doRef, company.Code, in.SupplierRef, in.DriverRef,
		in.VehicleRef, in.ProductKind, in.Bruto, taraVal, netto, eventDate, weighedOutAt,
		string(StatusActive), in.Note, in.CreatedBy,
	)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, translateWriteError(err, in.DeliveryOrderRef, in.VehicleRef)
	}

	if err := tx.Commit(ctx); err != nil {
		if isContention(err) {
			return nil, fmt.Errorf("%w: %v", ErrTicketContention, err)
		}
		return nil, fmt.Errorf("failed to commit weigh-in: %w", err)
	}

	log.Printf("[WEIGH] in %s vehicle=%s bruto=%s", t.TicketNumber, t.VehicleRef, t.Bruto.StringFixed(2))
	return t, nil
}

func (l *Ledger) CompleteOutgoing(ctx context.Context, id int, tara decimal.Decimal) (*WeighingTransaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: transaction %s is cancelled", ErrInvalidState, current.TicketNumber)
	}

	netto, err := computeNetto(current.Bruto, tara)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE weighing_transactions
		SET tara = $1, netto = $2, weighed_out_at = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+transactionColumns,
		tara, netto, l.now(), id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, translateWriteError(err, "", current.VehicleRef)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit weigh-out: %w", err)
	}

	log.Printf("[WEIGH] out %s tara=%s netto=%s", t.TicketNumber, tara.StringFixed(2), netto.StringFixed(2))
	return t, nil
}

func (l *Ledger) Update(ctx context.Context, id int, patch WeighingPatch) (*WeighingTransaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The stored weights are read under the row lock, so a one-sided patch is
	// always combined with the current counterpart, never a stale copy.
	current, err := lockTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: transaction %s is cancelled", ErrInvalidState, current.TicketNumber)
	}

	next, err := applyPatch(*current, patch)
	if err != nil {
		return nil, err
	}
	if next.Tara != nil && current.Tara == nil {
		at := l.now()
		next.WeighedOutAt = &at
	}

	var taraVal, nettoVal decimal.NullDecimal
	if next.Tara != nil {
		taraVal = decimal.NewNullDecimal(*next.Tara)
	}
	if next.Netto != nil {
		nettoVal = decimal.NewNullDecimal(*next.Netto)
	}

	row := tx.QueryRow(ctx, `
		UPDATE weighing_transactions
		SET delivery_order_ref = $1, supplier_ref = $2, driver_ref = $3, vehicle_ref = $4,
		    product_kind = $5, bruto = $6, tara = $7, netto = $8, event_date = $9,
		    weighed_out_at = $10, note = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING `+transactionColumns,
		next.DeliveryOrderRef, next.SupplierRef, next.DriverRef, next.VehicleRef,
		next.ProductKind, next.Bruto, taraVal, nettoVal, next.EventDate,
		next.WeighedOutAt, next.Note, id,
	)
	doRef := ""
	if next.DeliveryOrderRef != nil {
		doRef = *next.DeliveryOrderRef
	}
	t, err := scanTransaction(row)
	if err != nil {
		return nil, translateWriteError(err, doRef, next.VehicleRef)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return t, nil
}

func (l *Ledger) Cancel(ctx context.Context, id int) (*WeighingTransaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled {
		return current, nil
	}

	row := tx.QueryRow(ctx, `
		UPDATE weighing_transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+transactionColumns,
		string(StatusCancelled), id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel transaction %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	log.Printf("[WEIGH] cancelled %s", t.TicketNumber)
	return t, nil
}

func (l *Ledger) GetByID(ctx context.Context, id int) (*WeighingTransaction, error) {
	t, err := scanTransaction(l.pool.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM weighing_transactions WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch transaction %d: %w", id, err)
	}
	return t, nil
}

func (l *Ledger) GetByDeliveryOrder(ctx context.Context, deliveryOrderRef string) (*WeighingTransaction, error) {
	t, err := scanTransaction(l.pool.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM weighing_transactions WHERE delivery_order_ref = $1", deliveryOrderRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: delivery order %s", ErrNotFound, deliveryOrderRef)
		}
		return nil, fmt.Errorf("failed to fetch delivery order %s: %w", deliveryOrderRef, err)
	}
	return t, nil
}

func (l *Ledger) GetByTicket(ctx context.Context, ticketNumber string) (*WeighingTransaction, error) {
	t, err := scanTransaction(l.pool.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM weighing_transactions WHERE ticket_number = $1", ticketNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: ticket %s", ErrNotFound, ticketNumber)
		}
		return nil, fmt.Errorf("failed to fetch ticket %s: %w", ticketNumber, err)
	}
	return t, nil
}

func (l *Ledger) ListPending(ctx context.Context, companyCode string) ([]WeighingTransaction, error) {
	return l.List(ctx, ListFilter{CompanyCode: companyCode, PendingOnly: true})
}

func (l *Ledger) List(ctx context.Context, f ListFilter) ([]WeighingTransaction, error) {
	q := "SELECT " + transactionColumns + " FROM weighing_transactions WHERE 1=1"
	var args []any
	if f.CompanyCode != "" {
		args = append(args, f.CompanyCode)
		q += fmt.Sprintf(" AND company_code = $%d", len(args))
	}
	if f.PendingOnly {
		q += " AND status = 'active' AND tara IS NULL"
	} else if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.VehicleRef != "" {
		args = append(args, f.VehicleRef)
		q += fmt.Sprintf(" AND vehicle_ref = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		q += fmt.Sprintf(" AND event_date >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		q += fmt.Sprintf(" AND event_date <= $%d", len(args))
	}
	q += " ORDER BY event_date ASC, id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []WeighingTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		localize(t, l.loc)
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transaction row iteration error: %w", err)
	}
	return out, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*WeighingTransaction, error) {
	var t WeighingTransaction
	var tara, netto decimal.NullDecimal
	var status string
	err := row.Scan(
		&t.ID, &t.TicketNumber, &t.DeliveryOrderRef, &t.CompanyCode, &t.SupplierRef, &t.DriverRef,
		&t.VehicleRef, &t.ProductKind, &t.Bruto, &tara, &netto, &t.EventDate, &t.WeighedOutAt,
		&status, &t.Note, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = TransactionStatus(status)
	if tara.Valid {
		t.Tara = &tara.Decimal
	}
	if netto.Valid {
		t.Netto = &netto.Decimal
	}
	return &t, nil
}

// localize expresses the transaction's timestamps in loc. pgx returns
// timestamptz values in time.Local, which need not match the yard's zone.
func localize(t *WeighingTransaction, loc *time.Location) {
	t.EventDate = t.EventDate.In(loc)
	if t.WeighedOutAt != nil {
		at := t.WeighedOutAt.In(loc)
		t.WeighedOutAt = &at
	}
}

// lockTransaction reads a transaction with a row lock held until tx ends.
func lockTransaction(ctx context.Context, tx pgx.Tx, id int) (*WeighingTransaction, error) {
	t, err := scanTransaction(tx.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM weighing_transactions WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock transaction %d: %w", id, err)
	}
	return t, nil
}

func translateWriteError(err error, doRef, vehicleRef string) error {
	if isUniqueViolation(err) {
		switch constraintName(err) {
		case constraintDeliveryOrderRef:
			return fmt.Errorf("%w: delivery order %s already recorded", ErrConflict, doRef)
		case constraintOpenVehicle:
			return fmt.Errorf("%w: vehicle %s already has an open weighing", ErrConflict, vehicleRef)
		case constraintTicketNumber:
			return fmt.Errorf("%w: ticket number collision: %v", ErrTicketContention, err)
		}
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if pgErrorCode(err) == pgCheckViolation {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if isContention(err) {
		return fmt.Errorf("%w: %v", ErrTicketContention, err)
	}
	return fmt.Errorf("failed to write transaction: %w", err)
}

func normalizeWeighIn(in WeighInInput) WeighInInput {
	in.DeliveryOrderRef = strings.TrimSpace(in.DeliveryOrderRef)
	in.SupplierRef = strings.TrimSpace(in.SupplierRef)
	in.DriverRef = strings.TrimSpace(in.DriverRef)
	in.VehicleRef = strings.ToUpper(strings.TrimSpace(in.VehicleRef))
	in.ProductKind = strings.TrimSpace(in.ProductKind)
	return in
}

func validateWeighIn(in WeighInInput) error {
	var missing []string
	if in.SupplierRef == "" {
		missing = append(missing, "supplier")
	}
	if in.DriverRef == "" {
		missing = append(missing, "driver")
	}
	if in.VehicleRef == "" {
		missing = append(missing, "vehicle")
	}
	if in.ProductKind == "" {
		missing = append(missing, "product kind")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !in.Bruto.IsPositive() {
		return fmt.Errorf("%w: bruto must be greater than zero, got %s", ErrValidation, in.Bruto)
	}
	return checkPlaces("bruto", in.Bruto)
}

// computeNetto returns bruto - tara exactly. A vehicle cannot leave heavier
// than it arrived, so tara above bruto is rejected rather than stored negative.
func computeNetto(bruto, tara decimal.Decimal) (decimal.Decimal, error) {
	if tara.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: tara must not be negative, got %s", ErrValidation, tara)
	}
	if err := checkPlaces("tara", tara); err != nil {
		return decimal.Zero, err
	}
	if tara.GreaterThan(bruto) {
		return decimal.Zero, fmt.Errorf("%w: tara %s exceeds bruto %s", ErrValidation, tara, bruto)
	}
	return bruto.Sub(tara), nil
}

// applyPatch merges patch into current and recomputes netto from the
// resulting bruto/tara pair.
func applyPatch(current WeighingTransaction, patch WeighingPatch) (WeighingTransaction, error) {
	next := current
	if patch.DeliveryOrderRef != nil {
		ref := strings.TrimSpace(*patch.DeliveryOrderRef)
		if ref == "" {
			next.DeliveryOrderRef = nil
		} else {
			next.DeliveryOrderRef = &ref
		}
	}
	if patch.SupplierRef != nil {
		next.SupplierRef = strings.TrimSpace(*patch.SupplierRef)
	}
	if patch.DriverRef != nil {
		next.DriverRef = strings.TrimSpace(*patch.DriverRef)
	}
	if patch.VehicleRef != nil {
		next.VehicleRef = strings.ToUpper(strings.TrimSpace(*patch.VehicleRef))
	}
	if patch.ProductKind != nil {
		next.ProductKind = strings.TrimSpace(*patch.ProductKind)
	}
	if patch.EventDate != nil {
		next.EventDate = *patch.EventDate
	}
	if patch.Note != nil {
		next.Note = *patch.Note
	}
	if patch.Bruto != nil {
		next.Bruto = *patch.Bruto
	}
	if patch.Tara != nil {
		tara := *patch.Tara
		next.Tara = &tara
	}

	if err := validateWeighIn(WeighInInput{
		SupplierRef: next.SupplierRef,
		DriverRef:   next.DriverRef,
		VehicleRef:  next.VehicleRef,
		ProductKind: next.ProductKind,
		Bruto:       next.Bruto,
	}); err != nil {
		return current, err
	}

	next.Netto = nil
	if next.Tara != nil {
		netto, err := computeNetto(next.Bruto, *next.Tara)
		if err != nil {
			return current, err
		}
		next.Netto = &netto
	}
	return next, nil
}
