package core_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"palm-weighbridge/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var testCompany = core.CompanyContext{ID: 1, Code: "PKS001"}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live weighbridge data.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE gradings, weighing_transactions, ticket_counters, companies RESTART IDENTITY CASCADE;

		INSERT INTO companies (id, company_code, name, is_active) VALUES
		(1, 'PKS001', 'Test Mill', true),
		(2, 'PKS002', 'Second Mill', false);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newTestLedger(pool *pgxpool.Pool) *core.Ledger {
	return core.NewLedger(pool, core.NewTicketSequencer(pool), time.UTC)
}

func weighIn(vehicle, doRef string, bruto string, at time.Time) core.WeighInInput {
	return core.WeighInInput{
		DeliveryOrderRef: doRef,
		SupplierRef:      "SUP-01",
		DriverRef:        "DRV-01",
		VehicleRef:       vehicle,
		ProductKind:      "TBS",
		Bruto:            d(bruto),
		EventDate:        &at,
		CreatedBy:        "operator",
	}
}

func TestLedger_WeighInThenWeighOut(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()
	at := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)

	// 1. Laden weighing creates a pending record with a fresh ticket.
	trx, err := ledger.CreateIncoming(ctx, testCompany, weighIn("bk 1234 xy", "DO-001", "15750.75", at))
	if err != nil {
		t.Fatalf("CreateIncoming failed: %v", err)
	}
	if trx.TicketNumber != "PKS001-2400001" {
		t.Errorf("expected ticket PKS001-2400001, got %s", trx.TicketNumber)
	}
	if trx.VehicleRef != "BK 1234 XY" {
		t.Errorf("expected normalized vehicle, got %q", trx.VehicleRef)
	}
	if !trx.IsPending() || trx.Tara != nil || trx.Netto != nil {
		t.Fatalf("expected pending record without tara/netto, got %+v", trx)
	}

	pending, err := ledger.ListPending(ctx, testCompany.Code)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != trx.ID {
		t.Fatalf("expected the new record in the pending queue, got %d rows", len(pending))
	}

	// 2. Unladen weighing derives netto exactly.
	done, err := ledger.CompleteOutgoing(ctx, trx.ID, d("5000.00"))
	if err != nil {
		t.Fatalf("CompleteOutgoing failed: %v", err)
	}
	if done.Netto == nil || !done.Netto.Equal(d("10750.75")) {
		t.Errorf("expected netto 10750.75, got %v", done.Netto)
	}
	if done.WeighedOutAt == nil {
		t.Errorf("expected weighed_out_at to be set")
	}

	pending, _ = ledger.ListPending(ctx, testCompany.Code)
	if len(pending) != 0 {
		t.Errorf("expected empty pending queue after weigh-out, got %d", len(pending))
	}

	// 3. Lookups by DO and ticket resolve to the same record.
	byDO, err := ledger.GetByDeliveryOrder(ctx, "DO-001")
	if err != nil || byDO.ID != trx.ID {
		t.Errorf("GetByDeliveryOrder mismatch: %v", err)
	}
	byTicket, err := ledger.GetByTicket(ctx, trx.TicketNumber)
	if err != nil || byTicket.ID != trx.ID {
		t.Errorf("GetByTicket mismatch: %v", err)
	}
}

func TestLedger_TaraAboveBrutoRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()

	trx, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 1", "", "5000", time.Now()))
	if err != nil {
		t.Fatalf("CreateIncoming failed: %v", err)
	}
	_, err = ledger.CompleteOutgoing(ctx, trx.ID, d("5000.01"))
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	stored, _ := ledger.GetByID(ctx, trx.ID)
	if !stored.IsPending() {
		t.Errorf("rejected weigh-out must leave the record pending")
	}
}

func TestLedger_RejectsWeightsFinerThanStored(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()

	if _, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 2", "", "10.005", time.Now())); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for three-place bruto, got %v", err)
	}

	trx, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 2", "", "10.00", time.Now()))
	if err != nil {
		t.Fatalf("CreateIncoming failed: %v", err)
	}
	if _, err := ledger.CompleteOutgoing(ctx, trx.ID, d("0.005")); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation for three-place tara, got %v", err)
	}
	stored, _ := ledger.GetByID(ctx, trx.ID)
	if !stored.IsPending() {
		t.Errorf("rejected weigh-out must leave the record pending")
	}
}

func TestLedger_DuplicateDeliveryOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	if _, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 1", "DO-42", "9000", at)); err != nil {
		t.Fatalf("first CreateIncoming failed: %v", err)
	}

	_, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 2", "DO-42", "9100", at))
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate DO, got %v", err)
	}

	// The failed insert must not burn a ticket number.
	next, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 3", "DO-43", "9200", at))
	if err != nil {
		t.Fatalf("third CreateIncoming failed: %v", err)
	}
	if next.TicketNumber != "PKS001-2400002" {
		t.Errorf("expected gapless ticket PKS001-2400002, got %s", next.TicketNumber)
	}
}

func TestLedger_VehicleSingleOpenWeighing(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()

	first, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 7", "", "8000", time.Now()))
	if err != nil {
		t.Fatalf("CreateIncoming failed: %v", err)
	}
	if _, err := ledger.CreateIncoming(ctx, testCompany, weighIn("bk 7", "", "8100", time.Now())); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for second open weighing, got %v", err)
	}

	if _, err := ledger.CompleteOutgoing(ctx, first.ID, d("3000")); err != nil {
		t.Fatalf("CompleteOutgoing failed: %v", err)
	}
	if _, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 7", "", "8200", time.Now())); err != nil {
		t.Errorf("vehicle should be free after weigh-out, got %v", err)
	}
}

func TestLedger_CancelThenWeighOut(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()

	trx, err := ledger.CreateIncoming(ctx, testCompany, weighIn("BK 9", "", "12000", time.Now()))
	if err != nil {
		t.Fatalf("CreateIncoming failed: %v", err)
	}

	cancelled, err := ledger.Cancel(ctx, trx.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != core.StatusCancelled || cancelled.TicketNumber != trx.TicketNumber {
		t.Errorf("expected cancelled record keeping its ticket, got %+v", cancelled)
	}

	// Cancel is idempotent.
	if _, err := ledger.Cancel(ctx, trx.ID); err != nil {
		t.Errorf("second Cancel should succeed, got %v", err)
	}

	_, err = ledger.CompleteOutgoing(ctx, trx.ID, d("4000"))
	if !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := ledger.Update(ctx, trx.ID, core.WeighingPatch{Note: strPtr("late edit")}); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on update, got %v", err)
	}
}

func TestLedger_UpdateRecomputesNetto(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()

	trx, err := ledger.RecordWeighing(ctx, testCompany, weighIn("BK 5", "", "15000", time.Now()), d("5000"))
	if err != nil {
		t.Fatalf("RecordWeighing failed: %v", err)
	}
	if !trx.Netto.Equal(d("10000")) {
		t.Fatalf("expected netto 10000, got %s", trx.Netto)
	}

	bruto := d("16000")
	updated, err := ledger.Update(ctx, trx.ID, core.WeighingPatch{Bruto: &bruto})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated.Netto.Equal(d("11000")) {
		t.Errorf("expected netto 11000 from patched bruto and stored tara, got %s", updated.Netto)
	}
}

func TestLedger_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newTestLedger(pool)
	ctx := context.Background()

	if _, err := ledger.GetByID(ctx, 999999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ledger.CompleteOutgoing(ctx, 999999, d("1")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ledger.CreateIncoming(ctx, core.CompanyContext{}, weighIn("BK 1", "", "1", time.Now())); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration without company, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
