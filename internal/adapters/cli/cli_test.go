package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"palm-weighbridge/internal/app"
	"palm-weighbridge/internal/core"

	"github.com/shopspring/decimal"
)

type stubService struct {
	app.ApplicationService

	err          error
	lastWeighIn  app.WeighInRequest
	lastWeighOut app.WeighOutRequest
	lastGrading  app.AttachGradingRequest
	lastList     app.ListWeighingsRequest
	lastYear     int
	lastMonth    int
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleTransaction() *core.WeighingTransaction {
	tara, netto := dec("5000"), dec("10750.75")
	return &core.WeighingTransaction{
		ID:           7,
		TicketNumber: "PKS001-2400007",
		CompanyCode:  "PKS001",
		SupplierRef:  "SUP-01",
		VehicleRef:   "BK 1234 XY",
		Bruto:        dec("15750.75"),
		Tara:         &tara,
		Netto:        &netto,
		EventDate:    time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC),
		Status:       core.StatusActive,
	}
}

func (s *stubService) WeighIn(ctx context.Context, req app.WeighInRequest) (*app.WeighingResult, error) {
	s.lastWeighIn = req
	if s.err != nil {
		return nil, s.err
	}
	return &app.WeighingResult{Transaction: sampleTransaction()}, nil
}

func (s *stubService) WeighOut(ctx context.Context, req app.WeighOutRequest) (*app.WeighingResult, error) {
	s.lastWeighOut = req
	return &app.WeighingResult{Transaction: sampleTransaction()}, s.err
}

func (s *stubService) AttachGrading(ctx context.Context, req app.AttachGradingRequest) (*app.GradingResult, error) {
	s.lastGrading = req
	if s.err != nil {
		return nil, s.err
	}
	return &app.GradingResult{Grading: &core.Grading{ID: 1, TransactionID: req.TransactionID, GradeLetter: core.GradeB}}, nil
}

func (s *stubService) ListWeighings(ctx context.Context, req app.ListWeighingsRequest) (*app.WeighingListResult, error) {
	s.lastList = req
	return &app.WeighingListResult{CompanyCode: "PKS001", Transactions: []core.WeighingTransaction{*sampleTransaction()}}, nil
}

func (s *stubService) MonthlyReport(ctx context.Context, year, month int) (*core.MonthlyReport, error) {
	s.lastYear, s.lastMonth = year, month
	return &core.MonthlyReport{
		CompanyCode: "PKS001",
		Year:        year,
		Month:       month,
		BySupplier:  []core.SupplierTotal{{SupplierRef: "SUP-01", Count: 2, Netto: dec("21000.50")}},
	}, nil
}

func (s *stubService) DailyReport(ctx context.Context, date string) (*core.DailyReport, error) {
	return &core.DailyReport{CompanyCode: "PKS001", Date: "2024-05-10", Transactions: []core.WeighingTransaction{*sampleTransaction()}}, nil
}

func TestRun_WeighIn(t *testing.T) {
	t.Setenv("WB_OPERATOR", "budi")
	svc := &stubService{}
	var out bytes.Buffer

	err := Run(context.Background(), svc, []string{
		"weigh-in", "--supplier", "SUP-01", "--driver", "DRV-01", "--vehicle", "BK 1234 XY",
		"--bruto", "15750.75", "--tara", "5000", "--do", "DO-001",
	}, &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	req := svc.lastWeighIn
	if req.Bruto == nil || !req.Bruto.Equal(dec("15750.75")) {
		t.Errorf("expected bruto 15750.75, got %v", req.Bruto)
	}
	if req.Tara == nil || !req.Tara.Equal(dec("5000")) {
		t.Errorf("expected tara 5000, got %v", req.Tara)
	}
	if req.ProductKind != "TBS" || req.DeliveryOrderRef != "DO-001" || req.Operator != "budi" {
		t.Errorf("unexpected request %+v", req)
	}
	if !strings.Contains(out.String(), "PKS001-2400007") || !strings.Contains(out.String(), "10750.75") {
		t.Errorf("ticket and netto should be printed, got:\n%s", out.String())
	}
}

func TestRun_WeighInWithoutTaraStaysPending(t *testing.T) {
	svc := &stubService{}
	err := Run(context.Background(), svc, []string{"in", "--supplier", "S", "--driver", "D", "--vehicle", "V", "--bruto", "9000"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if svc.lastWeighIn.Tara != nil {
		t.Errorf("tara should be nil when not given")
	}
}

func TestRun_WeighOutAcceptsIDBeforeOrAfterFlags(t *testing.T) {
	for _, args := range [][]string{
		{"weigh-out", "7", "--tara", "5000"},
		{"weigh-out", "--tara", "5000", "7"},
	} {
		svc := &stubService{}
		if err := Run(context.Background(), svc, args, &bytes.Buffer{}); err != nil {
			t.Fatalf("Run(%v) failed: %v", args, err)
		}
		if svc.lastWeighOut.ID != 7 || !svc.lastWeighOut.Tara.Equal(dec("5000")) {
			t.Errorf("Run(%v): unexpected request %+v", args, svc.lastWeighOut)
		}
	}
}

func TestRun_Grade(t *testing.T) {
	svc := &stubService{}
	var out bytes.Buffer
	err := Run(context.Background(), svc, []string{
		"grade", "7", "--sample", "25", "--ripe", "80", "--unripe", "10", "--rotten", "2",
		"--loose", "5", "--trash", "2", "--water", "1", "--note", "sortasi pagi",
	}, &out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	g := svc.lastGrading
	if g.TransactionID != 7 || !g.Composition.Ripe.Equal(dec("80")) || !g.Composition.LooseFruit.Equal(dec("5")) {
		t.Errorf("unexpected grading request %+v", g)
	}
	if g.Note != "sortasi pagi" {
		t.Errorf("expected note to be forwarded, got %q", g.Note)
	}
	if !strings.Contains(out.String(), "GRADE B") {
		t.Errorf("expected grade letter in output, got:\n%s", out.String())
	}
}

func TestRun_GradeMissingField(t *testing.T) {
	err := Run(context.Background(), &stubService{}, []string{"grade", "7", "--sample", "25", "--ripe", "80"}, &bytes.Buffer{})
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
}

func TestRun_ListFilters(t *testing.T) {
	svc := &stubService{}
	err := Run(context.Background(), svc, []string{"list", "--status", "cancelled", "--from", "2024-05-01", "--limit", "10"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if svc.lastList.Status != "cancelled" || svc.lastList.From != "2024-05-01" || svc.lastList.Limit != 10 {
		t.Errorf("unexpected list request %+v", svc.lastList)
	}
}

func TestRun_Monthly(t *testing.T) {
	svc := &stubService{}
	var out bytes.Buffer
	if err := Run(context.Background(), svc, []string{"monthly", "2024", "5"}, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if svc.lastYear != 2024 || svc.lastMonth != 5 {
		t.Errorf("expected 2024-05, got %d-%d", svc.lastYear, svc.lastMonth)
	}
	if !strings.Contains(out.String(), "MONTHLY REPORT 2024-05") || !strings.Contains(out.String(), "21000.50") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	if err := Run(context.Background(), svc, []string{"monthly", "2024", "may"}, &bytes.Buffer{}); !errors.Is(err, ErrUsage) {
		t.Errorf("expected ErrUsage for non-numeric month, got %v", err)
	}
}

func TestRun_DailyToCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	var out bytes.Buffer
	if err := Run(context.Background(), &stubService{}, []string{"daily", "--csv", path, "2024-05-10"}, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.Contains(string(body), "PKS001-2400007") {
		t.Errorf("csv should contain the ticket, got:\n%s", body)
	}
	if !strings.Contains(out.String(), "Wrote "+path) {
		t.Errorf("expected confirmation, got %q", out.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"launch"},
		{"weigh-out", "abc", "--tara", "1"},
		{"weigh-in", "--bruto", "heavy"},
		{"show"},
	}
	for _, args := range tests {
		err := Run(context.Background(), &stubService{}, args, &bytes.Buffer{})
		if !errors.Is(err, ErrUsage) {
			t.Errorf("Run(%v): expected ErrUsage, got %v", args, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("%w: bad", ErrUsage), 2},
		{fmt.Errorf("%w: busy", core.ErrTicketContention), 75},
		{fmt.Errorf("%w: nope", core.ErrNotFound), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRun_ServiceErrorPassesThrough(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: vehicle BK 1 already on the bridge", core.ErrConflict)}
	err := Run(context.Background(), svc, []string{"weigh-in", "--supplier", "S", "--driver", "D", "--vehicle", "BK 1", "--bruto", "1"}, &bytes.Buffer{})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
