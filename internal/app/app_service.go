package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"palm-weighbridge/internal/core"
	"palm-weighbridge/internal/scale"

	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

type appService struct {
	companies     core.CompanyService
	ledger        core.WeighingLedger
	grading       core.GradingEngine
	reports       core.ReportAggregator
	monitor       *scale.Monitor
	loc           *time.Location
	maxReadingAge time.Duration
}

// Options carries the settings the service needs from configuration.
type Options struct {
	Location      *time.Location
	MaxReadingAge time.Duration
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	companies core.CompanyService,
	ledger core.WeighingLedger,
	grading core.GradingEngine,
	reports core.ReportAggregator,
	monitor *scale.Monitor,
	opts Options,
) ApplicationService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if monitor == nil {
		monitor = scale.NewMonitor()
	}
	return &appService{
		companies:     companies,
		ledger:        ledger,
		grading:       grading,
		reports:       reports,
		monitor:       monitor,
		loc:           opts.Location,
		maxReadingAge: opts.MaxReadingAge,
	}
}

func (s *appService) ActiveCompany(ctx context.Context) (*core.Company, error) {
	return s.companies.ActiveCompany(ctx)
}

func (s *appService) ActivateCompany(ctx context.Context, companyCode string) (*core.Company, error) {
	companyCode = strings.TrimSpace(companyCode)
	if companyCode == "" {
		return nil, fmt.Errorf("%w: company code is required", core.ErrValidation)
	}
	return s.companies.Activate(ctx, companyCode)
}

// resolveCompany is called once per write so every record in a request is
// stamped with the same company.
func (s *appService) resolveCompany(ctx context.Context) (core.CompanyContext, error) {
	c, err := s.companies.ActiveCompany(ctx)
	if err != nil {
		return core.CompanyContext{}, err
	}
	return c.Context(), nil
}

// WeighIn records the laden weighing, completing it when Tara is present.
func (s *appService) WeighIn(ctx context.Context, req WeighInRequest) (*WeighingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	bruto, err := s.weightFrom(req.Bruto, req.Station, "bruto")
	if err != nil {
		return nil, err
	}

	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}

	in := core.WeighInInput{
		DeliveryOrderRef: req.DeliveryOrderRef,
		SupplierRef:      req.SupplierRef,
		DriverRef:        req.DriverRef,
		VehicleRef:       req.VehicleRef,
		ProductKind:      req.ProductKind,
		Bruto:            bruto,
		EventDate:        req.EventDate,
		Note:             req.Note,
		CreatedBy:        req.Operator,
	}

	var t *core.WeighingTransaction
	if req.Tara != nil {
		t, err = s.ledger.RecordWeighing(ctx, company, in, *req.Tara)
	} else {
		t, err = s.ledger.CreateIncoming(ctx, company, in)
	}
	if err != nil {
		return nil, err
	}
	return &WeighingResult{Transaction: t}, nil
}

func (s *appService) WeighOut(ctx context.Context, req WeighOutRequest) (*WeighingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	tara, err := s.weightFrom(req.Tara, req.Station, "tara")
	if err != nil {
		return nil, err
	}
	t, err := s.ledger.CompleteOutgoing(ctx, req.ID, tara)
	if err != nil {
		return nil, err
	}
	return &WeighingResult{Transaction: t}, nil
}

func (s *appService) UpdateWeighing(ctx context.Context, id int, req UpdateWeighingRequest) (*WeighingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	t, err := s.ledger.Update(ctx, id, core.WeighingPatch{
		DeliveryOrderRef: req.DeliveryOrderRef,
		SupplierRef:      req.SupplierRef,
		DriverRef:        req.DriverRef,
		VehicleRef:       req.VehicleRef,
		ProductKind:      req.ProductKind,
		Bruto:            req.Bruto,
		Tara:             req.Tara,
		EventDate:        req.EventDate,
		Note:             req.Note,
	})
	if err != nil {
		return nil, err
	}
	return &WeighingResult{Transaction: t}, nil
}

func (s *appService) CancelWeighing(ctx context.Context, id int) (*WeighingResult, error) {
	t, err := s.ledger.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WeighingResult{Transaction: t}, nil
}

// GetWeighing accepts a numeric ID or a ticket number.
func (s *appService) GetWeighing(ctx context.Context, ref string) (*WeighingResult, error) {
	ref = strings.TrimSpace(ref)
	var (
		t   *core.WeighingTransaction
		err error
	)
	if id, convErr := strconv.Atoi(ref); convErr == nil {
		t, err = s.ledger.GetByID(ctx, id)
	} else {
		t, err = s.ledger.GetByTicket(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, err
	}
	return s.withGrading(ctx, t)
}

func (s *appService) GetWeighingByDeliveryOrder(ctx context.Context, deliveryOrderRef string) (*WeighingResult, error) {
	t, err := s.ledger.GetByDeliveryOrder(ctx, strings.TrimSpace(deliveryOrderRef))
	if err != nil {
		return nil, err
	}
	return s.withGrading(ctx, t)
}

func (s *appService) withGrading(ctx context.Context, t *core.WeighingTransaction) (*WeighingResult, error) {
	g, err := s.grading.GetByTransaction(ctx, t.ID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	return &WeighingResult{Transaction: t, Grading: g}, nil
}

func (s *appService) ListPending(ctx context.Context) (*WeighingListResult, error) {
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.ListPending(ctx, company.Code)
	if err != nil {
		return nil, err
	}
	return &WeighingListResult{CompanyCode: company.Code, Transactions: nonNil(txs)}, nil
}

func (s *appService) ListWeighings(ctx context.Context, req ListWeighingsRequest) (*WeighingListResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}

	f := core.ListFilter{
		CompanyCode: company.Code,
		Status:      core.TransactionStatus(req.Status),
		VehicleRef:  strings.ToUpper(strings.TrimSpace(req.Vehicle)),
		Limit:       req.Limit,
	}
	if req.From != "" {
		from, err := s.parseDate(req.From)
		if err != nil {
			return nil, err
		}
		f.From = from
	}
	if req.To != "" {
		to, err := s.parseDate(req.To)
		if err != nil {
			return nil, err
		}
		f.To = to.AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	txs, err := s.ledger.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &WeighingListResult{CompanyCode: company.Code, Transactions: nonNil(txs)}, nil
}

func (s *appService) AttachGrading(ctx context.Context, req AttachGradingRequest) (*GradingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}
	c := req.Composition
	g, err := s.grading.Attach(ctx, company, req.TransactionID, core.GradingInput{
		TotalSample: req.TotalSample,
		Composition: core.Composition{
			Ripe:       c.Ripe,
			Unripe:     c.Unripe,
			Rotten:     c.Rotten,
			LooseFruit: c.LooseFruit,
			Trash:      c.Trash,
			Water:      c.Water,
		},
		Note:      req.Note,
		CreatedBy: req.Operator,
	})
	if err != nil {
		return nil, err
	}
	return &GradingResult{Grading: g}, nil
}

func (s *appService) UpdateGrading(ctx context.Context, id int, req UpdateGradingRequest) (*GradingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	g, err := s.grading.Update(ctx, id, core.GradingPatch{
		TotalSample: req.TotalSample,
		Composition: core.CompositionPatch{
			Ripe:       req.Ripe,
			Unripe:     req.Unripe,
			Rotten:     req.Rotten,
			LooseFruit: req.LooseFruit,
			Trash:      req.Trash,
			Water:      req.Water,
		},
		Note: req.Note,
	})
	if err != nil {
		return nil, err
	}
	return &GradingResult{Grading: g}, nil
}

func (s *appService) RemoveGrading(ctx context.Context, id int) error {
	return s.grading.Remove(ctx, id)
}

func (s *appService) GetGrading(ctx context.Context, id int) (*GradingResult, error) {
	g, err := s.grading.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GradingResult{Grading: g}, nil
}

func (s *appService) DailyReport(ctx context.Context, date string) (*core.DailyReport, error) {
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}
	day := time.Now().In(s.loc)
	if date != "" {
		if day, err = s.parseDate(date); err != nil {
			return nil, err
		}
	}
	return s.reports.DailyReport(ctx, company.Code, day)
}

func (s *appService) MonthlyReport(ctx context.Context, year, month int) (*core.MonthlyReport, error) {
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}
	if year == 0 && month == 0 {
		now := time.Now().In(s.loc)
		year, month = now.Year(), int(now.Month())
	}
	return s.reports.MonthlyReport(ctx, company.Code, year, month)
}

func (s *appService) GradingReport(ctx context.Context, from, to string) (*core.GradingReport, error) {
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.reports.GradingReport(ctx, company.Code, start, end)
}

func (s *appService) SupplierReport(ctx context.Context, supplierRef, from, to string) (*core.SupplierReport, error) {
	company, err := s.resolveCompany(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.reports.SupplierReport(ctx, company.Code, strings.TrimSpace(supplierRef), start, end)
}

func (s *appService) RecordScaleReading(ctx context.Context, req ScaleReadingRequest) (*scale.Reading, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	r, err := s.monitor.Record(scale.Reading{
		Station:   req.Station,
		Weight:    req.Weight,
		Unit:      req.Unit,
		Stable:    req.Stable,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	return &r, nil
}

func (s *appService) LatestScaleReading(ctx context.Context, station string) (*scale.Reading, error) {
	r, err := s.monitor.Latest(station)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return &r, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// weightFrom returns the typed weight, or captures one from station when no
// weight was typed. Supplying both is ambiguous and rejected.
func (s *appService) weightFrom(typed *decimal.Decimal, station, field string) (decimal.Decimal, error) {
	switch {
	case typed != nil && station != "":
		return decimal.Zero, fmt.Errorf("%w: give either %s or station, not both", core.ErrValidation, field)
	case typed != nil:
		return *typed, nil
	case station != "":
		w, err := s.monitor.StableWeight(station, s.maxReadingAge)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		return w, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s is required", core.ErrValidation, field)
	}
}

func (s *appService) parseDate(v string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(v), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", core.ErrValidation, v)
	}
	return t, nil
}

// today returns local midnight of the current day.
func (s *appService) today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// parseRange parses an inclusive date range. A missing end means the start
// day; a missing start means today.
func (s *appService) parseRange(from, to string) (time.Time, time.Time, error) {
	start := s.today()
	if from != "" {
		var err error
		if start, err = s.parseDate(from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	end := start
	if to != "" {
		var err error
		if end, err = s.parseDate(to); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %s before start date %s", core.ErrValidation, to, from)
	}
	return start, end, nil
}

// validateRequest runs struct-tag validation and reports failures as
// validation errors naming the offending fields.
func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: invalid %s", core.ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", core.ErrValidation, err)
}

func nonNil(txs []core.WeighingTransaction) []core.WeighingTransaction {
	if txs == nil {
		return []core.WeighingTransaction{}
	}
	return txs
}
