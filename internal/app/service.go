package app

import (
	"context"

	"palm-weighbridge/internal/core"
	"palm-weighbridge/internal/scale"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Every write resolves the active company once and passes it down explicitly.
type ApplicationService interface {
	// ActiveCompany returns the company new weighings are stamped with.
	ActiveCompany(ctx context.Context) (*core.Company, error)

	// ActivateCompany switches the active company.
	ActivateCompany(ctx context.Context, companyCode string) (*core.Company, error)

	// WeighIn records an arriving vehicle. When Tara is supplied the record is
	// completed in the same call. Weights may instead be captured from a scale station.
	WeighIn(ctx context.Context, req WeighInRequest) (*WeighingResult, error)

	// WeighOut records the unladen weight of a pending weighing.
	WeighOut(ctx context.Context, req WeighOutRequest) (*WeighingResult, error)

	// UpdateWeighing applies a partial correction. Netto is recomputed.
	UpdateWeighing(ctx context.Context, id int, req UpdateWeighingRequest) (*WeighingResult, error)

	// CancelWeighing voids a weighing. The ticket number stays consumed.
	CancelWeighing(ctx context.Context, id int) (*WeighingResult, error)

	// GetWeighing returns a weighing and its grading, if any. ref may be a
	// numeric ID or a ticket number.
	GetWeighing(ctx context.Context, ref string) (*WeighingResult, error)

	// GetWeighingByDeliveryOrder looks a weighing up by its delivery order reference.
	GetWeighingByDeliveryOrder(ctx context.Context, deliveryOrderRef string) (*WeighingResult, error)

	// ListPending returns vehicles weighed in but not yet weighed out.
	ListPending(ctx context.Context) (*WeighingListResult, error)

	// ListWeighings returns weighings of the active company filtered by status and date.
	ListWeighings(ctx context.Context, req ListWeighingsRequest) (*WeighingListResult, error)

	// AttachGrading grades a weighing. A weighing holds at most one grading.
	AttachGrading(ctx context.Context, req AttachGradingRequest) (*GradingResult, error)

	UpdateGrading(ctx context.Context, id int, req UpdateGradingRequest) (*GradingResult, error)
	RemoveGrading(ctx context.Context, id int) error
	GetGrading(ctx context.Context, id int) (*GradingResult, error)

	// DailyReport totals one local calendar day. date is YYYY-MM-DD; empty means today.
	DailyReport(ctx context.Context, date string) (*core.DailyReport, error)

	// MonthlyReport totals a calendar month grouped by supplier.
	MonthlyReport(ctx context.Context, year, month int) (*core.MonthlyReport, error)

	// GradingReport averages gradings over [from, to]. Dates are YYYY-MM-DD.
	GradingReport(ctx context.Context, from, to string) (*core.GradingReport, error)

	// SupplierReport rolls up one supplier's weights and grading over [from, to].
	SupplierReport(ctx context.Context, supplierRef, from, to string) (*core.SupplierReport, error)

	// RecordScaleReading stores an indicator sample pushed by the scale bridge.
	RecordScaleReading(ctx context.Context, req ScaleReadingRequest) (*scale.Reading, error)

	// LatestScaleReading returns the most recent sample for station.
	LatestScaleReading(ctx context.Context, station string) (*scale.Reading, error)
}
