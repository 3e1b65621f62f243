package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID          int    `json:"id"`
	CompanyCode string `json:"company_code"`
	Name        string `json:"name"`
	IsActive    bool   `json:"is_active"`
}

// CompanyContext is the company resolved once per request by the calling
// layer. Operations that stamp a company onto new records take it explicitly.
type CompanyContext struct {
	ID   int
	Code string
}

type TicketCounter struct {
	CompanyCode string `json:"company_code"`
	Year        int    `json:"year"`
	LastNumber  int64  `json:"last_number"`
}

type TransactionStatus string

const (
	StatusActive    TransactionStatus = "active"
	StatusCancelled TransactionStatus = "cancelled"
)

// WeighingTransaction is one delivery across the weighbridge. Tara and Netto
// stay nil until the vehicle has been weighed out.
type WeighingTransaction struct {
	ID               int               `json:"id"`
	TicketNumber     string            `json:"ticket_number"`
	DeliveryOrderRef *string           `json:"delivery_order_ref,omitempty"`
	CompanyCode      string            `json:"company_code"`
	SupplierRef      string            `json:"supplier_ref"`
	DriverRef        string            `json:"driver_ref"`
	VehicleRef       string            `json:"vehicle_ref"`
	ProductKind      string            `json:"product_kind"`
	Bruto            decimal.Decimal   `json:"bruto"`
	Tara             *decimal.Decimal  `json:"tara,omitempty"`
	Netto            *decimal.Decimal  `json:"netto,omitempty"`
	EventDate        time.Time         `json:"event_date"`
	WeighedOutAt     *time.Time        `json:"weighed_out_at,omitempty"`
	Status           TransactionStatus `json:"status"`
	Note             string            `json:"note"`
	CreatedBy        string            `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// IsPending reports whether the vehicle is still waiting for its unladen weighing.
func (t *WeighingTransaction) IsPending() bool {
	return t.Status == StatusActive && t.Tara == nil
}

// WeighInInput carries the laden weighing of an arriving vehicle.
type WeighInInput struct {
	DeliveryOrderRef string
	SupplierRef      string
	DriverRef        string
	VehicleRef       string
	ProductKind      string
	Bruto            decimal.Decimal
	EventDate        *time.Time // nil means now
	Note             string
	CreatedBy        string
}

// WeighingPatch is a partial update. Nil fields are left untouched.
type WeighingPatch struct {
	DeliveryOrderRef *string
	SupplierRef      *string
	DriverRef        *string
	VehicleRef       *string
	ProductKind      *string
	Bruto            *decimal.Decimal
	Tara             *decimal.Decimal
	EventDate        *time.Time
	Note             *string
}

// ListFilter narrows WeighingLedger.List. Zero values mean "no bound".
type ListFilter struct {
	CompanyCode string
	Status      TransactionStatus
	PendingOnly bool // active and not yet weighed out
	VehicleRef  string
	From        time.Time
	To          time.Time
	Limit       int
}

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Grades lists every grade letter in display order.
var Grades = []Grade{GradeA, GradeB, GradeC, GradeD}

// Composition is the six-way percentage breakdown of a grading sample.
type Composition struct {
	Ripe       decimal.Decimal `json:"ripe"`
	Unripe     decimal.Decimal `json:"unripe"`
	Rotten     decimal.Decimal `json:"rotten"`
	LooseFruit decimal.Decimal `json:"loose_fruit"`
	Trash      decimal.Decimal `json:"trash"`
	Water      decimal.Decimal `json:"water"`
}

// CompositionPatch is a partial composition. Nil fields keep the stored value.
type CompositionPatch struct {
	Ripe       *decimal.Decimal
	Unripe     *decimal.Decimal
	Rotten     *decimal.Decimal
	LooseFruit *decimal.Decimal
	Trash      *decimal.Decimal
	Water      *decimal.Decimal
}

type Grading struct {
	ID            int             `json:"id"`
	TransactionID int             `json:"transaction_id"`
	CompanyCode   string          `json:"company_code"`
	TotalSample   decimal.Decimal `json:"total_sample"`
	Composition   Composition     `json:"composition"`
	GradeLetter   Grade           `json:"grade_letter"`
	Note          string          `json:"note"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type GradingInput struct {
	TotalSample decimal.Decimal
	Composition Composition
	Note        string
	CreatedBy   string
}

type GradingPatch struct {
	TotalSample *decimal.Decimal
	Composition CompositionPatch
	Note        *string
}
