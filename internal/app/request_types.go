package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeighInRequest is the input for a laden weighing. Exactly one of Bruto or
// Station supplies the weight. A non-nil Tara completes the weighing at once.
type WeighInRequest struct {
	DeliveryOrderRef string           `json:"delivery_order_ref" validate:"max=60"`
	SupplierRef      string           `json:"supplier_ref" validate:"required,max=60"`
	DriverRef        string           `json:"driver_ref" validate:"required,max=60"`
	VehicleRef       string           `json:"vehicle_ref" validate:"required,max=30"`
	ProductKind      string           `json:"product_kind" validate:"required,max=40"`
	Bruto            *decimal.Decimal `json:"bruto"`
	Tara             *decimal.Decimal `json:"tara"`
	Station          string           `json:"station" validate:"max=40"`
	EventDate        *time.Time       `json:"event_date"`
	Note             string           `json:"note" validate:"max=500"`
	Operator         string           `json:"-"`
}

// WeighOutRequest is the input for the unladen weighing of a pending record.
type WeighOutRequest struct {
	ID      int              `json:"-" validate:"required,min=1"`
	Tara    *decimal.Decimal `json:"tara"`
	Station string           `json:"station" validate:"max=40"`
}

// UpdateWeighingRequest is a partial correction. Nil fields are left untouched;
// an empty delivery_order_ref clears it.
type UpdateWeighingRequest struct {
	DeliveryOrderRef *string          `json:"delivery_order_ref" validate:"omitempty,max=60"`
	SupplierRef      *string          `json:"supplier_ref" validate:"omitempty,min=1,max=60"`
	DriverRef        *string          `json:"driver_ref" validate:"omitempty,min=1,max=60"`
	VehicleRef       *string          `json:"vehicle_ref" validate:"omitempty,min=1,max=30"`
	ProductKind      *string          `json:"product_kind" validate:"omitempty,min=1,max=40"`
	Bruto            *decimal.Decimal `json:"bruto"`
	Tara             *decimal.Decimal `json:"tara"`
	EventDate        *time.Time       `json:"event_date"`
	Note             *string          `json:"note" validate:"omitempty,max=500"`
}

// ListWeighingsRequest filters ListWeighings. From and To are YYYY-MM-DD.
type ListWeighingsRequest struct {
	Status  string `validate:"omitempty,oneof=active cancelled"`
	Vehicle string
	From    string
	To      string
	Limit   int `validate:"min=0,max=1000"`
}

// CompositionInput carries the six grading percentages.
type CompositionInput struct {
	Ripe       decimal.Decimal `json:"ripe"`
	Unripe     decimal.Decimal `json:"unripe"`
	Rotten     decimal.Decimal `json:"rotten"`
	LooseFruit decimal.Decimal `json:"loose_fruit"`
	Trash      decimal.Decimal `json:"trash"`
	Water      decimal.Decimal `json:"water"`
}

// AttachGradingRequest grades the weighing identified by TransactionID.
type AttachGradingRequest struct {
	TransactionID int              `json:"transaction_id" validate:"required,min=1"`
	TotalSample   decimal.Decimal  `json:"total_sample"`
	Composition   CompositionInput `json:"composition"`
	Note          string           `json:"note" validate:"max=500"`
	Operator      string           `json:"-"`
}

// UpdateGradingRequest is a partial grading correction.
type UpdateGradingRequest struct {
	TotalSample *decimal.Decimal `json:"total_sample"`
	Ripe        *decimal.Decimal `json:"ripe"`
	Unripe      *decimal.Decimal `json:"unripe"`
	Rotten      *decimal.Decimal `json:"rotten"`
	LooseFruit  *decimal.Decimal `json:"loose_fruit"`
	Trash       *decimal.Decimal `json:"trash"`
	Water       *decimal.Decimal `json:"water"`
	Note        *string          `json:"note" validate:"omitempty,max=500"`
}

// ScaleReadingRequest is one sample from a weighbridge indicator.
type ScaleReadingRequest struct {
	Station   string          `json:"-" validate:"required,max=40"`
	Weight    decimal.Decimal `json:"weight"`
	Unit      string          `json:"unit" validate:"omitempty,oneof=kg t"`
	Stable    bool            `json:"stable"`
	Timestamp time.Time       `json:"timestamp"`
}
