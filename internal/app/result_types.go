package app

import "palm-weighbridge/internal/core"

// WeighingResult is returned by weighing lifecycle operations. Grading is nil
// until the weighing has been graded.
type WeighingResult struct {
	Transaction *core.WeighingTransaction `json:"transaction"`
	Grading     *core.Grading             `json:"grading,omitempty"`
}

// WeighingListResult is returned by ListPending and ListWeighings.
type WeighingListResult struct {
	CompanyCode  string                     `json:"company_code"`
	Transactions []core.WeighingTransaction `json:"transactions"`
}

// GradingResult is returned by grading operations.
type GradingResult struct {
	Grading *core.Grading `json:"grading"`
}
