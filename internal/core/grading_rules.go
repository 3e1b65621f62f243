package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultSumTolerance absorbs representation error when the six composition
// percentages are summed.
var DefaultSumTolerance = decimal.RequireFromString("0.01")

// storedPlaces is the scale of every weight and percentage column. Values
// with more places are rejected so the grade and netto are derived from
// exactly what gets stored.
const storedPlaces = 2

var (
	hundred   = decimal.NewFromInt(100)
	gradeAMin = decimal.NewFromInt(90)
	gradeBMin = decimal.NewFromInt(80)
	gradeCMin = decimal.NewFromInt(70)
)

// Classify maps a composition to its grade letter. Only the ripe percentage
// participates; each band includes its lower bound.
func Classify(c Composition) Grade {
	switch {
	case c.Ripe.GreaterThanOrEqual(gradeAMin):
		return GradeA
	case c.Ripe.GreaterThanOrEqual(gradeBMin):
		return GradeB
	case c.Ripe.GreaterThanOrEqual(gradeCMin):
		return GradeC
	default:
		return GradeD
	}
}

// Sum returns the total of the six percentages.
func (c Composition) Sum() decimal.Decimal {
	return decimal.Sum(c.Ripe, c.Unripe, c.Rotten, c.LooseFruit, c.Trash, c.Water)
}

func (c Composition) fields() []struct {
	name  string
	value decimal.Decimal
} {
	return []struct {
		name  string
		value decimal.Decimal
	}{
		{"ripe", c.Ripe},
		{"unripe", c.Unripe},
		{"rotten", c.Rotten},
		{"loose_fruit", c.LooseFruit},
		{"trash", c.Trash},
		{"water", c.Water},
	}
}

// ValidateComposition checks every percentage lies in [0, 100] with at most
// two decimal places and that the six add up to 100 within tolerance.
func ValidateComposition(c Composition, tolerance decimal.Decimal) error {
	for _, f := range c.fields() {
		if err := checkPlaces(f.name+" percentage", f.value); err != nil {
			return err
		}
		if f.value.IsNegative() || f.value.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s percentage %s out of range 0-100", ErrValidation, f.name, f.value)
		}
	}
	sum := c.Sum()
	if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
		return fmt.Errorf("%w: composition sums to %s, expected 100 (±%s)", ErrValidation, sum, tolerance)
	}
	return nil
}

// Merge overlays the non-nil fields of p onto c.
func (c Composition) Merge(p CompositionPatch) Composition {
	if p.Ripe != nil {
		c.Ripe = *p.Ripe
	}
	if p.Unripe != nil {
		c.Unripe = *p.Unripe
	}
	if p.Rotten != nil {
		c.Rotten = *p.Rotten
	}
	if p.LooseFruit != nil {
		c.LooseFruit = *p.LooseFruit
	}
	if p.Trash != nil {
		c.Trash = *p.Trash
	}
	if p.Water != nil {
		c.Water = *p.Water
	}
	return c
}

func validateTotalSample(total decimal.Decimal) error {
	if !total.IsPositive() {
		return fmt.Errorf("%w: total sample must be greater than zero, got %s", ErrValidation, total)
	}
	return checkPlaces("total sample", total)
}

// checkPlaces rejects d when it carries more than storedPlaces significant
// decimal places. Trailing zeros ("90.000") are accepted.
func checkPlaces(name string, d decimal.Decimal) error {
	if !d.Equal(d.Round(storedPlaces)) {
		return fmt.Errorf("%w: %s %s has more than %d decimal places", ErrValidation, name, d, storedPlaces)
	}
	return nil
}
