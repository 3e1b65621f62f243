package core_test

import (
	"errors"
	"testing"

	"palm-weighbridge/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func composition(ripe, unripe, rotten, loose, trash, water string) core.Composition {
	return core.Composition{
		Ripe:       d(ripe),
		Unripe:     d(unripe),
		Rotten:     d(rotten),
		LooseFruit: d(loose),
		Trash:      d(trash),
		Water:      d(water),
	}
}

func TestClassify_BandBoundaries(t *testing.T) {
	tests := []struct {
		ripe string
		want core.Grade
	}{
		{"100", core.GradeA},
		{"90.00", core.GradeA},
		{"89.99", core.GradeB},
		{"80.0", core.GradeB},
		{"79.99", core.GradeC},
		{"70.0", core.GradeC},
		{"69.99", core.GradeD},
		{"0", core.GradeD},
	}

	for _, tt := range tests {
		t.Run(tt.ripe, func(t *testing.T) {
			got := core.Classify(core.Composition{Ripe: d(tt.ripe)})
			if got != tt.want {
				t.Errorf("Classify(ripe=%s) = %s, want %s", tt.ripe, got, tt.want)
			}
		})
	}
}

func TestClassify_IgnoresOtherFields(t *testing.T) {
	// {80,10,2,5,2,1} sums to 100 and grades B on ripe alone.
	c := composition("80", "10", "2", "5", "2", "1")
	if got := core.Classify(c); got != core.GradeB {
		t.Errorf("expected B, got %s", got)
	}
	c.Rotten = d("50")
	if got := core.Classify(c); got != core.GradeB {
		t.Errorf("rotten must not influence grade, got %s", got)
	}
}

func TestValidateComposition(t *testing.T) {
	tol := core.DefaultSumTolerance

	tests := []struct {
		name      string
		c         core.Composition
		expectErr bool
	}{
		{"exact 100", composition("80", "10", "2", "5", "2", "1"), false},
		{"100.01 within tolerance", composition("80.01", "10", "2", "5", "2", "1"), false},
		{"99.99 within tolerance", composition("79.99", "10", "2", "5", "2", "1"), false},
		{"100.02 outside tolerance", composition("80.02", "10", "2", "5", "2", "1"), true},
		{"99.98 outside tolerance", composition("79.98", "10", "2", "5", "2", "1"), true},
		{"sum 105", composition("85", "10", "2", "5", "2", "1"), true},
		{"sum 95", composition("75", "10", "2", "5", "2", "1"), true},
		{"negative field", composition("102", "-2", "0", "0", "0", "0"), true},
		{"field above 100", composition("101", "0", "0", "0", "0", "-1"), true},
		{"ripe with three places", composition("89.996", "10.004", "0", "0", "0", "0"), true},
		{"water with three places", composition("80", "10", "2", "5", "2", "1.001"), true},
		{"trailing zeros are fine", composition("90.000", "10.00", "0", "0", "0", "0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := core.ValidateComposition(tt.c, tol)
			if tt.expectErr && err == nil {
				t.Fatalf("expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateComposition_GradeMatchesStoredValue(t *testing.T) {
	// Columns hold two decimal places; a composition that validates must
	// classify the same once rounded the way it is stored.
	inputs := []core.Composition{
		composition("89.996", "10.004", "0", "0", "0", "0"),
		composition("79.995", "20.005", "0", "0", "0", "0"),
		composition("90", "10", "0", "0", "0", "0"),
		composition("89.99", "10.01", "0", "0", "0", "0"),
	}
	for _, c := range inputs {
		if err := core.ValidateComposition(c, core.DefaultSumTolerance); err != nil {
			continue
		}
		stored := c
		stored.Ripe = c.Ripe.Round(2)
		if got, want := core.Classify(c), core.Classify(stored); got != want {
			t.Errorf("ripe %s: grade %s written but stored value %s grades %s", c.Ripe, got, stored.Ripe, want)
		}
	}
}

func TestValidateComposition_ConfigurableTolerance(t *testing.T) {
	c := composition("80.02", "10", "2", "5", "2", "1") // 100.02
	if err := core.ValidateComposition(c, d("0.01")); err == nil {
		t.Errorf("expected 100.02 to fail at tolerance 0.01")
	}
	if err := core.ValidateComposition(c, d("0.05")); err != nil {
		t.Errorf("expected 100.02 to pass at tolerance 0.05, got %v", err)
	}
}

func TestComposition_Merge(t *testing.T) {
	stored := composition("80", "10", "2", "5", "2", "1")
	ripe, unripe := d("91"), d("0")
	merged := stored.Merge(core.CompositionPatch{Ripe: &ripe, Unripe: &unripe})

	if !merged.Ripe.Equal(d("91")) || !merged.Unripe.IsZero() {
		t.Errorf("patched fields not applied: %+v", merged)
	}
	if !merged.Rotten.Equal(d("2")) || !merged.Water.Equal(d("1")) {
		t.Errorf("untouched fields changed: %+v", merged)
	}
	if !merged.Sum().Equal(d("101")) {
		t.Errorf("expected merged sum 101, got %s", merged.Sum())
	}
	if core.Classify(merged) != core.GradeA {
		t.Errorf("expected regrade to A")
	}
}

func TestFormatTicket(t *testing.T) {
	tests := []struct {
		company string
		year    int
		n       int64
		want    string
	}{
		{"PKS001", 2024, 1, "PKS001-2400001"},
		{"PKS001", 2024, 157, "PKS001-2400157"},
		{"PKS001", 2030, 99999, "PKS001-3099999"},
		{"PKS002", 2105, 7, "PKS002-0500007"},
	}
	for _, tt := range tests {
		if got := core.FormatTicket(tt.company, tt.year, tt.n); got != tt.want {
			t.Errorf("FormatTicket(%s, %d, %d) = %s, want %s", tt.company, tt.year, tt.n, got, tt.want)
		}
	}
}
