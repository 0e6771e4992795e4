package payroll

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeAnnualTaxDefaultSlabs(t *testing.T) {
	cases := []struct {
		name   string
		income float64
		want   float64
	}{
		{"zero income", 0, 0},
		{"inside free slab", 200000, 0},
		{"free slab boundary", 250000, 0},
		{"inside five percent slab", 300000, 2500},
		{"five percent boundary", 500000, 12500},
		{"inside twenty percent slab", 750000, 62500},
		{"twenty percent boundary", 1000000, 112500},
		{"into top slab", 1200000, 172500},
		{"deep in top slab", 1500000, 262500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeAnnualTax(DefaultTaxSlabs, tc.income)
			if !almostEqual(got, tc.want) {
				t.Fatalf("expected tax %v for income %v, got %v", tc.want, tc.income, got)
			}
		})
	}
}

func TestComputeAnnualTaxIsNonDecreasing(t *testing.T) {
	previous := 0.0
	for income := 0.0; income <= 2000000; income += 12500 {
		tax := ComputeAnnualTax(DefaultTaxSlabs, income)
		if tax < previous {
			t.Fatalf("tax decreased at income %v: %v < %v", income, tax, previous)
		}
		previous = tax
	}
}

func TestComputeAnnualTaxBoundaryContinuity(t *testing.T) {
	// Tax just above a slab boundary should exceed the boundary tax by
	// roughly the marginal rate, never jump.
	for _, boundary := range []float64{250000, 500000, 1000000} {
		below := ComputeAnnualTax(DefaultTaxSlabs, boundary)
		above := ComputeAnnualTax(DefaultTaxSlabs, boundary+1)
		if above < below {
			t.Fatalf("tax not monotone across boundary %v: %v then %v", boundary, below, above)
		}
		if above-below > 0.5 {
			t.Fatalf("tax jumped across boundary %v: %v then %v", boundary, below, above)
		}
	}
}

func TestComputeAnnualTaxNegativeIncome(t *testing.T) {
	if got := ComputeAnnualTax(DefaultTaxSlabs, -5000); got != 0 {
		t.Fatalf("expected zero tax for negative income, got %v", got)
	}
}

func TestComputeAnnualTaxCustomTable(t *testing.T) {
	flat := []TaxSlab{{UpperBound: 0, Rate: 0.1}}
	if got := ComputeAnnualTax(flat, 100000); !almostEqual(got, 10000) {
		t.Fatalf("expected flat tax 10000, got %v", got)
	}

	twoTier := []TaxSlab{
		{UpperBound: 100000, Rate: 0},
		{UpperBound: 0, Rate: 0.25},
	}
	if got := ComputeAnnualTax(twoTier, 180000); !almostEqual(got, 20000) {
		t.Fatalf("expected two tier tax 20000, got %v", got)
	}
}

func TestComputeAnnualTaxAllBoundedSlabs(t *testing.T) {
	// Income past the last bounded slab is not taxed further: the walk
	// simply runs out of brackets.
	bounded := []TaxSlab{
		{UpperBound: 100000, Rate: 0},
		{UpperBound: 200000, Rate: 0.1},
	}
	if got := ComputeAnnualTax(bounded, 500000); !almostEqual(got, 10000) {
		t.Fatalf("expected capped tax 10000, got %v", got)
	}
}

func TestComputeAnnualTaxEmptyTable(t *testing.T) {
	if got := ComputeAnnualTax(nil, 500000); got != 0 {
		t.Fatalf("expected zero tax with no slabs, got %v", got)
	}
}
