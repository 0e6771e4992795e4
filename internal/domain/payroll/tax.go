package payroll

// TaxSlab is one bracket of the progressive annual income tax table. A slab
// covers the income between the previous slab's upper bound and its own.
// UpperBound <= 0 marks the final open-ended slab.
type TaxSlab struct {
	UpperBound float64 `json:"upperBound"`
	Rate       float64 `json:"rate"`
}

// DefaultTaxSlabs is the statutory table used when a deployment does not
// install its own. Order matters: slabs are walked lowest bracket first and
// must stay contiguous from zero.
var DefaultTaxSlabs = []TaxSlab{
	{UpperBound: 250000, Rate: 0},
	{UpperBound: 500000, Rate: 0.05},
	{UpperBound: 1000000, Rate: 0.20},
	{UpperBound: 0, Rate: 0.30},
}

// ComputeAnnualTax walks the slab table and taxes the portion of income that
// falls inside each bracket. Income beyond the last bounded slab is taxed at
// the open-ended slab's flat rate.
func ComputeAnnualTax(slabs []TaxSlab, annualIncome float64) float64 {
	tax := 0.0
	lastUpperBound := 0.0
	remaining := annualIncome

	for _, slab := range slabs {
		if remaining <= 0 {
			break
		}
		if slab.UpperBound <= 0 {
			tax += remaining * slab.Rate
			break
		}
		taxable := min(remaining, slab.UpperBound-lastUpperBound)
		if taxable > 0 {
			tax += taxable * slab.Rate
			remaining -= taxable
		}
		lastUpperBound = slab.UpperBound
	}
	return tax
}
