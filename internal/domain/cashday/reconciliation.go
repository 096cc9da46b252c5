package cashday

import "github.com/shopspring/decimal"

// CalculateTotal computes a closing's calculated total from first principles:
// the opening float plus the sum of all active entry amounts. It is a pure
// function and must be called fresh at close and confer time; a previously
// stored total is never trusted once entries may have changed.
func CalculateTotal(openingFloat decimal.Decimal, entries []RevenueEntry) decimal.Decimal {
	total := openingFloat
	for i := range entries {
		if entries[i].Active {
			total = total.Add(entries[i].Amount)
		}
	}
	return total
}

// Difference computes the audit discrepancy with the canonical sign
// convention: positive means counted cash exceeds the calculated
// expectation (overage), negative means shortage.
func Difference(declared, calculated decimal.Decimal) decimal.Decimal {
	return declared.Sub(calculated)
}
