package compare

import "github.com/shopspring/decimal"

// Prices are cent-rounded by the normalizer. Comparisons and sums run on
// decimals so ties and totals are exact at any magnitude.

var hundred = decimal.NewFromInt(100)

func amount(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// percent returns part/whole*100 rounded to two decimals, or 0 when whole is
// zero.
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return toFloat(part.Mul(hundred).Div(whole).Round(2))
}
