package canonical

import "github.com/shopspring/decimal"

// Round2 rounds to 2 decimals, used for lap times.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Round1 rounds to 1 decimal, used for speeds and distances.
func Round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
