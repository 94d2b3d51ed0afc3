package services

import "github.com/shopspring/decimal"

// LineTotal is price × quantity rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// ToCents converts a dollar amount to cents. ok is false when the amount
// has sub-cent precision.
func ToCents(amount float64) (cents int64, ok bool) {
	d := decimal.NewFromFloat(amount).Shift(2)
	if !d.IsInteger() {
		return 0, false
	}
	return d.IntPart(), true
}

// MatchesCents reports whether cents is exactly total × 100.
func MatchesCents(total float64, cents int64) bool {
	return decimal.NewFromFloat(total).Shift(2).Equal(decimal.NewFromInt(cents))
}

// SameAmount compares the shortest decimal form of two dollar amounts. A
// value carrying float drift (0.30000000000000004) does not match 0.3.
func SameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Equal(decimal.NewFromFloat(b))
}
