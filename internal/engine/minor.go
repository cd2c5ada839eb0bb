package engine

import (
	"github.com/shopspring/decimal"
)

// minorDigits is the number of decimal places in one currency unit.
const minorDigits = 2

// ToMinor rounds a price to integer minor currency units (cents).
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(minorDigits).Round(0).IntPart()
}

// FromMinor converts minor currency units back to a decimal price.
func FromMinor(units int64) decimal.Decimal {
	return decimal.NewFromInt(units).Shift(-minorDigits)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
