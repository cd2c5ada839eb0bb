package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPrice is the largest price, target or tolerance the search core
// accepts. Its value in cents, summed a few times over, still fits an int64.
var MaxPrice = decimal.New(1, 12)

// PriceInRange reports whether d lies within [-MaxPrice, MaxPrice].
func PriceInRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxPrice)
}

// ParsePrice parses a price typed by an operator or exported by the catalog
// system. Both decimal separators are accepted:
//
//	"1.234,56" -> 1234.56
//	"17,5"     -> 17.5
//	"93.20"    -> 93.20
//	"1.200"    -> 1200
//
// A comma always marks the decimal part and dots are then grouping. Without
// a comma a dot is grouping only when repeated or followed by exactly three
// digits.
func ParsePrice(s string) (decimal.Decimal, error) {
	str := strings.TrimSpace(s)
	str = strings.TrimPrefix(str, "R$")
	str = strings.ReplaceAll(str, " ", "")
	str = strings.ReplaceAll(str, "\u00a0", "")

	if str == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidPriceFormat)
	}

	switch {
	case strings.Contains(str, ","):
		str = strings.ReplaceAll(str, ".", "")
		str = strings.Replace(str, ",", ".", 1)
	case strings.Count(str, ".") > 1:
		str = strings.ReplaceAll(str, ".", "")
	case strings.Contains(str, "."):
		if len(str)-strings.LastIndex(str, ".")-1 == 3 {
			str = strings.ReplaceAll(str, ".", "")
		}
	}

	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPriceFormat, s)
	}

	return d, nil
}
