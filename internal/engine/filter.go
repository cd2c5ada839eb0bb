package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// Admissibility decides which items are worth offering at all.
type Admissibility string

const (
	// AdmitByMargin keeps items with a positive profit margin.
	AdmitByMargin Admissibility = "margin"
	// AdmitByPrice keeps items with a positive sale price.
	AdmitByPrice Admissibility = "price"
)

// ParseAdmissibility validates an admissibility name.
func ParseAdmissibility(s string) (Admissibility, error) {
	switch a := Admissibility(strings.ToLower(strings.TrimSpace(s))); a {
	case AdmitByMargin, AdmitByPrice:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown admissibility %q", ErrInvalidRequest, s)
	}
}

// FilterOptions configures Filter.
type FilterOptions struct {
	Admissibility Admissibility
	Exclusions    model.ExclusionSet
	Blacklist     model.BlacklistTerms
}

// Filter returns the eligible items in catalog order. The result is never
// nil and never aliases the input slice.
func Filter(items []model.Item, opts FilterOptions) []model.Item {
	out := make([]model.Item, 0, len(items))
	for i := range items {
		if eligible(&items[i], &opts) {
			out = append(out, items[i])
		}
	}
	return out
}

func eligible(item *model.Item, opts *FilterOptions) bool {
	if !admissible(item, opts.Admissibility) {
		return false
	}
	if item.Quantity < 1 {
		return false
	}
	if opts.Exclusions.Has(item.Code) {
		return false
	}
	return !opts.Blacklist.Matches(item.Description)
}

func admissible(item *model.Item, a Admissibility) bool {
	if a == AdmitByMargin {
		return item.ProfitMargin.GreaterThan(decimal.Zero)
	}
	return item.SalePrice.GreaterThan(decimal.Zero)
}
