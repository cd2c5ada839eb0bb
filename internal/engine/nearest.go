package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// Nearest returns the item whose sale price is closest to target. Ties go to
// the earliest item in catalog order.
func Nearest(items []model.Item, target decimal.Decimal) (model.Item, bool) {
	if len(items) == 0 {
		return model.Item{}, false
	}

	best := 0
	bestDiff := items[0].SalePrice.Sub(target).Abs()
	for i := 1; i < len(items); i++ {
		diff := items[i].SalePrice.Sub(target).Abs()
		if diff.LessThan(bestDiff) {
			best, bestDiff = i, diff
		}
	}

	return items[best], true
}

// NearestN returns up to n items ordered by distance to target, ties kept
// in catalog order.
func NearestN(items []model.Item, target decimal.Decimal, n int) []model.Item {
	if n <= 0 || len(items) == 0 {
		return []model.Item{}
	}

	type ranked struct {
		item model.Item
		diff decimal.Decimal
	}
	all := make([]ranked, len(items))
	for i := range items {
		all[i] = ranked{item: items[i], diff: items[i].SalePrice.Sub(target).Abs()}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].diff.LessThan(all[j].diff)
	})

	if n > len(all) {
		n = len(all)
	}
	out := make([]model.Item, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].item
	}
	return out
}
