package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// SolveParams configures Solve.
type SolveParams struct {
	Target    decimal.Decimal
	Tolerance decimal.Decimal
	// MaxItems is the maximum number of distinct items in a combination.
	// Repeated units of one item count once.
	MaxItems int
	// MaxCells bounds the DP table size; zero means unbounded.
	MaxCells int64
}

// step records how a (layer, sum) cell was first reached. item is the
// candidate index plus one so the zero value means "unreachable".
type step struct {
	item  int32
	units int32
}

type candidate struct {
	idx   int
	price int64
	units int
}

// Solve finds the combination whose total is closest to the target inside
// [target-tolerance, target+tolerance], using each item at most once with
// up to its available quantity in units, and at most MaxItems distinct
// items. Prices are compared in integer minor units.
//
// The table is layered by the number of distinct items used, so the cap is
// exact rather than applied after the fact. A cell keeps the first item pass
// that reached it; the predecessor cell was therefore reachable before that
// pass, which makes reconstruction walk strictly decreasing item indices.
//
// ok is false when no combination falls inside the band. The context is
// checked once per item and layer.
func Solve(
	ctx context.Context,
	items []model.Item,
	p SolveParams,
) (entries []model.CombinationEntry, ok bool, err error) {
	if p.MaxItems < 1 {
		return nil, false, fmt.Errorf("%w: max items must be at least 1", ErrInvalidRequest)
	}
	if !model.PriceInRange(p.Target) || !model.PriceInRange(p.Tolerance) {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidRequest, model.ErrPriceOutOfRange)
	}
	if err := cancelled(ctx); err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, nil
	}

	target := ToMinor(p.Target)
	tol := ToMinor(p.Tolerance)
	limit := target + tol
	if limit <= 0 {
		return nil, false, nil
	}
	low := max(target-tol, 1)

	cands := candidates(items, limit)
	if len(cands) == 0 {
		return nil, false, nil
	}

	layers := min(p.MaxItems, len(cands))
	width := limit + 1
	if p.MaxCells > 0 && width > p.MaxCells/int64(layers+1) {
		return nil, false, fmt.Errorf("%w: %d layers x %d sums", ErrTableTooLarge, layers+1, width)
	}

	t := &table{width: width, cells: make([]step, int64(layers+1)*width)}

	for ci := range cands {
		cd := &cands[ci]
		for c := layers; c >= 1; c-- {
			if err := cancelled(ctx); err != nil {
				return nil, false, err
			}
			t.relax(c, ci, cd, limit)
		}
	}

	for d := int64(0); d <= tol; d++ {
		for _, s := range [2]int64{target + d, target - d} {
			if s < low || s > limit {
				continue
			}
			for c := 1; c <= layers; c++ {
				if !t.reachable(c, s) {
					continue
				}
				entries, ok := t.reconstruct(items, cands, c, s)
				if !ok {
					return nil, false, nil
				}
				return entries, true, nil
			}
			if d == 0 {
				break
			}
		}
	}

	return nil, false, nil
}

func candidates(items []model.Item, limit int64) []candidate {
	out := make([]candidate, 0, len(items))
	for i := range items {
		price := ToMinor(items[i].SalePrice)
		if price <= 0 || price > limit || items[i].Quantity < 1 {
			continue
		}
		units := items[i].Quantity
		if fit := limit / price; int64(units) > fit {
			units = int(fit)
		}
		out = append(out, candidate{idx: i, price: price, units: units})
	}
	return out
}

// table holds layers 1..n of width sums each. Layer 0 is implicit: only the
// empty sum is reachable there.
type table struct {
	width int64
	cells []step
}

func (t *table) at(c int, s int64) *step {
	return &t.cells[int64(c)*t.width+s]
}

func (t *table) reachable(c int, s int64) bool {
	if c == 0 {
		return s == 0
	}
	return t.at(c, s).item != 0
}

// relax extends layer c with candidate ci. Layer c-1 still holds its state
// from before this candidate because layers are visited in descending order.
func (t *table) relax(c, ci int, cd *candidate, limit int64) {
	if c == 1 {
		// Only the empty sum precedes layer 1, so the reachable sums are
		// exactly the multiples of the price. candidates keeps them <= limit.
		for k := 1; k <= cd.units; k++ {
			cell := t.at(1, cd.price*int64(k))
			if cell.item == 0 {
				cell.item = int32(ci + 1)
				cell.units = int32(k)
			}
		}
		return
	}

	for s := limit; s >= cd.price; s-- {
		cell := t.at(c, s)
		if cell.item != 0 {
			continue
		}
		for k := 1; k <= cd.units; k++ {
			cost := cd.price * int64(k)
			if cost > s {
				break
			}
			if t.reachable(c-1, s-cost) {
				cell.item = int32(ci + 1)
				cell.units = int32(k)
				break
			}
		}
	}
}

// reconstruct follows the recorded steps from (c, s) back to the empty sum.
// Any inconsistency reports false instead of a partial combination.
func (t *table) reconstruct(
	items []model.Item,
	cands []candidate,
	c int,
	s int64,
) ([]model.CombinationEntry, bool) {
	entries := make([]model.CombinationEntry, c)
	last := len(cands)
	for ; c > 0; c-- {
		if s <= 0 {
			return nil, false
		}
		st := t.at(c, s)
		ci := int(st.item) - 1
		if ci < 0 || ci >= last {
			return nil, false
		}
		cd := cands[ci]
		units := int(st.units)
		if units < 1 || units > cd.units {
			return nil, false
		}
		entries[c-1] = model.CombinationEntry{Item: items[cd.idx], Units: units}
		s -= cd.price * int64(units)
		last = ci
	}
	if s != 0 {
		return nil, false
	}
	return entries, true
}
