package engine

import (
	"context"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// GreedyParams configures Greedy.
type GreedyParams struct {
	Target    decimal.Decimal
	Tolerance decimal.Decimal
	// MaxItems caps the number of picks; zero or less means no cap.
	MaxItems int
}

// Greedy builds a combination by repeatedly taking, from a shuffled pool,
// one unit of the item closest to the remaining budget without exceeding it
// by more than the tolerance. The shuffle makes repeated calls on the same
// input return different combinations.
//
// ok is false when the picks do not land within tolerance of the target;
// the caller is expected to fall back to Solve. A nil rng uses the global
// source.
func Greedy(
	ctx context.Context,
	items []model.Item,
	p GreedyParams,
	rng *rand.Rand,
) (entries []model.CombinationEntry, ok bool, err error) {
	target := ToMinor(p.Target)
	tol := ToMinor(p.Tolerance)

	prices := make([]int64, len(items))
	pool := make([]int, 0, len(items))
	for i := range items {
		prices[i] = ToMinor(items[i].SalePrice)
		if prices[i] > 0 {
			pool = append(pool, i)
		}
	}

	swap := func(i, j int) { pool[i], pool[j] = pool[j], pool[i] }
	if rng != nil {
		rng.Shuffle(len(pool), swap)
	} else {
		rand.Shuffle(len(pool), swap)
	}

	maxPicks := p.MaxItems
	if maxPicks <= 0 {
		maxPicks = len(pool)
	}

	remaining := target
	chosen := make([]int, 0, maxPicks)

	for len(chosen) < maxPicks {
		if err := cancelled(ctx); err != nil {
			return nil, false, err
		}

		bestPos := -1
		var bestDiff int64
		for pos, idx := range pool {
			if prices[idx] > remaining+tol {
				continue
			}
			diff := abs64(prices[idx] - remaining)
			if bestPos < 0 || diff < bestDiff {
				bestPos, bestDiff = pos, diff
			}
		}
		if bestPos < 0 {
			break
		}

		idx := pool[bestPos]
		chosen = append(chosen, idx)
		remaining -= prices[idx]
		pool = append(pool[:bestPos], pool[bestPos+1:]...)

		if abs64(remaining) <= tol {
			break
		}
	}

	if len(chosen) == 0 || abs64(remaining) > tol {
		return nil, false, nil
	}

	entries = make([]model.CombinationEntry, len(chosen))
	for i, idx := range chosen {
		entries[i] = model.CombinationEntry{Item: items[idx], Units: 1}
	}
	return entries, true, nil
}
