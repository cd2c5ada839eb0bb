package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// job is the single start message a worker receives. Everything in it is a
// private copy owned by the worker until it replies.
type job struct {
	catalog []model.Item
	req     model.SearchRequest
	cfg     Config
	rng     *rand.Rand
}

// reply is the single terminal message a worker sends. err is nil for a
// result, wraps engine.ErrCancelled for a cancellation, and is an
// *engine.ExecutionError or engine.ErrInvalidRequest otherwise.
type reply struct {
	result model.SearchResult
	err    error
}

// work reads exactly one job and writes exactly one reply.
func work(ctx context.Context, requests <-chan job, replies chan<- reply) {
	j := <-requests
	replies <- execute(ctx, j)
}

func execute(ctx context.Context, j job) (rep reply) {
	defer func() {
		if r := recover(); r != nil {
			rep = reply{err: &engine.ExecutionError{Reason: fmt.Sprint(r)}}
		}
	}()

	if ctx.Err() != nil {
		return cancelledReply(ctx)
	}

	items := engine.Filter(j.catalog, engine.FilterOptions{
		Admissibility: j.cfg.Admissibility,
		Exclusions:    j.req.Exclusions,
		Blacklist:     j.req.Blacklist,
	})

	result, err := combine(ctx, items, j)
	if err != nil {
		return classify(ctx, err)
	}

	// A cancel that lands after the last checkpoint still wins.
	if ctx.Err() != nil {
		return cancelledReply(ctx)
	}

	return reply{result: result}
}

func combine(ctx context.Context, items []model.Item, j job) (model.SearchResult, error) {
	if j.cfg.GreedyFirst {
		entries, ok, err := engine.Greedy(ctx, items, engine.GreedyParams{
			Target:    j.req.Target,
			Tolerance: j.req.Tolerance,
			MaxItems:  j.req.MaxItems,
		}, j.rng)
		if err != nil {
			return model.SearchResult{}, err
		}
		if ok {
			return model.FoundCombination(entries), nil
		}
	}

	entries, ok, err := engine.Solve(ctx, items, engine.SolveParams{
		Target:    j.req.Target,
		Tolerance: j.req.Tolerance,
		MaxItems:  j.req.MaxItems,
		MaxCells:  j.cfg.MaxCells,
	})
	if err != nil {
		return model.SearchResult{}, err
	}
	if !ok {
		return model.NotFound(), nil
	}
	return model.FoundCombination(entries), nil
}

func classify(ctx context.Context, err error) reply {
	var execErr *engine.ExecutionError
	switch {
	case errors.Is(err, engine.ErrCancelled):
		return cancelledReply(ctx)
	case errors.Is(err, engine.ErrInvalidRequest), errors.As(err, &execErr):
		return reply{err: err}
	default:
		return reply{err: &engine.ExecutionError{Reason: err.Error()}}
	}
}

func cancelledReply(ctx context.Context) reply {
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	return reply{err: fmt.Errorf("%w: %w", engine.ErrCancelled, cause)}
}

// matchSingle runs the nearest-item matcher on the caller's goroutine.
func matchSingle(catalog []model.Item, req model.SearchRequest, cfg Config) model.SearchResult {
	items := engine.Filter(catalog, engine.FilterOptions{
		Admissibility: cfg.Admissibility,
		Exclusions:    req.Exclusions,
		Blacklist:     req.Blacklist,
	})
	item, ok := engine.Nearest(items, req.Target)
	if !ok {
		return model.NotFound()
	}
	result := model.FoundItem(item)
	if req.Nearest > 0 {
		result.Nearest = engine.NearestN(items, req.Target, req.Nearest)
	}
	return result
}
