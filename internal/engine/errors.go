// Package engine implements the combination search: catalog filtering,
// nearest-item matching, the greedy approximator and the bounded knapsack
// solver. Every function here is pure apart from cooperative cancellation
// through a context; none of them mutates the items it receives.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Search errors. A search that finds nothing is not an error.
var (
	ErrInvalidRequest = errors.New("invalid search request")
	ErrTableTooLarge  = fmt.Errorf("%w: search table exceeds the configured cell budget", ErrInvalidRequest)
	ErrCancelled      = errors.New("search cancelled")
)

// ExecutionError reports an unexpected fault while a search was running.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return "search execution failed: " + e.Reason
}

// cancelled converts a context error into ErrCancelled, keeping the cause.
func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
