// Package handler provides the HTTP and WebSocket handlers of the stock
// matching server.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/model"
	"github.com/vyrodovalexey/stockmatch/internal/session"
)

// Version is the application version.
const Version = "1.0.0"

// StatusClientClosedRequest is returned when the caller went away before
// the search finished.
const StatusClientClosedRequest = 499

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// searchStatus maps a search failure to an HTTP status code. Execution
// errors and anything unexpected become 500.
func searchStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidPriceFormat),
		errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, engine.ErrCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
