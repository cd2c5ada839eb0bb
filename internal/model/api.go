package model

import (
	"fmt"
	"strings"
	"time"
)

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SearchInput is the wire form of a search request. Prices travel as
// strings so operators can type either decimal separator.
type SearchInput struct {
	Price     string   `json:"price"`
	Mode      Mode     `json:"mode"`
	Tolerance string   `json:"tolerance,omitempty"`
	MaxItems  int      `json:"max_items,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
	Nearest   int      `json:"nearest,omitempty"`
}

// Request converts the wire form into a SearchRequest. An empty mode means
// single. The boolean reports whether a tolerance was given; when it is
// false the caller applies its configured default.
func (in SearchInput) Request() (SearchRequest, bool, error) {
	target, err := ParsePrice(in.Price)
	if err != nil {
		return SearchRequest{}, false, fmt.Errorf("price: %w", err)
	}

	req := SearchRequest{
		Target:     target,
		Mode:       in.Mode,
		MaxItems:   in.MaxItems,
		Exclusions: NewExclusionSet(in.Exclude...),
		Nearest:    in.Nearest,
	}
	if req.Mode == "" {
		req.Mode = ModeSingle
	}

	toleranceSet := strings.TrimSpace(in.Tolerance) != ""
	if toleranceSet {
		tol, err := ParsePrice(in.Tolerance)
		if err != nil {
			return SearchRequest{}, false, fmt.Errorf("tolerance: %w", err)
		}
		req.Tolerance = tol
	}

	return req, toleranceSet, nil
}

// SessionMessage is exchanged over the search WebSocket.
type SessionMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Round     int           `json:"round,omitempty"`
	Search    *SearchInput  `json:"search,omitempty"`
	Result    *SearchResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Session message types sent by the client.
const (
	WSMessageTypeStart       = "start"
	WSMessageTypeCancel      = "cancel"
	WSMessageTypeRecalculate = "recalculate"
)

// Session message types sent by the server.
const (
	WSMessageTypeStarted     = "started"
	WSMessageTypeLongRunning = "long_running"
	WSMessageTypeResult      = "result"
	WSMessageTypeCancelled   = "cancelled"
	WSMessageTypeError       = "error"
)

// NewSessionMessage stamps a message of the given type.
func NewSessionMessage(msgType, sessionID string) SessionMessage {
	return SessionMessage{
		Type:      msgType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}
