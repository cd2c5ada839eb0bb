package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects the search strategy.
type Mode string

// Search modes.
const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ParseMode accepts the canonical names and the catalog UI aliases
// "product" and "combination".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "product", "produto":
		return ModeSingle, nil
	case "multi", "combination", "combinacao":
		return ModeMulti, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// UnmarshalJSON decodes a mode using ParseMode.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Request validation errors.
var (
	ErrUnknownMode        = errors.New("unknown search mode")
	ErrNonPositiveTarget  = errors.New("target price must be positive")
	ErrNegativeTolerance  = errors.New("tolerance cannot be negative")
	ErrInvalidMaxItems    = errors.New("max items must be at least 1")
	ErrInvalidPriceFormat = errors.New("invalid price format")
	ErrPriceOutOfRange    = errors.New("price out of range")
	ErrInvalidNearest     = errors.New("nearest count must be between 0 and 50")
)

// MaxNearest caps how many runner-up items a single-mode result lists.
const MaxNearest = 50

// SearchRequest describes one search round. Nearest asks a single-mode
// round to also list that many items ranked by distance to the target.
type SearchRequest struct {
	Target     decimal.Decimal
	Tolerance  decimal.Decimal
	Mode       Mode
	MaxItems   int
	Nearest    int
	Exclusions ExclusionSet
	Blacklist  BlacklistTerms
}

// Validate rejects degenerate requests before they reach a solver.
func (r *SearchRequest) Validate() error {
	if r.Mode != ModeSingle && r.Mode != ModeMulti {
		return fmt.Errorf("%w: %q", ErrUnknownMode, string(r.Mode))
	}

	if !r.Target.IsPositive() {
		return ErrNonPositiveTarget
	}

	if !PriceInRange(r.Target) {
		return fmt.Errorf("%w: target %s", ErrPriceOutOfRange, r.Target.String())
	}

	if r.Tolerance.IsNegative() {
		return ErrNegativeTolerance
	}

	if !PriceInRange(r.Tolerance) {
		return fmt.Errorf("%w: tolerance %s", ErrPriceOutOfRange, r.Tolerance.String())
	}

	if r.Mode == ModeMulti && r.MaxItems < 1 {
		return ErrInvalidMaxItems
	}

	if r.Nearest < 0 || r.Nearest > MaxNearest {
		return ErrInvalidNearest
	}

	return nil
}

// Snapshot returns a copy that shares no mutable state with r.
func (r SearchRequest) Snapshot() SearchRequest {
	r.Exclusions = r.Exclusions.Clone()
	r.Blacklist = r.Blacklist.Clone()
	return r
}

// CombinationEntry is one item of a combination and the units it consumes.
type CombinationEntry struct {
	Item  Item `json:"item"`
	Units int  `json:"units"`
}

// Subtotal returns unit price times units.
func (e CombinationEntry) Subtotal() decimal.Decimal {
	return e.Item.SalePrice.Mul(decimal.NewFromInt(int64(e.Units)))
}

// ResultStatus tells found results from negative outcomes.
type ResultStatus string

// Result statuses.
const (
	StatusFound    ResultStatus = "found"
	StatusNotFound ResultStatus = "not_found"
)

// SearchResult is the outcome of a completed search round. Nearest is only
// filled by single-mode rounds that asked for it; its first entry is Item.
type SearchResult struct {
	Status      ResultStatus       `json:"status"`
	Item        *Item              `json:"item,omitempty"`
	Combination []CombinationEntry `json:"combination,omitempty"`
	Nearest     []Item             `json:"nearest,omitempty"`
	Total       decimal.Decimal    `json:"total"`
}

// FoundItem wraps a single-item match.
func FoundItem(item Item) SearchResult {
	return SearchResult{
		Status: StatusFound,
		Item:   &item,
		Total:  item.SalePrice,
	}
}

// FoundCombination wraps a multi-item match.
func FoundCombination(entries []CombinationEntry) SearchResult {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Subtotal())
	}
	return SearchResult{
		Status:      StatusFound,
		Combination: entries,
		Total:       total,
	}
}

// NotFound is the empty outcome.
func NotFound() SearchResult {
	return SearchResult{Status: StatusNotFound, Total: decimal.Zero}
}

// Found reports whether the result carries a match.
func (r SearchResult) Found() bool {
	return r.Status == StatusFound
}

// Codes returns the codes of every item the result offers.
func (r SearchResult) Codes() []string {
	if r.Item != nil {
		return []string{r.Item.Code}
	}
	codes := make([]string, 0, len(r.Combination))
	for _, e := range r.Combination {
		codes = append(codes, e.Item.Code)
	}
	return codes
}

// Lines converts a found result into the (code, units) pairs consumed by
// the withdrawal collaborator.
func (r SearchResult) Lines() []WithdrawalLine {
	if r.Item != nil {
		return []WithdrawalLine{{Code: r.Item.Code, Units: 1}}
	}
	lines := make([]WithdrawalLine, 0, len(r.Combination))
	for _, e := range r.Combination {
		lines = append(lines, WithdrawalLine{Code: e.Item.Code, Units: e.Units})
	}
	return lines
}
