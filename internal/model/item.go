// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors for Item.
var (
	ErrEmptyCode        = errors.New("code cannot be empty")
	ErrCodeTooLong      = errors.New("code cannot exceed 64 characters")
	ErrNegativePrice    = errors.New("sale price cannot be negative")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrDescriptionLimit = errors.New("description cannot exceed 1000 characters")
)

// Validation constants.
const (
	MaxCodeLength        = 64
	MaxDescriptionLength = 1000
)

// Item is a catalog entry. The search core treats it as immutable input.
type Item struct {
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	Quantity     int             `json:"quantity"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	CostPrice    decimal.Decimal `json:"cost_price,omitempty"`
	Supplier     string          `json:"supplier,omitempty"`
	Batch        string          `json:"batch,omitempty"`
	Expiry       string          `json:"expiry,omitempty"`
}

// Validate checks if the Item has valid field values.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Code) == "" {
		return ErrEmptyCode
	}

	if len(i.Code) > MaxCodeLength {
		return ErrCodeTooLong
	}

	if i.SalePrice.IsNegative() {
		return ErrNegativePrice
	}

	if !PriceInRange(i.SalePrice) {
		return ErrPriceOutOfRange
	}

	if i.Quantity < 0 {
		return ErrNegativeQuantity
	}

	if len(i.Description) > MaxDescriptionLength {
		return ErrDescriptionLimit
	}

	return nil
}

// ExclusionSet holds item codes that a search must not return.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from the given codes.
func NewExclusionSet(codes ...string) ExclusionSet {
	set := make(ExclusionSet, len(codes))
	for _, code := range codes {
		set.Add(code)
	}
	return set
}

// Add inserts a code. Empty codes are ignored.
func (s ExclusionSet) Add(code string) {
	if code == "" {
		return
	}
	s[code] = struct{}{}
}

// Has reports whether code is excluded. A nil set excludes nothing.
func (s ExclusionSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Clone returns an independent copy of the set.
func (s ExclusionSet) Clone() ExclusionSet {
	out := make(ExclusionSet, len(s))
	for code := range s {
		out[code] = struct{}{}
	}
	return out
}

// Codes returns the excluded codes in lexical order.
func (s ExclusionSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// BlacklistTerms is an ordered list of case-insensitive description substrings.
type BlacklistTerms []string

// Matches reports whether description contains any non-blank term,
// ignoring case.
func (b BlacklistTerms) Matches(description string) bool {
	if len(b) == 0 {
		return false
	}
	lower := strings.ToLower(description)
	for _, term := range b {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the terms.
func (b BlacklistTerms) Clone() BlacklistTerms {
	if b == nil {
		return nil
	}
	out := make(BlacklistTerms, len(b))
	copy(out, b)
	return out
}

// CloneItems copies a catalog slice so the copy can cross a goroutine boundary.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
