package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal validation errors.
var (
	ErrEmptyWithdrawal = errors.New("withdrawal must contain at least one line")
	ErrInvalidUnits    = errors.New("units must be at least 1")
)

// WithdrawalLine asks for units of one item to leave stock.
type WithdrawalLine struct {
	Code  string `json:"code"`
	Units int    `json:"units"`
}

// Withdrawal records stock that left the catalog.
type Withdrawal struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Units       int             `json:"units"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	WithdrawnAt time.Time       `json:"withdrawn_at"`
}

// ValidateLines checks a withdrawal request before any stock is touched.
func ValidateLines(lines []WithdrawalLine) error {
	if len(lines) == 0 {
		return ErrEmptyWithdrawal
	}
	for _, l := range lines {
		if l.Code == "" {
			return ErrEmptyCode
		}
		if l.Units < 1 {
			return ErrInvalidUnits
		}
	}
	return nil
}
