// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// Store errors.
var (
	ErrNotFound          = errors.New("item not found")
	ErrAlreadyExists     = errors.New("item already exists")
	ErrInvalidID         = errors.New("invalid item code")
	ErrNilItem           = errors.New("item cannot be nil")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTermNotFound      = errors.New("blacklist term not found")
	ErrEmptyTerm         = errors.New("blacklist term cannot be empty")
)

// CatalogStore holds the inventory the search runs against.
type CatalogStore interface {
	// List returns all items in catalog order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its code.
	Get(ctx context.Context, code string) (*model.Item, error)

	// Create appends a new item to the catalog.
	Create(ctx context.Context, item *model.Item) (*model.Item, error)

	// Update replaces an existing item, keeping its catalog position.
	Update(ctx context.Context, code string, item *model.Item) (*model.Item, error)

	// Delete removes an item by its code.
	Delete(ctx context.Context, code string) error

	// Replace swaps the whole catalog for items.
	Replace(ctx context.Context, items []model.Item) error

	// Withdraw takes units out of stock and records each line. Either every
	// line is applied or none is.
	Withdraw(ctx context.Context, lines []model.WithdrawalLine) ([]model.Withdrawal, error)

	// Withdrawals returns the withdrawal history, oldest first.
	Withdrawals(ctx context.Context) ([]model.Withdrawal, error)
}

// BlacklistStore holds the terms that keep items out of every search.
type BlacklistStore interface {
	// List returns the terms in insertion order.
	List(ctx context.Context) (model.BlacklistTerms, error)

	// Add appends a term unless it is already present.
	Add(ctx context.Context, term string) (model.BlacklistTerms, error)

	// Remove deletes a term.
	Remove(ctx context.Context, term string) (model.BlacklistTerms, error)

	// Replace swaps the whole list.
	Replace(ctx context.Context, terms model.BlacklistTerms) (model.BlacklistTerms, error)
}
