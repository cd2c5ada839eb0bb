package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// MemoryStore implements CatalogStore with in-memory storage.
type MemoryStore struct {
	mu          sync.RWMutex
	items       []model.Item
	index       map[string]int
	withdrawals []model.Withdrawal
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
	}
}

// List returns all items in catalog order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.CloneItems(s.items), nil
}

// Get retrieves an item by its code.
func (s *MemoryStore) Get(ctx context.Context, code string) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	if code == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.index[code]
	if !exists {
		return nil, ErrNotFound
	}

	item := s.items[pos]
	return &item, nil
}

// Create appends a new item to the catalog.
func (s *MemoryStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

	if item.Code == "" {
		return nil, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[item.Code]; exists {
		return nil, ErrAlreadyExists
	}

	newItem := *item
	s.index[newItem.Code] = len(s.items)
	s.items = append(s.items, newItem)

	return &newItem, nil
}

// Update replaces an existing item, keeping its catalog position. The code
// in the path wins over the one in the body.
func (s *MemoryStore) Update(ctx context.Context, code string, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if code == "" {
		return nil, ErrInvalidID
	}

	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[code]
	if !exists {
		return nil, ErrNotFound
	}

	updated := *item
	updated.Code = code
	s.items[pos] = updated

	return &updated, nil
}

// Delete removes an item by its code.
func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	if code == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[code]
	if !exists {
		return ErrNotFound
	}

	s.items = append(s.items[:pos], s.items[pos+1:]...)
	s.reindex()

	return nil
}

// Replace swaps the whole catalog. Duplicate codes are rejected.
func (s *MemoryStore) Replace(ctx context.Context, items []model.Item) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("replace items: %w", ctx.Err())
	default:
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("replace items: item %d: %w", i, err)
		}
		if _, dup := seen[items[i].Code]; dup {
			return fmt.Errorf("replace items: %w: %s", ErrAlreadyExists, items[i].Code)
		}
		seen[items[i].Code] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = model.CloneItems(items)
	s.reindex()

	return nil
}

// Withdraw validates every line against current stock before applying any.
func (s *MemoryStore) Withdraw(ctx context.Context, lines []model.WithdrawalLine) ([]model.Withdrawal, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("withdraw: %w", ctx.Err())
	default:
	}

	if err := model.ValidateLines(lines); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]int, len(lines))
	for _, l := range lines {
		pos, exists := s.index[l.Code]
		if !exists {
			return nil, fmt.Errorf("withdraw %s: %w", l.Code, ErrNotFound)
		}
		wanted[l.Code] += l.Units
		if wanted[l.Code] > s.items[pos].Quantity {
			return nil, fmt.Errorf("withdraw %s: %w: %d requested, %d available",
				l.Code, ErrInsufficientStock, wanted[l.Code], s.items[pos].Quantity)
		}
	}

	now := time.Now().UTC()
	records := make([]model.Withdrawal, 0, len(lines))
	for _, l := range lines {
		pos := s.index[l.Code]
		s.items[pos].Quantity -= l.Units
		records = append(records, model.Withdrawal{
			ID:          uuid.New().String(),
			Code:        l.Code,
			Description: s.items[pos].Description,
			Units:       l.Units,
			UnitPrice:   s.items[pos].SalePrice,
			WithdrawnAt: now,
		})
	}
	s.withdrawals = append(s.withdrawals, records...)

	return records, nil
}

// Withdrawals returns the withdrawal history, oldest first.
func (s *MemoryStore) Withdrawals(ctx context.Context) ([]model.Withdrawal, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list withdrawals: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Withdrawal, len(s.withdrawals))
	copy(out, s.withdrawals)
	return out, nil
}

// reindex rebuilds the code index. Callers hold the write lock.
func (s *MemoryStore) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i := range s.items {
		s.index[s.items[i].Code] = i
	}
}
