package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// ParseBlacklist reads one term per line, skipping blank lines.
func ParseBlacklist(content string) model.BlacklistTerms {
	terms := model.BlacklistTerms{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			terms = append(terms, line)
		}
	}
	return terms
}

// FormatBlacklist writes one trimmed term per line with a trailing newline.
func FormatBlacklist(terms model.BlacklistTerms) string {
	var b strings.Builder
	for _, t := range terms {
		b.WriteString(strings.TrimSpace(t))
		b.WriteByte('\n')
	}
	return b.String()
}

// MemoryBlacklist implements BlacklistStore in memory.
type MemoryBlacklist struct {
	mu    sync.RWMutex
	terms model.BlacklistTerms
}

// NewMemoryBlacklist creates a blacklist seeded with terms.
func NewMemoryBlacklist(terms ...string) *MemoryBlacklist {
	b := &MemoryBlacklist{terms: model.BlacklistTerms{}}
	for _, t := range terms {
		b.add(t)
	}
	return b
}

// List returns the terms in insertion order.
func (b *MemoryBlacklist) List(ctx context.Context) (model.BlacklistTerms, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list blacklist: %w", ctx.Err())
	default:
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.terms.Clone(), nil
}

// Add appends a trimmed term unless it is already present.
func (b *MemoryBlacklist) Add(ctx context.Context, term string) (model.BlacklistTerms, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("add blacklist term: %w", ctx.Err())
	default:
	}

	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptyTerm
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.add(term)
	return b.terms.Clone(), nil
}

// Remove deletes a term.
func (b *MemoryBlacklist) Remove(ctx context.Context, term string) (model.BlacklistTerms, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("remove blacklist term: %w", ctx.Err())
	default:
	}

	term = strings.TrimSpace(term)

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, t := range b.terms {
		if t == term {
			b.terms = append(b.terms[:i], b.terms[i+1:]...)
			return b.terms.Clone(), nil
		}
	}

	return nil, ErrTermNotFound
}

// Replace swaps the whole list, dropping blanks and duplicates.
func (b *MemoryBlacklist) Replace(ctx context.Context, terms model.BlacklistTerms) (model.BlacklistTerms, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("replace blacklist: %w", ctx.Err())
	default:
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.terms = model.BlacklistTerms{}
	for _, t := range terms {
		b.add(t)
	}
	return b.terms.Clone(), nil
}

func (b *MemoryBlacklist) add(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	for _, t := range b.terms {
		if t == term {
			return
		}
	}
	b.terms = append(b.terms, term)
}
