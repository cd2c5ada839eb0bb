package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vyrodovalexey/stockmatch/internal/model"
)

func TestParseBlacklist(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.BlacklistTerms
	}{
		{name: "empty", content: "", want: model.BlacklistTerms{}},
		{name: "one per line", content: "glass\nfragile\n", want: model.BlacklistTerms{"glass", "fragile"}},
		{name: "blank lines and padding", content: "  glass \n\n\t\nfragile", want: model.BlacklistTerms{"glass", "fragile"}},
		{name: "windows line endings", content: "glass\r\nfragile\r\n", want: model.BlacklistTerms{"glass", "fragile"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got := ParseBlacklist(tt.content)

			// Assert
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseBlacklist() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFormatBlacklist_RoundTrip(t *testing.T) {
	// Arrange
	terms := model.BlacklistTerms{"glass", "fragile item"}

	// Act
	text := FormatBlacklist(terms)

	// Assert
	if text != "glass\nfragile item\n" {
		t.Errorf("FormatBlacklist() = %q", text)
	}
	if got := ParseBlacklist(text); !reflect.DeepEqual(got, terms) {
		t.Errorf("ParseBlacklist(FormatBlacklist()) = %#v, want %#v", got, terms)
	}
}

func TestMemoryBlacklist_AddRemove(t *testing.T) {
	// Arrange
	b := NewMemoryBlacklist("glass", " glass ", "")
	ctx := context.Background()

	// Act
	afterAdd, err := b.Add(ctx, "fragile")
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	_, _ = b.Add(ctx, "fragile")
	afterRemove, err := b.Remove(ctx, "glass")

	// Assert
	if err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(afterAdd, model.BlacklistTerms{"glass", "fragile"}) {
		t.Errorf("after Add = %#v", afterAdd)
	}
	if !reflect.DeepEqual(afterRemove, model.BlacklistTerms{"fragile"}) {
		t.Errorf("after Remove = %#v", afterRemove)
	}
	if _, err := b.Remove(ctx, "glass"); err != ErrTermNotFound {
		t.Errorf("second Remove() error = %v, want %v", err, ErrTermNotFound)
	}
	if _, err := b.Add(ctx, "   "); err != ErrEmptyTerm {
		t.Errorf("Add(blank) error = %v, want %v", err, ErrEmptyTerm)
	}
}

func TestMemoryBlacklist_Replace(t *testing.T) {
	// Arrange
	b := NewMemoryBlacklist("old")
	ctx := context.Background()

	// Act
	got, err := b.Replace(ctx, model.BlacklistTerms{"a", "", "b", "a"})

	// Assert
	if err != nil {
		t.Fatalf("Replace() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, model.BlacklistTerms{"a", "b"}) {
		t.Errorf("Replace() = %#v", got)
	}
	listed, _ := b.List(ctx)
	listed[0] = "mutated"
	again, _ := b.List(ctx)
	if again[0] != "a" {
		t.Errorf("List() should return a copy, got %#v", again)
	}
}

func TestMemoryBlacklist_ContextCancellation(t *testing.T) {
	// Arrange
	b := NewMemoryBlacklist("a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, listErr := b.List(ctx)
	_, addErr := b.Add(ctx, "b")
	_, removeErr := b.Remove(ctx, "a")
	_, replaceErr := b.Replace(ctx, nil)

	// Assert
	for name, err := range map[string]error{
		"List": listErr, "Add": addErr, "Remove": removeErr, "Replace": replaceErr,
	} {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s() error = %v, want context.Canceled", name, err)
		}
	}
}
