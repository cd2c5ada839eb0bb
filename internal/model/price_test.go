package model

import (
	"errors"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "93.20", want: "93.2"},
		{in: "93,20", want: "93.2"},
		{in: "17,5", want: "17.5"},
		{in: "1.234,56", want: "1234.56"},
		{in: "1.200", want: "1200"},
		{in: "1.234.567", want: "1234567"},
		{in: "R$ 10,00", want: "10"},
		{in: " 42 ", want: "42"},
		{in: "0.5", want: "0.5"},
		{in: "1 234,00", want: "1234"},
		{in: "", wantErr: true},
		{in: "R$", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1,2,3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			// Act
			got, err := ParsePrice(tt.in)

			// Assert
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPriceFormat) {
					t.Errorf("ParsePrice(%q) error = %v, want %v", tt.in, err, ErrInvalidPriceFormat)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePrice(%q) unexpected error: %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got.String(), tt.want)
			}
		})
	}
}
