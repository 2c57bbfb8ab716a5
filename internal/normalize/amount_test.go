package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantType EntryType
	}{
		{"plain positive", "1234.56", "1234.56", Credit},
		{"plain negative", "-49.99", "49.99", Debit},
		{"dollar with thousands", "$1,234.56", "1234.56", Credit},
		{"rupee with lakh grouping", "₹1,23,456.78", "123456.78", Credit},
		{"euro", "€99.00", "99", Credit},
		{"pound negative", "-£250.00", "250", Debit},
		{"yen", "¥5000", "5000", Credit},
		{"embedded spaces", " 1 234.56 ", "1234.56", Credit},
		{"zero is a credit", "0.00", "0", Credit},
		{"integer", "42", "42", Credit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tt.input, err)
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Value.Equal(want) {
				t.Errorf("ParseAmount(%q).Value = %s, want %s", tt.input, got.Value, want)
			}
			if got.Type != tt.wantType {
				t.Errorf("ParseAmount(%q).Type = %s, want %s", tt.input, got.Type, tt.wantType)
			}
			if got.Value.IsNegative() {
				t.Errorf("ParseAmount(%q).Value is negative", tt.input)
			}
		})
	}
}

func TestParseAmount_SymbolStrippingConverges(t *testing.T) {
	// Differently decorated renditions of the same value must agree.
	inputs := []string{"1234.56", "$1,234.56", "€1234.56", "£1,234.56", " 1,234.56 "}
	want := decimal.RequireFromString("1234.56")
	for _, in := range inputs {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error: %v", in, err)
		}
		if !got.Value.Equal(want) {
			t.Errorf("ParseAmount(%q).Value = %s, want %s", in, got.Value, want)
		}
	}
}

func TestParseAmount_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12.3.4", "$", "N/A"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in)
			if !errors.Is(err, ErrUnparsableAmount) {
				t.Errorf("ParseAmount(%q) error = %v, want ErrUnparsableAmount", in, err)
			}
		})
	}
}

func TestParseNumber_KeepsSign(t *testing.T) {
	got, err := ParseNumber("-₹1,500.25")
	if err != nil {
		t.Fatalf("ParseNumber error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("-1500.25")) {
		t.Errorf("ParseNumber = %s, want -1500.25", got)
	}
}
