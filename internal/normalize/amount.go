package normalize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrUnparsableAmount is returned when a cleaned amount string is not a number.
var ErrUnparsableAmount = errors.New("unparsable amount")

// EntryType classifies a ledger entry as money in or money out.
type EntryType string

const (
	Credit EntryType = "credit"
	Debit  EntryType = "debit"
)

// Amount is the result of normalizing a raw amount cell: a non-negative
// magnitude with the sign carried in Type. Zero is a credit.
type Amount struct {
	Value decimal.Decimal
	Type  EntryType
}

// currencySymbols are stripped before numeric parsing, alongside thousands
// separators and whitespace.
const currencySymbols = "₹$€£¥"

// ParseNumber strips currency symbols, commas and whitespace from raw and
// parses the remainder as a signed decimal.
func ParseNumber(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, raw)

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparsableAmount, raw)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparsableAmount, raw)
	}
	return d, nil
}

// ParseAmount normalizes a raw amount cell into magnitude + entry type.
func ParseAmount(raw string) (Amount, error) {
	d, err := ParseNumber(raw)
	if err != nil {
		return Amount{}, err
	}

	typ := Credit
	if d.IsNegative() {
		typ = Debit
	}
	return Amount{Value: d.Abs(), Type: typ}, nil
}
