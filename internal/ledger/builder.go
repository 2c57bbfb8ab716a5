package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finbrief/statement-ingest/internal/normalize"
)

// DefaultCurrency is used when neither the row nor the caller supplies one.
const DefaultCurrency = "USD"

// ErrMissingColumns is returned when a canonical CSV lacks the date or
// amount column.
var ErrMissingColumns = errors.New("csv is missing date or amount column")

// NormalizedTransaction is the canonical ledger unit. Amount is always a
// non-negative magnitude; sign information lives exclusively in Type.
type NormalizedTransaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Currency    string
	Type        normalize.EntryType
	Category    *string
}

// RawTransaction holds one row's fields before normalization. Only Date
// and Amount are required; the rest may be empty.
type RawTransaction struct {
	Date        string
	Description string
	Amount      string
	Type        string
	Category    string
	Currency    string
}

// RowError wraps a normalization failure with the 1-based index of the row
// that caused it. Failures here are hard: data reaching the builder is
// expected to already conform to the canonical contract, so a bad row
// signals an upstream bug rather than dirty source data.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseCSV reads canonical (or near-canonical) CSV into raw transactions.
// Columns are keyed by header name, so extra columns and reordered columns
// are tolerated as long as date and amount are present.
func ParseCSV(csvText string) ([]RawTransaction, error) {
	r := csv.NewReader(strings.NewReader(csvText))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeHeader(name)] = i
	}
	if _, ok := cols["date"]; !ok {
		return nil, fmt.Errorf("ParseCSV: %w", ErrMissingColumns)
	}
	if _, ok := cols["amount"]; !ok {
		return nil, fmt.Errorf("ParseCSV: %w", ErrMissingColumns)
	}

	var rows []RawTransaction
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ParseCSV: read record: %w", err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, RawTransaction{
			Date:        field(record, cols, "date"),
			Description: pickDescription(record, cols),
			Amount:      field(record, cols, "amount"),
			Type:        field(record, cols, "type"),
			Category:    field(record, cols, "category"),
			Currency:    field(record, cols, "currency"),
		})
	}
	return rows, nil
}

// Normalize converts raw rows into normalized transactions. Row failures
// are fatal and carry the 1-based row index.
func Normalize(rows []RawTransaction, defaultCurrency string) ([]NormalizedTransaction, error) {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}

	out := make([]NormalizedTransaction, 0, len(rows))
	for i, row := range rows {
		tx, err := normalizeRow(row, i+1, defaultCurrency)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		out = append(out, tx)
	}
	return out, nil
}

// BuildFromCSV is the common path: parse canonical CSV, then normalize.
func BuildFromCSV(csvText, defaultCurrency string) ([]NormalizedTransaction, error) {
	rows, err := ParseCSV(csvText)
	if err != nil {
		return nil, fmt.Errorf("BuildFromCSV: %w", err)
	}
	return Normalize(rows, defaultCurrency)
}

func normalizeRow(row RawTransaction, index int, defaultCurrency string) (NormalizedTransaction, error) {
	date, err := normalize.Date(row.Date)
	if err != nil {
		return NormalizedTransaction{}, err
	}

	amt, err := normalize.ParseAmount(row.Amount)
	if err != nil {
		return NormalizedTransaction{}, err
	}

	entryType := amt.Type
	switch strings.ToLower(strings.TrimSpace(row.Type)) {
	case string(normalize.Credit):
		entryType = normalize.Credit
	case string(normalize.Debit):
		entryType = normalize.Debit
	}

	desc := strings.TrimSpace(row.Description)
	if desc == "" {
		desc = fmt.Sprintf("Transaction %d", index)
	}

	var category *string
	if c := strings.TrimSpace(row.Category); c != "" {
		category = &c
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	return NormalizedTransaction{
		Date:        date,
		Description: desc,
		Amount:      amt.Value,
		Currency:    currency,
		Type:        entryType,
		Category:    category,
	}, nil
}

// normalizeHeader folds a header cell to a lookup key.
func normalizeHeader(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(key, " ", "_")
}

// pickDescription prefers the description column but accepts the common
// bank synonyms seen in raw exports.
func pickDescription(record []string, cols map[string]int) string {
	for _, key := range []string{"description", "narration", "particulars", "details"} {
		if v := field(record, cols, key); v != "" {
			return v
		}
	}
	return ""
}

func field(record []string, cols map[string]int, key string) string {
	idx, ok := cols[key]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
