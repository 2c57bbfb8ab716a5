package tabular

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finbrief/statement-ingest/internal/normalize"
)

// CanonicalHeader is the first line of every canonical ledger CSV.
const CanonicalHeader = "date,description,amount"

// LocalResult is the outcome of a local parse attempt. Unavailable is an
// expected, non-error outcome: the caller escalates to remote extraction.
type LocalResult struct {
	OK       bool
	CSVText  string
	RowCount int
	Reason   string
}

func unavailable(reason string) LocalResult {
	return LocalResult{Reason: reason}
}

// ParseLocal deterministically converts a row matrix into canonical ledger
// CSV, or reports that the matrix cannot be parsed locally.
//
// Row skip policy (a malformed row never aborts the file):
//   - date cell empty or without any digit
//   - debit and credit both zero/blank (balance or total lines)
//   - single amount exactly zero
//   - date that fails to normalize
func ParseLocal(rows [][]string) LocalResult {
	m, err := ResolveColumns(rows)
	if err != nil {
		return unavailable("header not found")
	}

	out := []string{CanonicalHeader}
	for _, row := range rows[m.HeaderRow+1:] {
		dateCell := strings.TrimSpace(cell(row, m.Date))
		if dateCell == "" || !containsDigit(dateCell) {
			continue
		}

		desc := "Transaction"
		if m.Description != -1 {
			if d := strings.TrimSpace(cell(row, m.Description)); d != "" {
				desc = d
			}
		}

		var amt decimal.Decimal
		if m.HasDebitCredit() {
			dr := numericValue(cell(row, m.Debit))
			cr := numericValue(cell(row, m.Credit))
			switch {
			case cr.IsPositive():
				amt = cr
			case dr.IsPositive():
				amt = dr.Neg()
			default:
				continue
			}
		} else {
			amt = numericValue(cell(row, m.Amount))
			if amt.IsZero() {
				continue
			}
		}

		date, err := normalize.Date(dateCell)
		if err != nil {
			continue
		}

		out = append(out, date+","+EscapeField(desc)+","+amt.StringFixed(2))
	}

	if len(out) <= 1 {
		return unavailable("no data rows")
	}
	return LocalResult{
		OK:       true,
		CSVText:  strings.Join(out, "\n"),
		RowCount: len(out) - 1,
	}
}

// EscapeField quotes a CSV field when it contains a comma, doubling any
// embedded quotes.
func EscapeField(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// numericValue parses a cell as a signed number, treating unparseable
// content as zero. Magnitude-only cleaning for the debit/credit merge.
func numericValue(s string) decimal.Decimal {
	d, err := normalize.ParseNumber(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
