package tabular

import (
	"errors"
	"strings"
)

// ErrHeaderNotFound signals that no row in the scan window looks like a
// statement header. It means "fall back to remote extraction", not a hard
// failure.
var ErrHeaderNotFound = errors.New("no statement header row found")

// headerScanWindow is how many leading rows are examined for a header.
// Bank exports routinely put account banners and disclaimers above it.
const headerScanWindow = 20

// Keyword sets for column identification. Matching is case-insensitive
// substring containment; list order is the tie-break when several cells
// match, so more specific keywords go first. New bank formats are onboarded
// by extending these lists.
var (
	DateKeywords        = []string{"date", "txn date", "transaction date", "posting date", "value date", "book date"}
	DescriptionKeywords = []string{"description", "narration", "particulars", "details", "memo", "remarks", "reference", "transaction details"}
	AmountKeywords      = []string{"amount", "transaction amount", "value", "sum", "total"}
	DebitKeywords       = []string{"withdrawal", "debit", "debit amount", "dr", "withdrawal amt", "debit amt"}
	CreditKeywords      = []string{"deposit", "credit", "credit amount", "cr", "deposit amt", "credit amt"}
	TypeKeywords        = []string{"type", "dr/cr", "cr/dr"}
	CategoryKeywords    = []string{"category"}
)

// ColumnMap records, for a resolved header row, which column holds each
// field. Indexes are -1 when the column was not found.
type ColumnMap struct {
	HeaderRow   int
	Date        int
	Description int
	Amount      int
	Debit       int
	Credit      int
	Type        int
	Category    int
}

// HasDebitCredit reports whether both split-amount columns resolved.
func (m ColumnMap) HasDebitCredit() bool {
	return m.Debit != -1 && m.Credit != -1
}

// ResolveColumns scans the first headerScanWindow rows for a header: the
// first row containing both a date keyword and any amount/debit/credit
// keyword. It then maps each field to its column.
//
// Returns ErrHeaderNotFound when no viable header exists, or when the
// resolved header lacks a date column or any usable amount configuration
// (single amount, or debit plus credit).
func ResolveColumns(rows [][]string) (ColumnMap, error) {
	headerIdx := -1
	for i := 0; i < len(rows) && i < headerScanWindow; i++ {
		row := rows[i]
		if len(row) < 2 {
			continue
		}
		cells := lowerTrimmed(row)
		if anyCellMatches(cells, DateKeywords) && anyCellMatchesAny(cells, AmountKeywords, DebitKeywords, CreditKeywords) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return ColumnMap{}, ErrHeaderNotFound
	}

	cells := lowerTrimmed(rows[headerIdx])
	m := ColumnMap{
		HeaderRow:   headerIdx,
		Date:        findColumn(cells, DateKeywords),
		Description: findColumn(cells, DescriptionKeywords),
		Amount:      findColumn(cells, AmountKeywords),
		Debit:       findColumn(cells, DebitKeywords),
		Credit:      findColumn(cells, CreditKeywords),
		Type:        findColumn(cells, TypeKeywords),
		Category:    findColumn(cells, CategoryKeywords),
	}

	if m.Date == -1 {
		return ColumnMap{}, ErrHeaderNotFound
	}
	if m.Amount == -1 && !m.HasDebitCredit() {
		return ColumnMap{}, ErrHeaderNotFound
	}
	return m, nil
}

// findColumn returns the index of the first cell containing any keyword,
// iterating keywords in priority order: the first keyword with any match
// wins, regardless of cell position.
func findColumn(cells []string, keywords []string) int {
	for _, kw := range keywords {
		for i, c := range cells {
			if strings.Contains(c, kw) {
				return i
			}
		}
	}
	return -1
}

func lowerTrimmed(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

func anyCellMatches(cells, keywords []string) bool {
	for _, c := range cells {
		for _, kw := range keywords {
			if strings.Contains(c, kw) {
				return true
			}
		}
	}
	return false
}

func anyCellMatchesAny(cells []string, keywordSets ...[]string) bool {
	for _, set := range keywordSets {
		if anyCellMatches(cells, set) {
			return true
		}
	}
	return false
}
