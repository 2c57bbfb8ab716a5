package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsableDate is returned when no recognized shape matches the input.
var ErrUnparsableDate = errors.New("unparsable date")

// ErrInvalidDateValues is returned when a shape matched but the resolved
// day/month fall outside calendar bounds.
var ErrInvalidDateValues = errors.New("invalid date values")

var (
	isoRe       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericRe   = regexp.MustCompile(`^(\d{1,2})([/.-])(\d{1,2})([/.-])(\d{2,4})$`)
	monthNameRe = regexp.MustCompile(`^(\d{1,2})[\s-]([A-Za-z]{3,9})[\s-](\d{2,4})$`)
)

var monthsByPrefix = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// fallbackLayouts is tried last, for inputs none of the explicit shapes
// cover (e.g. "Jan 2, 2025", RFC dates exported by some tools).
var fallbackLayouts = []string{
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 January 2006",
	"2006/01/02",
	"2006.01.02",
	"02 Jan 06",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	time.RFC1123,
	time.ANSIC,
}

// Date converts a raw date string into canonical YYYY-MM-DD form.
//
// Recognized shapes, first match wins:
//  1. YYYY-M-D (re-validated, zero-padded)
//  2. a/b/year, a-b-year, a.b.year — day/month resolved by smartDayMonth
//  3. D-Mon-YYYY or "D Mon YYYY" with a month name
//  4. a small set of general-purpose layouts
//
// Two-digit years expand to 19XX when > 50, else 20XX.
func Date(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty input", ErrUnparsableDate)
	}

	if m := isoRe.FindStringSubmatch(trimmed); m != nil {
		year := m[1]
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validDayMonth(month, day) {
			return formatDate(year, month, day), nil
		}
		// Tolerate YYYY-DD-MM from misconfigured exports.
		if validDayMonth(day, month) {
			return formatDate(year, day, month), nil
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidDateValues, raw)
	}

	if m := numericRe.FindStringSubmatch(trimmed); m != nil && m[2] == m[4] {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		year := expandYear(m[5])
		return smartDayMonth(a, b, year, raw)
	}

	if m := monthNameRe.FindStringSubmatch(trimmed); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := monthsByPrefix[strings.ToLower(m[2])[:3]]
		if ok {
			year := expandYear(m[3])
			if !validDayMonth(month, day) {
				return "", fmt.Errorf("%w: %q", ErrInvalidDateValues, raw)
			}
			return formatDate(year, month, day), nil
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnparsableDate, raw)
}

// smartDayMonth resolves ambiguous a/b/year ordering.
//
// If a > 12 it must be the day; if b > 12 it must be the day. When both are
// <= 12 the input is genuinely ambiguous and day-first wins: most banks
// outside the US emit DD/MM, so month-first would silently misread the
// majority of statements. The >12 checks make unambiguous inputs come out
// right regardless of origin.
func smartDayMonth(a, b int, year string, raw string) (string, error) {
	var month, day int
	switch {
	case a > 12 && b <= 12:
		day, month = a, b
	case b > 12 && a <= 12:
		month, day = a, b
	default:
		day, month = a, b
	}

	if !validDayMonth(month, day) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateValues, raw)
	}
	return formatDate(year, month, day), nil
}

func expandYear(y string) string {
	if len(y) != 2 {
		return y
	}
	n, _ := strconv.Atoi(y)
	if n > 50 {
		return "19" + y
	}
	return "20" + y
}

func validDayMonth(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}

func formatDate(year string, month, day int) string {
	return fmt.Sprintf("%s-%02d-%02d", year, month, day)
}
