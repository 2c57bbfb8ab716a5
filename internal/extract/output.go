package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when the model's response contains nothing
// resembling CSV.
var ErrMalformedOutput = errors.New("extractor output is not CSV")

// CleanFences strips Markdown code fences the model was told not to emit
// but sometimes emits anyway.
func CleanFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return strings.TrimSpace(strings.TrimPrefix(s, "```"))
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// ParseExtractorOutput validates and repairs a raw model response into
// canonical ledger CSV: fences stripped, header line guaranteed.
func ParseExtractorOutput(raw string) (string, error) {
	csvText := CleanFences(raw)
	if csvText == "" || !strings.Contains(csvText, ",") {
		return "", fmt.Errorf("%w: %q", ErrMalformedOutput, truncate(raw, 120))
	}

	first := strings.ToLower(strings.TrimSpace(firstLine(csvText)))
	if !strings.Contains(first, "date") || !strings.Contains(first, "amount") {
		csvText = canonicalHeader + "\n" + csvText
	}
	return csvText, nil
}

// CountDataRows counts non-blank lines after the header.
func CountDataRows(csvText string) int {
	n := 0
	for _, line := range strings.Split(csvText, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return n - 1
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 {
		return s[:idx]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
