package tabular

import (
	"strings"
	"testing"
)

func TestParseLocal_SingleAmountColumn(t *testing.T) {
	rows := [][]string{
		{"date", "amount", "narration"},
		{"15/01/2025", "1200.00", "Deposit"},
		{"16/01/2025", "-49.99", "Coffee"},
	}

	res := ParseLocal(rows)
	if !res.OK {
		t.Fatalf("ParseLocal not OK: %s", res.Reason)
	}
	want := "date,description,amount\n" +
		"2025-01-15,Deposit,1200.00\n" +
		"2025-01-16,Coffee,-49.99"
	if res.CSVText != want {
		t.Errorf("CSVText:\n%s\nwant:\n%s", res.CSVText, want)
	}
	if res.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", res.RowCount)
	}
}

func TestParseLocal_DebitCreditColumns(t *testing.T) {
	rows := [][]string{
		{"Date", "Particulars", "Withdrawal", "Deposit"},
		{"01-03-2025", "ATM", "500.00", ""},
		{"02-03-2025", "Refund", "", "120.50"},
	}

	res := ParseLocal(rows)
	if !res.OK {
		t.Fatalf("ParseLocal not OK: %s", res.Reason)
	}
	lines := strings.Split(res.CSVText, "\n")
	// Ambiguous 01-03 resolves day-first: March 1st.
	if lines[1] != "2025-03-01,ATM,-500.00" {
		t.Errorf("line 1 = %q, want %q", lines[1], "2025-03-01,ATM,-500.00")
	}
	if lines[2] != "2025-03-02,Refund,120.50" {
		t.Errorf("line 2 = %q, want %q", lines[2], "2025-03-02,Refund,120.50")
	}
}

func TestParseLocal_SkipPolicies(t *testing.T) {
	rows := [][]string{
		{"Date", "Description", "Withdrawal", "Deposit"},
		{"15/01/2025", "Opening Balance", "", ""},     // both blank: balance line
		{"16/01/2025", "Zeroes", "0.00", "0"},         // both zero
		{"", "No date", "10.00", ""},                  // empty date
		{"TOTAL", "Summary", "100.00", ""},            // no digit in date cell
		{"99/99/2025", "Bad date", "10.00", ""},       // unparseable date
		{"17/01/2025", "Groceries", "45.00", ""},      // valid, must survive
	}

	res := ParseLocal(rows)
	if !res.OK {
		t.Fatalf("ParseLocal not OK: %s", res.Reason)
	}
	if res.RowCount != 1 {
		t.Fatalf("RowCount = %d, want 1\ncsv:\n%s", res.RowCount, res.CSVText)
	}
	if !strings.HasSuffix(res.CSVText, "2025-01-17,Groceries,-45.00") {
		t.Errorf("surviving row wrong:\n%s", res.CSVText)
	}
}

func TestParseLocal_ZeroSingleAmountSkipped(t *testing.T) {
	rows := [][]string{
		{"date", "description", "amount"},
		{"15/01/2025", "Auth hold", "0.00"},
	}
	res := ParseLocal(rows)
	if res.OK {
		t.Fatalf("expected soft failure, got OK with:\n%s", res.CSVText)
	}
}

func TestParseLocal_DescriptionHandling(t *testing.T) {
	rows := [][]string{
		{"date", "amount"},
		{"15/01/2025", "10.00"},
	}
	res := ParseLocal(rows)
	if !res.OK {
		t.Fatalf("ParseLocal not OK: %s", res.Reason)
	}
	if !strings.Contains(res.CSVText, "2025-01-15,Transaction,10.00") {
		t.Errorf("missing default description:\n%s", res.CSVText)
	}

	rows = [][]string{
		{"date", "description", "amount"},
		{"15/01/2025", `Transfer to "Acme, Inc"`, "10.00"},
	}
	res = ParseLocal(rows)
	if !res.OK {
		t.Fatalf("ParseLocal not OK: %s", res.Reason)
	}
	if !strings.Contains(res.CSVText, `"Transfer to ""Acme, Inc""",10.00`) {
		t.Errorf("comma description not quoted:\n%s", res.CSVText)
	}
}

func TestParseLocal_CurrencyDecoratedCells(t *testing.T) {
	rows := [][]string{
		{"date", "description", "amount"},
		{"15/01/2025", "Invoice", "₹1,23,456.78"},
		{"16/01/2025", "Rent", "-$1,000.00"},
	}
	res := ParseLocal(rows)
	if !res.OK {
		t.Fatalf("ParseLocal not OK: %s", res.Reason)
	}
	lines := strings.Split(res.CSVText, "\n")
	if lines[1] != "2025-01-15,Invoice,123456.78" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "2025-01-16,Rent,-1000.00" {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestParseLocal_HeaderUnavailable(t *testing.T) {
	rows := [][]string{
		{"col1", "col2", "col3"},
		{"a", "b", "c"},
	}
	res := ParseLocal(rows)
	if res.OK {
		t.Fatal("expected unavailable result")
	}
	if res.Reason == "" {
		t.Error("Reason should explain the soft failure")
	}
}

func TestEscapeField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"has, comma", `"has, comma"`},
		{`quote " only`, `quote " only`},
		{`both, "x"`, `"both, ""x"""`},
	}
	for _, tt := range tests {
		if got := EscapeField(tt.in); got != tt.want {
			t.Errorf("EscapeField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatrixCSV(t *testing.T) {
	rows := [][]string{
		{"date", "description", "amount"},
		{"", "", ""},
		{"15/01/2025", "a, b", "10"},
	}
	got := MatrixCSV(rows)
	want := "date,description,amount\n15/01/2025,\"a, b\",10"
	if got != want {
		t.Errorf("MatrixCSV = %q, want %q", got, want)
	}
}
