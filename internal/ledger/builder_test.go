package ledger

import (
	"errors"
	"testing"

	"github.com/finbrief/statement-ingest/internal/normalize"
)

func TestBuildFromCSV_DepositAndWithdrawal(t *testing.T) {
	csvText := "date,amount,narration\n15/01/2025,1200.00,Deposit\n16/01/2025,-49.99,Coffee"

	txs, err := BuildFromCSV(csvText, "")
	if err != nil {
		t.Fatalf("BuildFromCSV() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}

	first := txs[0]
	if first.Date != "2025-01-15" {
		t.Errorf("first.Date = %q, want 2025-01-15", first.Date)
	}
	if first.Amount.StringFixed(2) != "1200.00" {
		t.Errorf("first.Amount = %s, want 1200.00", first.Amount)
	}
	if first.Type != normalize.Credit {
		t.Errorf("first.Type = %q, want credit", first.Type)
	}
	if first.Description != "Deposit" {
		t.Errorf("first.Description = %q, want Deposit", first.Description)
	}
	if first.Currency != "USD" {
		t.Errorf("first.Currency = %q, want USD", first.Currency)
	}
	if first.Category != nil {
		t.Errorf("first.Category = %v, want nil", *first.Category)
	}

	second := txs[1]
	if second.Date != "2025-01-16" {
		t.Errorf("second.Date = %q, want 2025-01-16", second.Date)
	}
	if second.Amount.StringFixed(2) != "49.99" {
		t.Errorf("second.Amount = %s, want magnitude 49.99", second.Amount)
	}
	if second.Type != normalize.Debit {
		t.Errorf("second.Type = %q, want debit", second.Type)
	}
}

func TestNormalize_ExplicitTypeOverridesSign(t *testing.T) {
	rows := []RawTransaction{
		{Date: "2025-01-15", Amount: "100.00", Type: "debit"},
		{Date: "2025-01-16", Amount: "-100.00", Type: "credit"},
		{Date: "2025-01-17", Amount: "-100.00", Type: "refund"}, // not a valid override
	}

	txs, err := Normalize(rows, "EUR")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	wantTypes := []normalize.EntryType{normalize.Debit, normalize.Credit, normalize.Debit}
	for i, want := range wantTypes {
		if txs[i].Type != want {
			t.Errorf("tx %d type = %q, want %q", i, txs[i].Type, want)
		}
		if txs[i].Amount.Sign() < 0 {
			t.Errorf("tx %d amount is negative: %s", i, txs[i].Amount)
		}
		if txs[i].Currency != "EUR" {
			t.Errorf("tx %d currency = %q, want EUR", i, txs[i].Currency)
		}
	}
}

func TestNormalize_DefaultsDescriptionAndCategory(t *testing.T) {
	rows := []RawTransaction{
		{Date: "2025-01-15", Amount: "10.00"},
		{Date: "2025-01-16", Amount: "20.00", Description: "Groceries", Category: "food"},
	}

	txs, err := Normalize(rows, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if txs[0].Description != "Transaction 1" {
		t.Errorf("description = %q, want Transaction 1", txs[0].Description)
	}
	if txs[0].Category != nil {
		t.Errorf("category = %v, want nil", *txs[0].Category)
	}
	if txs[1].Category == nil || *txs[1].Category != "food" {
		t.Errorf("category = %v, want food", txs[1].Category)
	}
}

func TestNormalize_RowErrorCarriesIndex(t *testing.T) {
	rows := []RawTransaction{
		{Date: "2025-01-15", Amount: "10.00"},
		{Date: "not a date", Amount: "10.00"},
	}

	_, err := Normalize(rows, "")
	if err == nil {
		t.Fatal("Normalize() expected error")
	}

	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("error %v is not a *RowError", err)
	}
	if rowErr.Row != 2 {
		t.Errorf("RowError.Row = %d, want 2", rowErr.Row)
	}
	if !errors.Is(err, normalize.ErrUnparsableDate) {
		t.Errorf("error %v does not wrap ErrUnparsableDate", err)
	}
}

func TestNormalize_ZeroAmountKeptAsCredit(t *testing.T) {
	txs, err := Normalize([]RawTransaction{{Date: "2025-01-15", Amount: "0.00"}}, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if txs[0].Type != normalize.Credit {
		t.Errorf("zero amount type = %q, want credit", txs[0].Type)
	}
}

func TestParseCSV_QuotedDescriptionAndMissingColumns(t *testing.T) {
	rows, err := ParseCSV("date,description,amount\n2025-01-15,\"Transfer to \"\"Acme, Inc\"\"\",-50.00")
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if rows[0].Description != `Transfer to "Acme, Inc"` {
		t.Errorf("description = %q", rows[0].Description)
	}

	if _, err := ParseCSV("description,amount\nCoffee,-4.50"); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("missing date column error = %v, want ErrMissingColumns", err)
	}
	if _, err := ParseCSV("date,description\n2025-01-15,Coffee"); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("missing amount column error = %v, want ErrMissingColumns", err)
	}
}
