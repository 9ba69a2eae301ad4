package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"finance-backend/internal/expense"

	"github.com/shopspring/decimal"
)

func TestPrintMonth(t *testing.T) {
	entries := []expense.MonthlyEntry{
		{
			Kind: expense.OccurrenceReal, Type: expense.ExpenseTypeInstallment, ID: 1,
			Name: "Notebook", Amount: decimal.RequireFromString("33.33"),
			DueDate: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), Paid: true,
		},
		{
			Kind: expense.OccurrenceVirtual, Type: expense.ExpenseTypeRecurring, ID: 2,
			Name: "Internet", Amount: decimal.RequireFromString("99.90"),
			DueDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := printMonth(&buf, 2024, 2, entries, "USD"); err != nil {
		t.Fatalf("printMonth: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"DUE", "2024-02-15", "Notebook", "installment", "$33.33", "yes",
		"2024-02-29", "Internet", "recurring", "$99.90",
		"Total", "$133.23", "Paid", "Pending",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 7 {
		t.Errorf("got %d lines, want 7:\n%s", lines, out)
	}
}
