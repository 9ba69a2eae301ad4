package expense

import (
	"testing"
	"time"

	"finance-backend/internal/models"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234.56", "USD", "$1,234.56"},
		{"0.5", "USD", "$0.50"},
		{"33.333", "USD", "$33.33"},
	}
	for _, tt := range tests {
		if got := FormatAmount(decimal.RequireFromString(tt.amount), tt.currency); got != tt.want {
			t.Errorf("FormatAmount(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestMonthlyWorkbook(t *testing.T) {
	paidOn := date(2024, time.February, 3)
	entries := []MonthlyEntry{
		{
			Kind:        OccurrenceReal,
			Type:        ExpenseTypeSimple,
			ID:          4,
			Name:        "Rent",
			Amount:      decimal.RequireFromString("1200.00"),
			DueDate:     date(2024, time.February, 5),
			PaymentDate: &paidOn,
			Paid:        true,
			Category:    &models.Category{ID: 1, Name: "Home"},
		},
		{
			Kind:    OccurrenceVirtual,
			Type:    ExpenseTypeRecurring,
			ID:      2,
			Name:    "Internet",
			Amount:  decimal.RequireFromString("99.90"),
			DueDate: date(2024, time.February, 29),
		},
	}

	f, err := MonthlyWorkbook(2024, 2, entries, "USD")
	if err != nil {
		t.Fatalf("MonthlyWorkbook: %v", err)
	}
	defer f.Close()

	const sheet = "2024-02"
	if f.GetSheetName(0) != sheet {
		t.Fatalf("sheet name = %q", f.GetSheetName(0))
	}

	cells := []struct {
		cell string
		want string
	}{
		{"A1", "Due date"},
		{"E1", "Amount"},
		{"A2", "2024-02-05"},
		{"B2", "Rent"},
		{"C2", "simple"},
		{"D2", "Home"},
		{"F2", "$1,200.00"},
		{"H2", "2024-02-03"},
		{"B3", "Internet"},
		{"C3", "recurring"},
		{"D3", ""},
		{"H3", ""},
		{"A4", ""},
		{"A5", "Total"},
		{"F5", "$1,299.90"},
		{"A6", "Paid"},
		{"F6", "$1,200.00"},
		{"A7", "Pending"},
		{"F7", "$99.90"},
	}
	for _, c := range cells {
		got, err := f.GetCellValue(sheet, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s = %q, want %q", c.cell, got, c.want)
		}
	}
}
