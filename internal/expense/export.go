package expense

import (
	"fmt"

	"finance-backend/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// FormatAmount renders d in the currency's display format, e.g. R$1.234,56.
func FormatAmount(d decimal.Decimal, currency string) string {
	cur := money.New(0, currency).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

var exportHeaders = []string{"Due date", "Name", "Type", "Category", "Amount", "Formatted", "Paid", "Payment date"}

// MonthlyWorkbook writes the monthly view into a single-sheet workbook
// followed by total, paid and pending rows.
func MonthlyWorkbook(year, month int, entries []MonthlyEntry, currency string) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := fmt.Sprintf("%04d-%02d", year, month)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		category := ""
		if e.Category != nil {
			category = e.Category.Name
		}
		paymentDate := ""
		if e.PaymentDate != nil {
			paymentDate = models.FormatDate(*e.PaymentDate)
		}
		row := []any{
			models.FormatDate(e.DueDate),
			e.Name,
			string(e.Type),
			category,
			e.Amount.InexactFloat64(),
			FormatAmount(e.Amount, currency),
			e.Paid,
			paymentDate,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	summary := Summarize(year, month, entries)
	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Total", summary.Total},
		{"Paid", summary.Paid},
		{"Pending", summary.Pending},
	}
	base := len(entries) + 3 // one blank row after the data
	for i, t := range totals {
		row := []any{t.label, "", "", "", t.value.InexactFloat64(), FormatAmount(t.value, currency)}
		cell, _ := excelize.CoordinatesToCellName(1, base+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write totals: %w", err)
		}
	}

	return f, nil
}
