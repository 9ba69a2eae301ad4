package expense

import (
	"fmt"
	"sort"
	"time"

	"finance-backend/internal/apperr"
	"finance-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OccurrenceKind string

const (
	OccurrenceReal    OccurrenceKind = "real"    // stored Expense row
	OccurrenceVirtual OccurrenceKind = "virtual" // RecurringExpense projected onto the month
)

type ExpenseType string

const (
	ExpenseTypeSimple      ExpenseType = "simple"
	ExpenseTypeInstallment ExpenseType = "installment"
	ExpenseTypeRecurring   ExpenseType = "recurring"
)

const (
	minYear = 1900
	maxYear = 9999
)

// MonthlyEntry is one line of the monthly view. For real entries ID is the
// Expense id; for virtual entries it is the RecurringExpense id.
type MonthlyEntry struct {
	Kind              OccurrenceKind
	Type              ExpenseType
	ID                uint
	Name              string
	Amount            decimal.Decimal
	DueDate           time.Time
	PaymentDate       *time.Time
	Paid              bool
	Category          *models.Category
	InstallmentOrigin *models.InstallmentExpense
	CreatedAt         time.Time
}

func (e MonthlyEntry) IsRecurring() bool { return e.Kind == OccurrenceVirtual }

// MonthlyView lists what ownerID has to pay in year/month: the stored
// expenses due that month plus one virtual entry per recurring expense
// active during the month, sorted by due date.
func MonthlyView(db *gorm.DB, ownerID uint, year, month int) ([]MonthlyEntry, error) {
	if month < 1 || month > 12 {
		return nil, apperr.InvalidArgument("month %d out of range 1-12", month)
	}
	if year < minYear || year > maxYear {
		return nil, apperr.InvalidArgument("year %d out of range %d-%d", year, minYear, maxYear)
	}

	first, last := monthBounds(year, month)

	var expenses []models.Expense
	if err := db.
		Preload("Category").
		Preload("InstallmentOrigin").
		Preload("InstallmentOrigin.Category").
		Where("user_id = ? AND due_date >= ? AND due_date <= ?", ownerID, first, last).
		Order("due_date asc, id asc").
		Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load monthly expenses: %w", err)
	}

	var contracts []models.RecurringExpense
	if err := db.
		Preload("Category").
		Where("user_id = ? AND active = ? AND start_date <= ?", ownerID, true, last).
		Order("name asc, id asc").
		Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("load recurring expenses: %w", err)
	}

	var paidIDs []uint
	if err := db.Model(&models.PaidRecurringExpense{}).
		Joins("JOIN recurring_expenses ON recurring_expenses.id = paid_recurring_expenses.recurring_expense_id").
		Where("recurring_expenses.user_id = ? AND paid_recurring_expenses.year = ? AND paid_recurring_expenses.month = ?",
			ownerID, year, month).
		Pluck("paid_recurring_expenses.recurring_expense_id", &paidIDs).Error; err != nil {
		return nil, fmt.Errorf("load paid recurring expenses: %w", err)
	}

	entries := make([]MonthlyEntry, 0, len(expenses)+len(contracts))
	for _, e := range expenses {
		entries = append(entries, realEntry(e))
	}
	entries = append(entries, projectRecurring(contracts, paidIDs, year, month)...)
	sortEntries(entries)

	return entries, nil
}

func realEntry(e models.Expense) MonthlyEntry {
	typ := ExpenseTypeSimple
	if e.InstallmentOriginID != nil {
		typ = ExpenseTypeInstallment
	}
	return MonthlyEntry{
		Kind:              OccurrenceReal,
		Type:              typ,
		ID:                e.ID,
		Name:              e.Name,
		Amount:            e.Amount,
		DueDate:           models.DateOnly(e.DueDate),
		PaymentDate:       e.PaymentDate,
		Paid:              e.Paid,
		Category:          e.Category,
		InstallmentOrigin: e.InstallmentOrigin,
		CreatedAt:         e.CreatedAt,
	}
}

// projectRecurring turns the contracts active during year/month into
// virtual entries. The due day is clamped to the month length and paid is
// set when the contract id is in paidIDs.
func projectRecurring(contracts []models.RecurringExpense, paidIDs []uint, year, month int) []MonthlyEntry {
	first, last := monthBounds(year, month)

	paid := make(map[uint]bool, len(paidIDs))
	for _, id := range paidIDs {
		paid[id] = true
	}

	entries := make([]MonthlyEntry, 0, len(contracts))
	for _, c := range contracts {
		if !c.Active || models.DateOnly(c.StartDate).After(last) {
			continue
		}
		if c.EndDate != nil && models.DateOnly(*c.EndDate).Before(first) {
			continue
		}

		day := c.DueDay
		if day > last.Day() {
			day = last.Day()
		}

		entries = append(entries, MonthlyEntry{
			Kind:      OccurrenceVirtual,
			Type:      ExpenseTypeRecurring,
			ID:        c.ID,
			Name:      c.Name,
			Amount:    c.Amount,
			DueDate:   time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
			Paid:      paid[c.ID],
			Category:  c.Category,
			CreatedAt: c.CreatedAt,
		})
	}
	return entries
}

// sortEntries orders by due date; on equal dates real entries come before
// virtual ones, then lower ids first.
func sortEntries(entries []MonthlyEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Kind != b.Kind {
			return a.Kind == OccurrenceReal
		}
		return a.ID < b.ID
	})
}

// MonthlySummary totals a monthly view.
type MonthlySummary struct {
	Year    int
	Month   int
	Count   int
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
	ByType  map[ExpenseType]int
}

func Summarize(year, month int, entries []MonthlyEntry) MonthlySummary {
	s := MonthlySummary{
		Year:   year,
		Month:  month,
		Count:  len(entries),
		ByType: map[ExpenseType]int{},
	}
	for _, e := range entries {
		s.Total = s.Total.Add(e.Amount)
		if e.Paid {
			s.Paid = s.Paid.Add(e.Amount)
		} else {
			s.Pending = s.Pending.Add(e.Amount)
		}
		s.ByType[e.Type]++
	}
	return s
}
