package expense

import (
	"fmt"
	"strconv"
	"time"

	"finance-backend/internal/apperr"
	"finance-backend/internal/auth"
	"finance-backend/internal/database"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type MonthlyEntryResponse struct {
	OccurrenceKind    OccurrenceKind       `json:"occurrence_kind"`
	ExpenseType       ExpenseType          `json:"expense_type"`
	IsRecurring       bool                 `json:"is_recurring"`
	ID                uint                 `json:"id"`
	Name              string               `json:"name"`
	Amount            string               `json:"amount"`
	DueDate           string               `json:"due_date"`
	PaymentDate       *string              `json:"payment_date"`
	Paid              bool                 `json:"paid"`
	Category          *CategoryResponse    `json:"category"`
	InstallmentOrigin *InstallmentResponse `json:"installment_origin"`
	CreatedAt         string               `json:"created_at"`
}

type MonthlySummaryResponse struct {
	Year    int                 `json:"year"`
	Month   int                 `json:"month"`
	Count   int                 `json:"count"`
	Total   string              `json:"total"`
	Paid    string              `json:"paid"`
	Pending string              `json:"pending"`
	ByType  map[ExpenseType]int `json:"by_type"`
}

func toMonthlyEntryResponse(e MonthlyEntry) MonthlyEntryResponse {
	var origin *InstallmentResponse
	if e.InstallmentOrigin != nil {
		r := toInstallmentResponse(*e.InstallmentOrigin)
		origin = &r
	}
	return MonthlyEntryResponse{
		OccurrenceKind:    e.Kind,
		ExpenseType:       e.Type,
		IsRecurring:       e.IsRecurring(),
		ID:                e.ID,
		Name:              e.Name,
		Amount:            e.Amount.StringFixed(2),
		DueDate:           models.FormatDate(e.DueDate),
		PaymentDate:       models.FormatDatePtr(e.PaymentDate),
		Paid:              e.Paid,
		Category:          toCategoryResponse(e.Category),
		InstallmentOrigin: origin,
		CreatedAt:         e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// monthQuery reads due_date__year and due_date__month, defaulting to the
// current month. Range checks are left to MonthlyView.
func monthQuery(c *fiber.Ctx) (year, month int, err error) {
	today := time.Now()
	year, month = today.Year(), int(today.Month())

	if s := c.Query("due_date__year"); s != "" {
		if year, err = strconv.Atoi(s); err != nil {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "invalid year/month parameters")
		}
	}
	if s := c.Query("due_date__month"); s != "" {
		if month, err = strconv.Atoi(s); err != nil {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "invalid year/month parameters")
		}
	}
	return year, month, nil
}

func loadMonth(c *fiber.Ctx) (year, month int, entries []MonthlyEntry, err error) {
	userID, err := auth.UserID(c)
	if err != nil {
		return 0, 0, nil, err
	}
	year, month, err = monthQuery(c)
	if err != nil {
		return 0, 0, nil, err
	}

	entries, err = MonthlyView(database.DB, userID, year, month)
	if err != nil {
		return 0, 0, nil, apperr.ToFiber(err)
	}
	return year, month, entries, nil
}

// GET /api/v1/monthly-view?due_date__year=2024&due_date__month=2
func MonthlyViewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, _, entries, err := loadMonth(c)
		if err != nil {
			return err
		}

		res := make([]MonthlyEntryResponse, 0, len(entries))
		for _, e := range entries {
			res = append(res, toMonthlyEntryResponse(e))
		}
		return c.JSON(res)
	}
}

// GET /api/v1/monthly-view/summary?due_date__year=2024&due_date__month=2
func MonthlySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, entries, err := loadMonth(c)
		if err != nil {
			return err
		}

		s := Summarize(year, month, entries)
		return c.JSON(MonthlySummaryResponse{
			Year:    s.Year,
			Month:   s.Month,
			Count:   s.Count,
			Total:   s.Total.StringFixed(2),
			Paid:    s.Paid.StringFixed(2),
			Pending: s.Pending.StringFixed(2),
			ByType:  s.ByType,
		})
	}
}

// GET /api/v1/monthly-view/export?due_date__year=2024&due_date__month=2
// Same list as the monthly view, as an xlsx download.
func MonthlyExportHandler(currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, entries, err := loadMonth(c)
		if err != nil {
			return err
		}

		f, err := MonthlyWorkbook(year, month, entries, currency)
		if err != nil {
			logrus.WithError(err).Error("monthly workbook failed")
			return fiber.NewError(fiber.StatusInternalServerError, "could not build export")
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			logrus.WithError(err).Error("monthly workbook write failed")
			return fiber.NewError(fiber.StatusInternalServerError, "could not build export")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="expenses-%04d-%02d.xlsx"`, year, month))
		return c.Send(buf.Bytes())
	}
}
