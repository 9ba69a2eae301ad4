package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"finance-backend/internal/apperr"
	"finance-backend/internal/auth"
	"finance-backend/internal/database"
	"finance-backend/internal/expense"
	"finance-backend/internal/investment"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultMonths = 12
	maxMonths     = 60
)

// MonthPoint aggregates one calendar month.
type MonthPoint struct {
	Year            int
	Month           int
	ExpensesTotal   decimal.Decimal
	ExpensesPaid    decimal.Decimal
	ExpensesPending decimal.Decimal
	Dividends       decimal.Decimal
	Bought          decimal.Decimal
	Sold            decimal.Decimal
}

func monthKey(year, month int) int { return year*100 + month }

// MonthlyChart aggregates the count months ending at endYear/endMonth,
// oldest first.
func MonthlyChart(db *gorm.DB, ownerID uint, endYear, endMonth, count int) ([]MonthPoint, error) {
	if count < 1 || count > maxMonths {
		return nil, apperr.InvalidArgument("count must be between 1 and %d", maxMonths)
	}
	if endMonth < 1 || endMonth > 12 {
		return nil, apperr.InvalidArgument("month %d out of range 1-12", endMonth)
	}

	end := time.Date(endYear, time.Month(endMonth), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -(count - 1), 0)

	points := make([]MonthPoint, 0, count)
	index := make(map[int]int, count)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		y, mo := m.Year(), int(m.Month())

		entries, err := expense.MonthlyView(db, ownerID, y, mo)
		if err != nil {
			return nil, err
		}
		s := expense.Summarize(y, mo, entries)

		index[monthKey(y, mo)] = len(points)
		points = append(points, MonthPoint{
			Year:            y,
			Month:           mo,
			ExpensesTotal:   s.Total,
			ExpensesPaid:    s.Paid,
			ExpensesPending: s.Pending,
		})
	}

	var dividendCards []models.DividendCard
	if err := db.Preload("Items").
		Where("user_id = ? AND year BETWEEN ? AND ?", ownerID, start.Year(), end.Year()).
		Find(&dividendCards).Error; err != nil {
		return nil, fmt.Errorf("load dividend cards: %w", err)
	}
	for _, card := range dividendCards {
		i, ok := index[monthKey(card.Year, card.Month)]
		if !ok {
			continue
		}
		for _, it := range card.Items {
			points[i].Dividends = points[i].Dividends.Add(it.Value)
		}
	}

	var investmentCards []models.InvestmentCard
	if err := db.Preload("Items").
		Where("user_id = ? AND year BETWEEN ? AND ?", ownerID, start.Year(), end.Year()).
		Find(&investmentCards).Error; err != nil {
		return nil, fmt.Errorf("load investment cards: %w", err)
	}
	for _, card := range investmentCards {
		i, ok := index[monthKey(card.Year, card.Month)]
		if !ok {
			continue
		}
		bought, sold := investment.Totals(card.Items)
		points[i].Bought = points[i].Bought.Add(bought)
		points[i].Sold = points[i].Sold.Add(sold)
	}

	return points, nil
}

type ChartPoint struct {
	Label           string `json:"label"` // YYYY-MM
	ExpensesTotal   string `json:"expenses_total"`
	ExpensesPaid    string `json:"expenses_paid"`
	ExpensesPending string `json:"expenses_pending"`
	Dividends       string `json:"dividends"`
	Bought          string `json:"bought"`
	Sold            string `json:"sold"`
}

type ChartGrandTotals struct {
	ExpensesTotal string `json:"expenses_total"`
	Dividends     string `json:"dividends"`
	Bought        string `json:"bought"`
	Sold          string `json:"sold"`
}

type ChartResponse struct {
	From        string           `json:"from"`
	To          string           `json:"to"`
	Points      []ChartPoint     `json:"points"`
	GrandTotals ChartGrandTotals `json:"grand_totals"`
}

// queryInt reads an integer query parameter; a missing one gives def.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s parameter", key))
	}
	return v, nil
}

// GET /api/v1/dashboard/monthly-chart?count=12&year=2024&month=6
// The window ends at year/month, defaulting to the current month.
func MonthlyChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		today := time.Now()
		year, err := queryInt(c, "year", today.Year())
		if err != nil {
			return err
		}
		month, err := queryInt(c, "month", int(today.Month()))
		if err != nil {
			return err
		}
		count, err := queryInt(c, "count", defaultMonths)
		if err != nil {
			return err
		}

		points, err := MonthlyChart(database.DB, userID, year, month, count)
		if err != nil {
			return apperr.ToFiber(err)
		}

		var total, dividends, bought, sold decimal.Decimal
		res := ChartResponse{Points: make([]ChartPoint, 0, len(points))}
		for _, p := range points {
			res.Points = append(res.Points, ChartPoint{
				Label:           fmt.Sprintf("%04d-%02d", p.Year, p.Month),
				ExpensesTotal:   p.ExpensesTotal.StringFixed(2),
				ExpensesPaid:    p.ExpensesPaid.StringFixed(2),
				ExpensesPending: p.ExpensesPending.StringFixed(2),
				Dividends:       p.Dividends.StringFixed(2),
				Bought:          p.Bought.StringFixed(2),
				Sold:            p.Sold.StringFixed(2),
			})
			total = total.Add(p.ExpensesTotal)
			dividends = dividends.Add(p.Dividends)
			bought = bought.Add(p.Bought)
			sold = sold.Add(p.Sold)
		}
		res.From = res.Points[0].Label
		res.To = res.Points[len(res.Points)-1].Label
		res.GrandTotals = ChartGrandTotals{
			ExpensesTotal: total.StringFixed(2),
			Dividends:     dividends.StringFixed(2),
			Bought:        bought.StringFixed(2),
			Sold:          sold.StringFixed(2),
		}

		return c.JSON(res)
	}
}
