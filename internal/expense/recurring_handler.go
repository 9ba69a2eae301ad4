package expense

import (
	"errors"
	"fmt"
	"strings"

	"finance-backend/internal/apperr"
	"finance-backend/internal/audit"
	"finance-backend/internal/auth"
	"finance-backend/internal/database"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecurringRequest struct {
	Name       *string          `json:"name"`
	Amount     *decimal.Decimal `json:"amount"`
	DueDay     *int             `json:"due_day"`
	StartDate  *string          `json:"start_date"`
	EndDate    NullableDate     `json:"end_date"` // null or "" clears it
	Active     *bool            `json:"active"`
	CategoryID *uint            `json:"category_id"`
}

type RecurringResponse struct {
	ID        uint              `json:"id"`
	Name      string            `json:"name"`
	Amount    string            `json:"amount"`
	DueDay    int               `json:"due_day"`
	StartDate string            `json:"start_date"`
	EndDate   *string           `json:"end_date"`
	Active    bool              `json:"active"`
	Category  *CategoryResponse `json:"category"`
}

type CreatePaidRecurringRequest struct {
	RecurringExpenseID uint   `json:"recurring_expense_id"`
	PaymentDate        string `json:"payment_date"`
	Month              int    `json:"month"`
	Year               int    `json:"year"`
}

type PaidRecurringResponse struct {
	ID                 uint   `json:"id"`
	RecurringExpenseID uint   `json:"recurring_expense_id"`
	PaymentDate        string `json:"payment_date"`
	Month              int    `json:"month"`
	Year               int    `json:"year"`
}

func toRecurringResponse(r models.RecurringExpense) RecurringResponse {
	return RecurringResponse{
		ID:        r.ID,
		Name:      r.Name,
		Amount:    r.Amount.StringFixed(2),
		DueDay:    r.DueDay,
		StartDate: models.FormatDate(r.StartDate),
		EndDate:   models.FormatDatePtr(r.EndDate),
		Active:    r.Active,
		Category:  toCategoryResponse(r.Category),
	}
}

func recurringAuditData(r models.RecurringExpense) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"name":        r.Name,
		"amount":      r.Amount.StringFixed(2),
		"due_day":     r.DueDay,
		"start_date":  models.FormatDate(r.StartDate),
		"end_date":    models.FormatDatePtr(r.EndDate),
		"active":      r.Active,
		"category_id": r.CategoryID,
	}
}

func toPaidRecurringResponse(p models.PaidRecurringExpense) PaidRecurringResponse {
	return PaidRecurringResponse{
		ID:                 p.ID,
		RecurringExpenseID: p.RecurringExpenseID,
		PaymentDate:        models.FormatDate(p.PaymentDate),
		Month:              p.Month,
		Year:               p.Year,
	}
}

// applyRecurring copies the fields present in body onto rec and checks the
// result as a whole.
func applyRecurring(ownerID uint, rec *models.RecurringExpense, body RecurringRequest) error {
	if body.Name != nil {
		rec.Name = strings.TrimSpace(*body.Name)
	}
	if body.Amount != nil {
		rec.Amount = body.Amount.Round(2)
	}
	if body.DueDay != nil {
		rec.DueDay = *body.DueDay
	}
	if body.StartDate != nil {
		d, err := parseDateField("start_date", *body.StartDate)
		if err != nil {
			return err
		}
		rec.StartDate = d
	}
	if body.EndDate.Set {
		d, err := parseOptionalDate("end_date", body.EndDate.Value)
		if err != nil {
			return err
		}
		rec.EndDate = d
	}
	if body.Active != nil {
		rec.Active = *body.Active
	}
	if body.CategoryID != nil {
		catID, err := categoryRef(ownerID, body.CategoryID)
		if err != nil {
			return err
		}
		rec.CategoryID = catID
	}

	switch {
	case rec.Name == "":
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	case !rec.Amount.IsPositive():
		return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	case rec.DueDay < 1 || rec.DueDay > 31:
		return fiber.NewError(fiber.StatusBadRequest, "due_day must be between 1 and 31")
	case rec.StartDate.IsZero():
		return fiber.NewError(fiber.StatusBadRequest, "start_date is required")
	case rec.EndDate != nil && rec.EndDate.Before(rec.StartDate):
		return fiber.NewError(fiber.StatusBadRequest, "end_date cannot be before start_date")
	}
	return nil
}

// -------------------------
// Recurring expense CRUD
// -------------------------

// GET /api/v1/recurring
func ListRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var list []models.RecurringExpense
		if err := database.DB.Preload("Category").
			Where("user_id = ?", userID).
			Order("name asc, id asc").
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list recurring expenses")
		}

		res := make([]RecurringResponse, 0, len(list))
		for _, r := range list {
			res = append(res, toRecurringResponse(r))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/recurring
func CreateRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body RecurringRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		rec := models.RecurringExpense{UserID: userID, Active: true}
		if err := applyRecurring(userID, &rec, body); err != nil {
			return err
		}

		// Create skips a false Active and reads the column default back,
		// so the requested value is kept aside and written afterwards.
		active := rec.Active
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			if !active {
				if err := tx.Model(&rec).Update("active", false).Error; err != nil {
					return err
				}
				rec.Active = false
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save recurring expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "recurring_expense",
			EntityID:    rec.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("recurring expense created: %s %s every day %d", rec.Name, rec.Amount.StringFixed(2), rec.DueDay),
			After:       recurringAuditData(rec),
		})

		saved, err := ownedRecurring(database.DB, userID, rec.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(toRecurringResponse(*saved))
	}
}

// GET /api/v1/recurring/:id
func GetRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		rec, err := ownedRecurring(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toRecurringResponse(*rec))
	}
}

// PUT /api/v1/recurring/:id
func UpdateRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		rec, err := ownedRecurring(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		before := recurringAuditData(*rec)

		var body RecurringRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := applyRecurring(userID, rec, body); err != nil {
			return err
		}

		if err := database.DB.Omit(clause.Associations).Save(rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update recurring expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "recurring_expense",
			EntityID:    rec.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("recurring expense updated: %s", rec.Name),
			Before:      before,
			After:       recurringAuditData(*rec),
		})

		saved, err := ownedRecurring(database.DB, userID, rec.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toRecurringResponse(*saved))
	}
}

// DELETE /api/v1/recurring/:id
// Paid markers of the contract go with it.
func DeleteRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		rec, err := ownedRecurring(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("recurring_expense_id = ?", rec.ID).Delete(&models.PaidRecurringExpense{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.RecurringExpense{}, rec.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete recurring expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "recurring_expense",
			EntityID:    rec.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("recurring expense deleted: %s", rec.Name),
			Before:      recurringAuditData(*rec),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Paid recurring markers
// -------------------------

func ownedPaidRecurring(db *gorm.DB, ownerID, id uint) (*models.PaidRecurringExpense, error) {
	var p models.PaidRecurringExpense
	err := db.
		Joins("JOIN recurring_expenses ON recurring_expenses.id = paid_recurring_expenses.recurring_expense_id").
		Where("paid_recurring_expenses.id = ? AND recurring_expenses.user_id = ?", id, ownerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "paid recurring expense not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load paid recurring expense: %w", err)
	}
	return &p, nil
}

// GET /api/v1/paid-recurring?year=2024&month=2
func ListPaidRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := database.DB.
			Joins("JOIN recurring_expenses ON recurring_expenses.id = paid_recurring_expenses.recurring_expense_id").
			Where("recurring_expenses.user_id = ?", userID)

		if y := c.QueryInt("year"); y > 0 {
			dbq = dbq.Where("paid_recurring_expenses.year = ?", y)
		}
		if m := c.QueryInt("month"); m > 0 {
			dbq = dbq.Where("paid_recurring_expenses.month = ?", m)
		}

		var list []models.PaidRecurringExpense
		if err := dbq.Order("paid_recurring_expenses.year desc, paid_recurring_expenses.month desc, paid_recurring_expenses.id asc").
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list paid recurring expenses")
		}

		res := make([]PaidRecurringResponse, 0, len(list))
		for _, p := range list {
			res = append(res, toPaidRecurringResponse(p))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/paid-recurring
// Marks a recurring expense as paid for month/year. Paying a contract of
// another user is a validation error, as is paying the same month twice.
func CreatePaidRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreatePaidRecurringRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.RecurringExpenseID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "recurring_expense_id is required")
		}
		if body.Month < 1 || body.Month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month must be between 1 and 12")
		}
		if body.Year < minYear || body.Year > maxYear {
			return fiber.NewError(fiber.StatusBadRequest, "year out of range")
		}
		paymentDate, err := parseDateField("payment_date", body.PaymentDate)
		if err != nil {
			return err
		}

		rec, err := ownedRecurring(database.DB, userID, body.RecurringExpenseID)
		if errors.Is(err, apperr.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "you are not allowed to pay this expense")
		}
		if err != nil {
			return apperr.ToFiber(err)
		}

		var count int64
		if err := database.DB.Model(&models.PaidRecurringExpense{}).
			Where("recurring_expense_id = ? AND month = ? AND year = ?", rec.ID, body.Month, body.Year).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save payment")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "this expense is already paid for that month")
		}

		paid := models.PaidRecurringExpense{
			RecurringExpenseID: rec.ID,
			PaymentDate:        paymentDate,
			Month:              body.Month,
			Year:               body.Year,
		}
		if err := database.DB.Omit(clause.Associations).Create(&paid).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save payment")
		}

		resp := toPaidRecurringResponse(paid)
		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "paid_recurring_expense",
			EntityID:    paid.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("recurring expense %s paid for %02d/%d", rec.Name, paid.Month, paid.Year),
			After:       resp,
		})

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/v1/paid-recurring/:id
func GetPaidRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		p, err := ownedPaidRecurring(database.DB, userID, id)
		if err != nil {
			return err
		}
		return c.JSON(toPaidRecurringResponse(*p))
	}
}

// DELETE /api/v1/paid-recurring/:id
func DeletePaidRecurringHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		p, err := ownedPaidRecurring(database.DB, userID, id)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.PaidRecurringExpense{}, p.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete payment")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "paid_recurring_expense",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("payment of recurring expense %d for %02d/%d removed", p.RecurringExpenseID, p.Month, p.Year),
			Before:      toPaidRecurringResponse(*p),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
