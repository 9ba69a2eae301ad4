package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type CreateExpenseRequest struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"due_date"`               // "2024-01-15"
	PaymentDate *string         `json:"payment_date,omitempty"` // null = not paid yet
	CategoryID  *uint           `json:"category_id,omitempty"`
	Paid        bool            `json:"paid"`
}

type UpdateExpenseRequest struct {
	Name        *string          `json:"name"`
	Amount      *decimal.Decimal `json:"amount"`
	DueDate     *string          `json:"due_date"`
	PaymentDate NullableDate     `json:"payment_date"` // null or "" clears it
	CategoryID  *uint            `json:"category_id"`  // 0 clears the category
	Paid        *bool            `json:"paid"`
}

type ExpenseResponse struct {
	ID                uint                 `json:"id"`
	Name              string               `json:"name"`
	Amount            string               `json:"amount"`
	DueDate           string               `json:"due_date"`
	PaymentDate       *string              `json:"payment_date"`
	Category          *CategoryResponse    `json:"category"`
	InstallmentOrigin *InstallmentResponse `json:"installment_origin"`
	Paid              bool                 `json:"paid"`
	CreatedAt         string               `json:"created_at"`
}

// -------------------------
// Helpers
// -------------------------

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func parseDateField(field, value string) (time.Time, error) {
	d, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", field))
	}
	return d, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	d, err := parseDateField(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// NullableDate is an optional date field of an update body. Set reports
// whether the key was present at all; a present null leaves Value nil.
type NullableDate struct {
	Set   bool
	Value *string
}

func (n *NullableDate) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	n.Value = &s
	return nil
}

func toCategoryResponse(cat *models.Category) *CategoryResponse {
	if cat == nil {
		return nil
	}
	return &CategoryResponse{ID: cat.ID, Name: cat.Name}
}

func toExpenseResponse(e models.Expense) ExpenseResponse {
	var origin *InstallmentResponse
	if e.InstallmentOrigin != nil {
		r := toInstallmentResponse(*e.InstallmentOrigin)
		origin = &r
	}
	return ExpenseResponse{
		ID:                e.ID,
		Name:              e.Name,
		Amount:            e.Amount.StringFixed(2),
		DueDate:           models.FormatDate(e.DueDate),
		PaymentDate:       models.FormatDatePtr(e.PaymentDate),
		Category:          toCategoryResponse(e.Category),
		InstallmentOrigin: origin,
		Paid:              e.Paid,
		CreatedAt:         e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func expenseAuditData(e models.Expense) map[string]any {
	return map[string]any{
		"id":                    e.ID,
		"name":                  e.Name,
		"amount":                e.Amount.StringFixed(2),
		"due_date":              models.FormatDate(e.DueDate),
		"payment_date":          models.FormatDatePtr(e.PaymentDate),
		"paid":                  e.Paid,
		"category_id":           e.CategoryID,
		"installment_origin_id": e.InstallmentOriginID,
	}
}

// categoryRef resolves an optional category id from a request body. A nil
// id means no category.
func categoryRef(ownerID uint, id *uint) (*uint, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	if _, err := ownedCategory(database.DB, ownerID, *id); err != nil {
		return nil, apperr.ToFiber(err)
	}
	return id, nil
}

func loadExpense(db *gorm.DB, ownerID, id uint) (*models.Expense, error) {
	var exp models.Expense
	err := db.
		Preload("Category").
		Preload("InstallmentOrigin").
		Preload("InstallmentOrigin.Category").
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&exp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "expense not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	return &exp, nil
}

// monthFilter matches rows whose column falls in the given calendar month of
// any year.
func monthFilter(db *gorm.DB, column string, month int) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db.Where(fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER) = ?", column), month)
	}
	return db.Where(fmt.Sprintf("EXTRACT(MONTH FROM %s) = ?", column), month)
}

// -------------------------
// Category CRUD
// -------------------------

// GET /api/v1/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var cats []models.Category
		if err := database.DB.Where("user_id = ?", userID).Order("name asc").Find(&cats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list categories")
		}

		res := make([]CategoryResponse, 0, len(cats))
		for i := range cats {
			res = append(res, *toCategoryResponse(&cats[i]))
		}
		return c.JSON(res)
	}
}

func categoryNameTaken(ownerID uint, name string, exceptID uint) (bool, error) {
	var count int64
	err := database.DB.Model(&models.Category{}).
		Where("user_id = ? AND name = ? AND id <> ?", ownerID, name, exceptID).
		Count(&count).Error
	return count > 0, err
}

// POST /api/v1/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		taken, err := categoryNameTaken(userID, body.Name, 0)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create category")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "a category with this name already exists")
		}

		cat := models.Category{UserID: userID, Name: body.Name}
		if err := database.DB.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create category")
		}

		return c.Status(fiber.StatusCreated).JSON(toCategoryResponse(&cat))
	}
}

// GET /api/v1/categories/:id
func GetCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		cat, err := ownedCategory(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(toCategoryResponse(cat))
	}
}

// PUT /api/v1/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		cat, err := ownedCategory(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		taken, err := categoryNameTaken(userID, name, cat.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update category")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "a category with this name already exists")
		}

		cat.Name = name
		if err := database.DB.Save(cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update category")
		}
		return c.JSON(toCategoryResponse(cat))
	}
}

// DELETE /api/v1/categories/:id
// Expenses, installments and recurring expenses keep existing without a category.
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		cat, err := ownedCategory(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			for _, m := range []any{&models.Expense{}, &models.InstallmentExpense{}, &models.RecurringExpense{}} {
				if err := tx.Model(m).Where("category_id = ?", cat.ID).Update("category_id", nil).Error; err != nil {
					return err
				}
			}
			return tx.Delete(cat).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete category")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Expense CRUD
// -------------------------

// GET /api/v1/expenses?due_date__year=2024&due_date__month=2&paid=false&category=1&search=rent
func ListExpensesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := database.DB.
			Preload("Category").
			Preload("InstallmentOrigin").
			Preload("InstallmentOrigin.Category").
			Where("user_id = ?", userID)

		if yearStr := c.Query("due_date__year"); yearStr != "" {
			year, err := strconv.Atoi(yearStr)
			if err != nil || year < minYear || year > maxYear {
				return fiber.NewError(fiber.StatusBadRequest, "invalid due_date__year")
			}
			if monthStr := c.Query("due_date__month"); monthStr != "" {
				month, err := strconv.Atoi(monthStr)
				if err != nil || month < 1 || month > 12 {
					return fiber.NewError(fiber.StatusBadRequest, "invalid due_date__month")
				}
				first, last := monthBounds(year, month)
				dbq = dbq.Where("due_date >= ? AND due_date <= ?", first, last)
			} else {
				first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
				last := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
				dbq = dbq.Where("due_date >= ? AND due_date <= ?", first, last)
			}
		} else if monthStr := c.Query("due_date__month"); monthStr != "" {
			month, err := strconv.Atoi(monthStr)
			if err != nil || month < 1 || month > 12 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid due_date__month")
			}
			dbq = monthFilter(dbq, "due_date", month)
		}

		if paidStr := c.Query("paid"); paidStr != "" {
			paid, err := strconv.ParseBool(paidStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid paid")
			}
			dbq = dbq.Where("paid = ?", paid)
		}

		if catStr := c.Query("category"); catStr != "" {
			catID, err := strconv.ParseUint(catStr, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid category")
			}
			dbq = dbq.Where("category_id = ?", catID)
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}

		var expenses []models.Expense
		if err := dbq.Order("due_date asc, id asc").Find(&expenses).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list expenses")
		}

		res := make([]ExpenseResponse, 0, len(expenses))
		for _, e := range expenses {
			res = append(res, toExpenseResponse(e))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/expenses
func CreateExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
		}

		dueDate, err := parseDateField("due_date", body.DueDate)
		if err != nil {
			return err
		}
		paymentDate, err := parseOptionalDate("payment_date", body.PaymentDate)
		if err != nil {
			return err
		}
		categoryID, err := categoryRef(userID, body.CategoryID)
		if err != nil {
			return err
		}

		exp := models.Expense{
			UserID:      userID,
			Name:        body.Name,
			Amount:      body.Amount.Round(2),
			DueDate:     dueDate,
			PaymentDate: paymentDate,
			Paid:        body.Paid,
			CategoryID:  categoryID,
		}
		if err := database.DB.Create(&exp).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("expense created: %s %s", exp.Name, exp.Amount.StringFixed(2)),
			After:       expenseAuditData(exp),
		})

		saved, err := loadExpense(database.DB, userID, exp.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toExpenseResponse(*saved))
	}
}

// GET /api/v1/expenses/:id
func GetExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		exp, err := loadExpense(database.DB, userID, id)
		if err != nil {
			return err
		}
		return c.JSON(toExpenseResponse(*exp))
	}
}

// PUT /api/v1/expenses/:id
func UpdateExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		exp, err := loadExpense(database.DB, userID, id)
		if err != nil {
			return err
		}
		before := expenseAuditData(*exp)

		var body UpdateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			exp.Name = name
		}
		if body.Amount != nil {
			if !body.Amount.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
			}
			exp.Amount = body.Amount.Round(2)
		}
		if body.DueDate != nil {
			d, err := parseDateField("due_date", *body.DueDate)
			if err != nil {
				return err
			}
			exp.DueDate = d
		}
		if body.PaymentDate.Set {
			d, err := parseOptionalDate("payment_date", body.PaymentDate.Value)
			if err != nil {
				return err
			}
			exp.PaymentDate = d
		}
		if body.CategoryID != nil {
			catID, err := categoryRef(userID, body.CategoryID)
			if err != nil {
				return err
			}
			exp.CategoryID = catID
		}
		if body.Paid != nil {
			exp.Paid = *body.Paid
		}

		if err := database.DB.Omit(clause.Associations).Save(exp).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("expense updated: %s", exp.Name),
			Before:      before,
			After:       expenseAuditData(*exp),
		})

		saved, err := loadExpense(database.DB, userID, exp.ID)
		if err != nil {
			return err
		}
		return c.JSON(toExpenseResponse(*saved))
	}
}

// DELETE /api/v1/expenses/:id
func DeleteExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		exp, err := loadExpense(database.DB, userID, id)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Expense{}, exp.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("expense deleted: %s", exp.Name),
			Before:      expenseAuditData(*exp),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
