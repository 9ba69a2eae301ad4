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

type CreateInstallmentRequest struct {
	Name                 string          `json:"name"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	InstallmentsQuantity int             `json:"installments_quantity"`
	FirstDueDate         string          `json:"first_due_date"`
	CategoryID           *uint           `json:"category_id,omitempty"`
}

// UpdateInstallmentRequest edits the contract only; the generated expenses
// are left as they are.
type UpdateInstallmentRequest struct {
	Name                 *string          `json:"name"`
	TotalAmount          *decimal.Decimal `json:"total_amount"`
	InstallmentsQuantity *int             `json:"installments_quantity"`
	FirstDueDate         *string          `json:"first_due_date"`
	CategoryID           *uint            `json:"category_id"`
}

type InstallmentResponse struct {
	ID                   uint              `json:"id"`
	Name                 string            `json:"name"`
	TotalAmount          string            `json:"total_amount"`
	InstallmentsQuantity int               `json:"installments_quantity"`
	FirstDueDate         string            `json:"first_due_date"`
	Category             *CategoryResponse `json:"category"`
}

func toInstallmentResponse(ie models.InstallmentExpense) InstallmentResponse {
	return InstallmentResponse{
		ID:                   ie.ID,
		Name:                 ie.Name,
		TotalAmount:          ie.TotalAmount.StringFixed(2),
		InstallmentsQuantity: ie.InstallmentsQuantity,
		FirstDueDate:         models.FormatDate(ie.FirstDueDate),
		Category:             toCategoryResponse(ie.Category),
	}
}

func installmentAuditData(ie models.InstallmentExpense) map[string]any {
	return map[string]any{
		"id":                    ie.ID,
		"name":                  ie.Name,
		"total_amount":          ie.TotalAmount.StringFixed(2),
		"installments_quantity": ie.InstallmentsQuantity,
		"first_due_date":        models.FormatDate(ie.FirstDueDate),
		"category_id":           ie.CategoryID,
	}
}

func loadInstallment(db *gorm.DB, ownerID, id uint) (*models.InstallmentExpense, error) {
	var ie models.InstallmentExpense
	err := db.Preload("Category").Where("id = ? AND user_id = ?", id, ownerID).First(&ie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "installment expense not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load installment expense: %w", err)
	}
	return &ie, nil
}

// GET /api/v1/installments
func ListInstallmentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var list []models.InstallmentExpense
		if err := database.DB.Preload("Category").
			Where("user_id = ?", userID).
			Order("first_due_date desc, id desc").
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list installment expenses")
		}

		res := make([]InstallmentResponse, 0, len(list))
		for _, ie := range list {
			res = append(res, toInstallmentResponse(ie))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/installments
// Creates the contract and all of its monthly expenses at once.
func CreateInstallmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateInstallmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		firstDue, err := parseDateField("first_due_date", body.FirstDueDate)
		if err != nil {
			return err
		}

		var categoryID *uint
		if body.CategoryID != nil && *body.CategoryID != 0 {
			categoryID = body.CategoryID
		}

		contract, err := CreateInstallment(database.DB, InstallmentInput{
			OwnerID:      userID,
			Name:         body.Name,
			TotalAmount:  body.TotalAmount,
			Count:        body.InstallmentsQuantity,
			FirstDueDate: firstDue,
			CategoryID:   categoryID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:     userID,
			EntityType: "installment_expense",
			EntityID:   contract.ID,
			Action:     models.AuditActionCreate,
			Description: fmt.Sprintf("installment expense created: %s %s in %d installments",
				contract.Name, contract.TotalAmount.StringFixed(2), contract.InstallmentsQuantity),
			After: installmentAuditData(*contract),
		})

		return c.Status(fiber.StatusCreated).JSON(toInstallmentResponse(*contract))
	}
}

// GET /api/v1/installments/:id
func GetInstallmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		ie, err := loadInstallment(database.DB, userID, id)
		if err != nil {
			return err
		}
		return c.JSON(toInstallmentResponse(*ie))
	}
}

// PUT /api/v1/installments/:id
func UpdateInstallmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		ie, err := loadInstallment(database.DB, userID, id)
		if err != nil {
			return err
		}
		before := installmentAuditData(*ie)

		var body UpdateInstallmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			ie.Name = name
		}
		if body.TotalAmount != nil {
			if !body.TotalAmount.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest, "total_amount must be greater than zero")
			}
			ie.TotalAmount = body.TotalAmount.Round(2)
		}
		if body.InstallmentsQuantity != nil {
			if *body.InstallmentsQuantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "installments_quantity must be a positive integer")
			}
			ie.InstallmentsQuantity = *body.InstallmentsQuantity
		}
		if body.FirstDueDate != nil {
			d, err := parseDateField("first_due_date", *body.FirstDueDate)
			if err != nil {
				return err
			}
			ie.FirstDueDate = d
		}
		if body.CategoryID != nil {
			catID, err := categoryRef(userID, body.CategoryID)
			if err != nil {
				return err
			}
			ie.CategoryID = catID
		}

		if err := database.DB.Omit(clause.Associations).Save(ie).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update installment expense")
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "installment_expense",
			EntityID:    ie.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("installment expense updated: %s", ie.Name),
			Before:      before,
			After:       installmentAuditData(*ie),
		})

		saved, err := loadInstallment(database.DB, userID, ie.ID)
		if err != nil {
			return err
		}
		return c.JSON(toInstallmentResponse(*saved))
	}
}

// DELETE /api/v1/installments/:id
// Removes the generated expenses too.
func DeleteInstallmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		contract, err := DeleteInstallment(database.DB, userID, id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(database.DB, audit.LogOptions{
			UserID:      userID,
			EntityType:  "installment_expense",
			EntityID:    contract.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("installment expense deleted: %s", contract.Name),
			Before:      installmentAuditData(*contract),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
