package expense

import (
	"fmt"
	"strings"
	"time"

	"finance-backend/internal/apperr"
	"finance-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// installmentBatchSize keeps each insert under the driver's bound
// parameter limit.
const installmentBatchSize = 500

// InstallmentInput describes a purchase to split into monthly installments.
type InstallmentInput struct {
	OwnerID      uint
	Name         string
	TotalAmount  decimal.Decimal
	Count        int
	FirstDueDate time.Time
	CategoryID   *uint
}

// installmentAmount is total/count rounded to cents with banker's rounding.
// The remainder is not redistributed, so the installments may sum to a
// few cents less or more than total. count must be positive.
func installmentAmount(total decimal.Decimal, count int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(count))).RoundBank(2)
}

// CreateInstallment stores the contract and its Count expenses in a single
// transaction. TotalAmount is rounded to cents before splitting. Expense i is due FirstDueDate + i months and is named
// "<name> (i+1/count)".
func CreateInstallment(db *gorm.DB, in InstallmentInput) (*models.InstallmentExpense, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Count <= 0 {
		return nil, apperr.Validation("installments_quantity must be a positive integer")
	}
	total := in.TotalAmount.Round(2)
	if !total.IsPositive() {
		return nil, apperr.Validation("total_amount must be greater than zero")
	}
	if in.FirstDueDate.IsZero() {
		return nil, apperr.Validation("first_due_date is required")
	}

	var category *models.Category
	if in.CategoryID != nil {
		cat, err := ownedCategory(db, in.OwnerID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		category = cat
	}

	firstDue := models.DateOnly(in.FirstDueDate)
	amount := installmentAmount(total, in.Count)

	contract := models.InstallmentExpense{
		UserID:               in.OwnerID,
		Name:                 name,
		TotalAmount:          total,
		InstallmentsQuantity: in.Count,
		FirstDueDate:         firstDue,
		CategoryID:           in.CategoryID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&contract).Error; err != nil {
			return fmt.Errorf("create installment contract: %w", err)
		}

		installments := make([]models.Expense, 0, in.Count)
		for i := 0; i < in.Count; i++ {
			installments = append(installments, models.Expense{
				UserID:              in.OwnerID,
				Name:                fmt.Sprintf("%s (%d/%d)", name, i+1, in.Count),
				Amount:              amount,
				DueDate:             addMonths(firstDue, i),
				CategoryID:          in.CategoryID,
				InstallmentOriginID: &contract.ID,
			})
		}
		if err := tx.CreateInBatches(&installments, installmentBatchSize).Error; err != nil {
			return fmt.Errorf("create installments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	contract.Category = category
	return &contract, nil
}

// DeleteInstallment removes a contract together with the expenses it generated.
func DeleteInstallment(db *gorm.DB, ownerID, id uint) (*models.InstallmentExpense, error) {
	var contract models.InstallmentExpense
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Limit(1).Find(&contract)
		if res.Error != nil {
			return fmt.Errorf("load installment contract: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("installment expense %d not found", id)
		}
		if err := tx.Where("installment_origin_id = ?", contract.ID).Delete(&models.Expense{}).Error; err != nil {
			return fmt.Errorf("delete installments: %w", err)
		}
		if err := tx.Delete(&contract).Error; err != nil {
			return fmt.Errorf("delete installment contract: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
