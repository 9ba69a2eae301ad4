package expense

import (
	"errors"
	"fmt"

	"finance-backend/internal/apperr"
	"finance-backend/internal/models"

	"gorm.io/gorm"
)

// ownedCategory loads a category that belongs to ownerID. Categories of
// other users are reported as not found.
func ownedCategory(db *gorm.DB, ownerID, id uint) (*models.Category, error) {
	var cat models.Category
	err := db.Where("id = ? AND user_id = ?", id, ownerID).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("category %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	return &cat, nil
}

func ownedRecurring(db *gorm.DB, ownerID, id uint) (*models.RecurringExpense, error) {
	var rec models.RecurringExpense
	err := db.Preload("Category").Where("id = ? AND user_id = ?", id, ownerID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("recurring expense %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load recurring expense: %w", err)
	}
	return &rec, nil
}
