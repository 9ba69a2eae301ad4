package asset

import (
	"errors"
	"fmt"
	"strings"

	"finance-backend/internal/auth"
	"finance-backend/internal/database"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AssetRequest struct {
	Code string           `json:"code"`
	Type models.AssetType `json:"type"`
}

type AssetResponse struct {
	ID   uint             `json:"id"`
	Code string           `json:"code"`
	Type models.AssetType `json:"type"`
}

func ToResponse(a models.Asset) AssetResponse {
	return AssetResponse{ID: a.ID, Code: a.Code, Type: a.Type}
}

// Owned loads an asset of ownerID. Assets of other users are not found.
func Owned(db *gorm.DB, ownerID, id uint) (*models.Asset, error) {
	var a models.Asset
	err := db.Where("id = ? AND user_id = ?", id, ownerID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "asset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	return &a, nil
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func validate(body *AssetRequest) error {
	body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
	if body.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}
	if len(body.Code) > 10 {
		return fiber.NewError(fiber.StatusBadRequest, "code must have at most 10 characters")
	}
	if body.Type == "" {
		body.Type = models.AssetTypeStock
	}
	if !body.Type.IsValid() {
		return fiber.NewError(fiber.StatusBadRequest, "type must be one of ACAO, FII, BDR, ETF")
	}
	return nil
}

func codeTaken(ownerID uint, code string, exceptID uint) (bool, error) {
	var count int64
	err := database.DB.Model(&models.Asset{}).
		Where("user_id = ? AND code = ? AND id <> ?", ownerID, code, exceptID).
		Count(&count).Error
	return count > 0, err
}

// GET /api/v1/assets
func ListAssetsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var assets []models.Asset
		if err := database.DB.Where("user_id = ?", userID).Order("code asc").Find(&assets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list assets")
		}

		res := make([]AssetResponse, 0, len(assets))
		for _, a := range assets {
			res = append(res, ToResponse(a))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/assets
func CreateAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body AssetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate(&body); err != nil {
			return err
		}

		taken, err := codeTaken(userID, body.Code, 0)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create asset")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "asset with this code already exists")
		}

		a := models.Asset{UserID: userID, Code: body.Code, Type: body.Type}
		if err := database.DB.Create(&a).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create asset")
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(a))
	}
}

// GET /api/v1/assets/:id
func GetAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		a, err := Owned(database.DB, userID, id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(*a))
	}
}

// PUT /api/v1/assets/:id
func UpdateAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		a, err := Owned(database.DB, userID, id)
		if err != nil {
			return err
		}

		var body AssetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate(&body); err != nil {
			return err
		}

		taken, err := codeTaken(userID, body.Code, a.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update asset")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "asset with this code already exists")
		}

		a.Code = body.Code
		a.Type = body.Type
		if err := database.DB.Save(a).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update asset")
		}
		return c.JSON(ToResponse(*a))
	}
}

// DELETE /api/v1/assets/:id
// Dividend and investment items of the asset are removed with it.
func DeleteAssetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		a, err := Owned(database.DB, userID, id)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("asset_id = ?", a.ID).Delete(&models.DividendItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("asset_id = ?", a.ID).Delete(&models.InvestmentItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(a).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete asset")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
