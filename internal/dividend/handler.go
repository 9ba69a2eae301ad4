package dividend

import (
	"errors"
	"fmt"

	"finance-backend/internal/asset"
	"finance-backend/internal/auth"
	"finance-backend/internal/database"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CardRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type CardResponse struct {
	ID    uint           `json:"id"`
	Month int            `json:"month"`
	Year  int            `json:"year"`
	Itens []ItemResponse `json:"itens"`
	Total string         `json:"total"`
}

type ItemRequest struct {
	CardMonth    *uint            `json:"card_month"`
	AssetID      *uint            `json:"asset_id"`
	Value        *decimal.Decimal `json:"value"`
	ReceivedDate *string          `json:"received_date"`
}

type ItemResponse struct {
	ID           uint                `json:"id"`
	CardMonth    uint                `json:"card_month"`
	Asset        asset.AssetResponse `json:"asset"`
	Value        string              `json:"value"`
	ReceivedDate string              `json:"received_date"`
}

func toItemResponse(it models.DividendItem) ItemResponse {
	return ItemResponse{
		ID:           it.ID,
		CardMonth:    it.CardID,
		Asset:        asset.ToResponse(it.Asset),
		Value:        it.Value.StringFixed(2),
		ReceivedDate: models.FormatDate(it.ReceivedDate),
	}
}

func toCardResponse(card models.DividendCard) CardResponse {
	total := decimal.Zero
	items := make([]ItemResponse, 0, len(card.Items))
	for _, it := range card.Items {
		items = append(items, toItemResponse(it))
		total = total.Add(it.Value)
	}
	return CardResponse{
		ID:    card.ID,
		Month: card.Month,
		Year:  card.Year,
		Itens: items,
		Total: total.StringFixed(2),
	}
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("dividend_items.created_at desc, dividend_items.id desc")
	}).Preload("Items.Asset")
}

func ownedCard(db *gorm.DB, ownerID, id uint) (*models.DividendCard, error) {
	var card models.DividendCard
	err := withItems(db).Where("id = ? AND user_id = ?", id, ownerID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "dividend card not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load dividend card: %w", err)
	}
	return &card, nil
}

func ownedItem(db *gorm.DB, ownerID, id uint) (*models.DividendItem, error) {
	var it models.DividendItem
	err := db.Preload("Asset").
		Joins("JOIN dividend_cards ON dividend_cards.id = dividend_items.card_id").
		Where("dividend_items.id = ? AND dividend_cards.user_id = ?", id, ownerID).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "dividend item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load dividend item: %w", err)
	}
	return &it, nil
}

func validateCard(body CardRequest) error {
	if body.Month < 1 || body.Month > 12 {
		return fiber.NewError(fiber.StatusBadRequest, "month must be between 1 and 12")
	}
	if body.Year < 1900 || body.Year > 9999 {
		return fiber.NewError(fiber.StatusBadRequest, "year out of range")
	}
	return nil
}

func cardTaken(ownerID uint, body CardRequest, exceptID uint) (bool, error) {
	var count int64
	err := database.DB.Model(&models.DividendCard{}).
		Where("user_id = ? AND month = ? AND year = ? AND id <> ?", ownerID, body.Month, body.Year, exceptID).
		Count(&count).Error
	return count > 0, err
}

// -------------------------
// Dividend cards
// -------------------------

// GET /api/v1/cards-dividends?year=2024&month=3 (also ano/mes)
func ListCardsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := withItems(database.DB).Where("user_id = ?", userID)
		for _, key := range []string{"year", "ano"} {
			if v := c.QueryInt(key); v > 0 {
				dbq = dbq.Where("year = ?", v)
			}
		}
		for _, key := range []string{"month", "mes"} {
			if v := c.QueryInt(key); v > 0 {
				dbq = dbq.Where("month = ?", v)
			}
		}

		var cards []models.DividendCard
		if err := dbq.Order("year desc, month desc").Find(&cards).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list dividend cards")
		}

		res := make([]CardResponse, 0, len(cards))
		for _, card := range cards {
			res = append(res, toCardResponse(card))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/cards-dividends
func CreateCardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CardRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validateCard(body); err != nil {
			return err
		}

		taken, err := cardTaken(userID, body, 0)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create dividend card")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "a dividend card for this month already exists")
		}

		card := models.DividendCard{UserID: userID, Month: body.Month, Year: body.Year}
		if err := database.DB.Create(&card).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create dividend card")
		}
		return c.Status(fiber.StatusCreated).JSON(toCardResponse(card))
	}
}

// GET /api/v1/cards-dividends/:id
func GetCardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		card, err := ownedCard(database.DB, userID, id)
		if err != nil {
			return err
		}
		return c.JSON(toCardResponse(*card))
	}
}

// PUT /api/v1/cards-dividends/:id
func UpdateCardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		card, err := ownedCard(database.DB, userID, id)
		if err != nil {
			return err
		}

		var body CardRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validateCard(body); err != nil {
			return err
		}
		taken, err := cardTaken(userID, body, card.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update dividend card")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "a dividend card for this month already exists")
		}

		card.Month = body.Month
		card.Year = body.Year
		if err := database.DB.Omit(clause.Associations).Save(card).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update dividend card")
		}
		return c.JSON(toCardResponse(*card))
	}
}

// DELETE /api/v1/cards-dividends/:id
func DeleteCardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		card, err := ownedCard(database.DB, userID, id)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("card_id = ?", card.ID).Delete(&models.DividendItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.DividendCard{}, card.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete dividend card")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Dividend items
// -------------------------

// applyItem copies body onto it. The card and the asset must both belong
// to ownerID.
func applyItem(ownerID uint, it *models.DividendItem, body ItemRequest) error {
	if body.CardMonth != nil {
		var count int64
		if err := database.DB.Model(&models.DividendCard{}).
			Where("id = ? AND user_id = ?", *body.CardMonth, ownerID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check dividend card: %w", err)
		}
		if count == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid card_month or it does not belong to you")
		}
		it.CardID = *body.CardMonth
	}
	if body.AssetID != nil {
		a, err := asset.Owned(database.DB, ownerID, *body.AssetID)
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "invalid asset_id or it does not belong to you")
		}
		if err != nil {
			return err
		}
		it.AssetID = a.ID
		it.Asset = *a
	}
	if body.Value != nil {
		it.Value = body.Value.Round(2)
	}
	if body.ReceivedDate != nil {
		d, err := models.ParseDate(*body.ReceivedDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "received_date must be formatted as YYYY-MM-DD")
		}
		it.ReceivedDate = d
	}

	switch {
	case it.CardID == 0:
		return fiber.NewError(fiber.StatusBadRequest, "card_month is required")
	case it.AssetID == 0:
		return fiber.NewError(fiber.StatusBadRequest, "asset_id is required")
	case !it.Value.IsPositive():
		return fiber.NewError(fiber.StatusBadRequest, "value must be greater than zero")
	case it.ReceivedDate.IsZero():
		return fiber.NewError(fiber.StatusBadRequest, "received_date is required")
	}
	return nil
}

// GET /api/v1/itens-dividends?card_month=1
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Asset").
			Joins("JOIN dividend_cards ON dividend_cards.id = dividend_items.card_id").
			Where("dividend_cards.user_id = ?", userID)
		if cardID := c.QueryInt("card_month"); cardID > 0 {
			dbq = dbq.Where("dividend_items.card_id = ?", cardID)
		}

		var items []models.DividendItem
		if err := dbq.Order("dividend_items.created_at desc, dividend_items.id desc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list dividend items")
		}

		res := make([]ItemResponse, 0, len(items))
		for _, it := range items {
			res = append(res, toItemResponse(it))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/itens-dividends
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body ItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var it models.DividendItem
		if err := applyItem(userID, &it, body); err != nil {
			return err
		}
		if err := database.DB.Omit(clause.Associations).Create(&it).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save dividend item")
		}
		return c.Status(fiber.StatusCreated).JSON(toItemResponse(it))
	}
}

// GET /api/v1/itens-dividends/:id
func GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		it, err := ownedItem(database.DB, userID, id)
		if err != nil {
			return err
		}
		return c.JSON(toItemResponse(*it))
	}
}

// PUT /api/v1/itens-dividends/:id
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		it, err := ownedItem(database.DB, userID, id)
		if err != nil {
			return err
		}

		var body ItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := applyItem(userID, it, body); err != nil {
			return err
		}
		if err := database.DB.Omit(clause.Associations).Save(it).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update dividend item")
		}
		return c.JSON(toItemResponse(*it))
	}
}

// DELETE /api/v1/itens-dividends/:id
func DeleteItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		it, err := ownedItem(database.DB, userID, id)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&models.DividendItem{}, it.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete dividend item")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
