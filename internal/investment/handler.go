package investment

import (
	"errors"
	"fmt"
	"strings"

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
	ID          uint           `json:"id"`
	Month       int            `json:"month"`
	Year        int            `json:"year"`
	Itens       []ItemResponse `json:"itens"`
	TotalBought string         `json:"total_bought"`
	TotalSold   string         `json:"total_sold"`
}

type ItemRequest struct {
	Card          *uint            `json:"card"`
	AssetID       *uint            `json:"asset_id"`
	OrderType     *string          `json:"order_type"`
	Quantity      *decimal.Decimal `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	OperationDate *string          `json:"operation_date"`
}

type ItemResponse struct {
	ID            uint                `json:"id"`
	Card          uint                `json:"card"`
	Asset         asset.AssetResponse `json:"asset"`
	OrderType     models.OrderType    `json:"order_type"`
	Quantity      string              `json:"quantity"`
	UnitPrice     string              `json:"unit_price"`
	Total         string              `json:"total"`
	OperationDate string              `json:"operation_date"`
}

func toItemResponse(it models.InvestmentItem) ItemResponse {
	return ItemResponse{
		ID:            it.ID,
		Card:          it.CardID,
		Asset:         asset.ToResponse(it.Asset),
		OrderType:     it.OrderType,
		Quantity:      it.Quantity.StringFixed(2),
		UnitPrice:     it.UnitPrice.StringFixed(2),
		Total:         it.Total().StringFixed(2),
		OperationDate: models.FormatDate(it.OperationDate),
	}
}

// Totals sums quantity times unit price per order type.
func Totals(items []models.InvestmentItem) (bought, sold decimal.Decimal) {
	for _, it := range items {
		switch it.OrderType {
		case models.OrderTypeBuy:
			bought = bought.Add(it.Total())
		case models.OrderTypeSell:
			sold = sold.Add(it.Total())
		}
	}
	return bought, sold
}

func toCardResponse(card models.InvestmentCard) CardResponse {
	items := make([]ItemResponse, 0, len(card.Items))
	for _, it := range card.Items {
		items = append(items, toItemResponse(it))
	}
	bought, sold := Totals(card.Items)
	return CardResponse{
		ID:          card.ID,
		Month:       card.Month,
		Year:        card.Year,
		Itens:       items,
		TotalBought: bought.StringFixed(2),
		TotalSold:   sold.StringFixed(2),
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
		return db.Order("investment_items.operation_date desc, investment_items.id desc")
	}).Preload("Items.Asset")
}

func ownedCard(db *gorm.DB, ownerID, id uint) (*models.InvestmentCard, error) {
	var card models.InvestmentCard
	err := withItems(db).Where("id = ? AND user_id = ?", id, ownerID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "investment card not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load investment card: %w", err)
	}
	return &card, nil
}

func ownedItem(db *gorm.DB, ownerID, id uint) (*models.InvestmentItem, error) {
	var it models.InvestmentItem
	err := db.Preload("Asset").
		Joins("JOIN investment_cards ON investment_cards.id = investment_items.card_id").
		Where("investment_items.id = ? AND investment_cards.user_id = ?", id, ownerID).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "investment item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load investment item: %w", err)
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
	err := database.DB.Model(&models.InvestmentCard{}).
		Where("user_id = ? AND month = ? AND year = ? AND id <> ?", ownerID, body.Month, body.Year, exceptID).
		Count(&count).Error
	return count > 0, err
}

// -------------------------
// Investment cards
// -------------------------

// GET /api/v1/cards-investiments?year=2024&month=3
func ListCardsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := withItems(database.DB).Where("user_id = ?", userID)
		if y := c.QueryInt("year"); y > 0 {
			dbq = dbq.Where("year = ?", y)
		}
		if m := c.QueryInt("month"); m > 0 {
			dbq = dbq.Where("month = ?", m)
		}

		var cards []models.InvestmentCard
		if err := dbq.Order("year desc, month desc").Find(&cards).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list investment cards")
		}

		res := make([]CardResponse, 0, len(cards))
		for _, card := range cards {
			res = append(res, toCardResponse(card))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/cards-investiments
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
			return fiber.NewError(fiber.StatusInternalServerError, "could not create investment card")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "an investment card for this month already exists")
		}

		card := models.InvestmentCard{UserID: userID, Month: body.Month, Year: body.Year}
		if err := database.DB.Create(&card).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create investment card")
		}
		return c.Status(fiber.StatusCreated).JSON(toCardResponse(card))
	}
}

// GET /api/v1/cards-investiments/:id
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

// PUT /api/v1/cards-investiments/:id
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
			return fiber.NewError(fiber.StatusInternalServerError, "could not update investment card")
		}
		if taken {
			return fiber.NewError(fiber.StatusBadRequest, "an investment card for this month already exists")
		}

		card.Month = body.Month
		card.Year = body.Year
		if err := database.DB.Omit(clause.Associations).Save(card).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update investment card")
		}
		return c.JSON(toCardResponse(*card))
	}
}

// DELETE /api/v1/cards-investiments/:id
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
			if err := tx.Where("card_id = ?", card.ID).Delete(&models.InvestmentItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.InvestmentCard{}, card.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete investment card")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Investment items
// -------------------------

func applyItem(ownerID uint, it *models.InvestmentItem, body ItemRequest) error {
	if body.Card != nil {
		var count int64
		if err := database.DB.Model(&models.InvestmentCard{}).
			Where("id = ? AND user_id = ?", *body.Card, ownerID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check investment card: %w", err)
		}
		if count == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid investment card or it does not belong to you")
		}
		it.CardID = *body.Card
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
	if body.OrderType != nil {
		it.OrderType = models.OrderType(strings.ToUpper(strings.TrimSpace(*body.OrderType)))
	}
	if body.Quantity != nil {
		it.Quantity = body.Quantity.Round(2)
	}
	if body.UnitPrice != nil {
		it.UnitPrice = body.UnitPrice.Round(2)
	}
	if body.OperationDate != nil {
		d, err := models.ParseDate(*body.OperationDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "operation_date must be formatted as YYYY-MM-DD")
		}
		it.OperationDate = d
	}
	if it.OrderType == "" {
		it.OrderType = models.OrderTypeBuy
	}

	switch {
	case it.CardID == 0:
		return fiber.NewError(fiber.StatusBadRequest, "card is required")
	case it.AssetID == 0:
		return fiber.NewError(fiber.StatusBadRequest, "asset_id is required")
	case !it.OrderType.IsValid():
		return fiber.NewError(fiber.StatusBadRequest, "order_type must be BUY or SELL")
	case !it.Quantity.IsPositive():
		return fiber.NewError(fiber.StatusBadRequest, "quantity must be greater than zero")
	case !it.UnitPrice.IsPositive():
		return fiber.NewError(fiber.StatusBadRequest, "unit_price must be greater than zero")
	case it.OperationDate.IsZero():
		return fiber.NewError(fiber.StatusBadRequest, "operation_date is required")
	}
	return nil
}

// GET /api/v1/itens-investiments?card=1
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Asset").
			Joins("JOIN investment_cards ON investment_cards.id = investment_items.card_id").
			Where("investment_cards.user_id = ?", userID)
		if cardID := c.QueryInt("card"); cardID > 0 {
			dbq = dbq.Where("investment_items.card_id = ?", cardID)
		}

		var items []models.InvestmentItem
		if err := dbq.Order("investment_items.operation_date desc, investment_items.id desc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list investment items")
		}

		res := make([]ItemResponse, 0, len(items))
		for _, it := range items {
			res = append(res, toItemResponse(it))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/itens-investiments
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

		var it models.InvestmentItem
		if err := applyItem(userID, &it, body); err != nil {
			return err
		}
		if err := database.DB.Omit(clause.Associations).Create(&it).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save investment item")
		}
		return c.Status(fiber.StatusCreated).JSON(toItemResponse(it))
	}
}

// GET /api/v1/itens-investiments/:id
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

// PUT /api/v1/itens-investiments/:id
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
			return fiber.NewError(fiber.StatusInternalServerError, "could not update investment item")
		}
		return c.JSON(toItemResponse(*it))
	}
}

// DELETE /api/v1/itens-investiments/:id
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
		if err := database.DB.Delete(&models.InvestmentItem{}, it.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete investment item")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
