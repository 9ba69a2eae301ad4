package dividend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"finance-backend/internal/auth"
	"finance-backend/internal/database/dbtest"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.UseGlobal(t, db)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		id, _ := strconv.ParseUint(c.Get("X-Test-User"), 10, 64)
		c.Locals(auth.CtxUserIDKey, uint(id))
		return c.Next()
	})
	app.Get("/cards", ListCardsHandler())
	app.Post("/cards", CreateCardHandler())
	app.Get("/cards/:id", GetCardHandler())
	app.Put("/cards/:id", UpdateCardHandler())
	app.Delete("/cards/:id", DeleteCardHandler())
	app.Get("/items", ListItemsHandler())
	app.Post("/items", CreateItemHandler())
	app.Get("/items/:id", GetItemHandler())
	app.Put("/items/:id", UpdateItemHandler())
	app.Delete("/items/:id", DeleteItemHandler())
	return app, db
}

func call(t *testing.T, app *fiber.App, user uint, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(user), 10))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func mustAsset(t *testing.T, db *gorm.DB, owner uint, code string) models.Asset {
	t.Helper()
	a := models.Asset{UserID: owner, Code: code}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create asset: %v", err)
	}
	return a
}

func TestCardHandlers(t *testing.T) {
	app, _ := newTestApp(t)

	status, raw := call(t, app, 1, http.MethodPost, "/cards", CardRequest{Month: 3, Year: 2024})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %s", status, raw)
	}
	var card CardResponse
	json.Unmarshal(raw, &card)
	if card.Total != "0.00" || len(card.Itens) != 0 {
		t.Errorf("new card = %+v", card)
	}

	tests := []struct {
		name string
		user uint
		body CardRequest
		want int
	}{
		{"duplicate month", 1, CardRequest{Month: 3, Year: 2024}, http.StatusBadRequest},
		{"same month other user", 2, CardRequest{Month: 3, Year: 2024}, http.StatusCreated},
		{"month 13", 1, CardRequest{Month: 13, Year: 2024}, http.StatusBadRequest},
		{"month 0", 1, CardRequest{Month: 0, Year: 2024}, http.StatusBadRequest},
		{"year out of range", 1, CardRequest{Month: 1, Year: 10000}, http.StatusBadRequest},
		{"next month", 1, CardRequest{Month: 4, Year: 2024}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, raw := call(t, app, tt.user, http.MethodPost, "/cards", tt.body); status != tt.want {
				t.Errorf("status = %d %s, want %d", status, raw, tt.want)
			}
		})
	}

	status, raw = call(t, app, 1, http.MethodGet, "/cards?ano=2024&mes=4", nil)
	var list []CardResponse
	json.Unmarshal(raw, &list)
	if status != http.StatusOK || len(list) != 1 || list[0].Month != 4 {
		t.Errorf("filtered list = %s", raw)
	}

	path := fmt.Sprintf("/cards/%d", card.ID)
	if status, _ := call(t, app, 2, http.MethodGet, path, nil); status != http.StatusNotFound {
		t.Errorf("foreign card: status %d, want 404", status)
	}
	if status, _ := call(t, app, 1, http.MethodPut, path, CardRequest{Month: 4, Year: 2024}); status != http.StatusBadRequest {
		t.Errorf("move onto existing month: status %d, want 400", status)
	}
	if status, raw := call(t, app, 1, http.MethodPut, path, CardRequest{Month: 5, Year: 2024}); status != http.StatusOK {
		t.Errorf("update: %d %s", status, raw)
	}
}

func TestItemHandlers(t *testing.T) {
	app, db := newTestApp(t)

	own := mustAsset(t, db, 1, "TAEE11")
	foreign := mustAsset(t, db, 2, "BBAS3")
	card := models.DividendCard{UserID: 1, Month: 3, Year: 2024}
	db.Create(&card)
	otherCard := models.DividendCard{UserID: 2, Month: 3, Year: 2024}
	db.Create(&otherCard)

	item := func(cardID, assetID uint, value, date string) map[string]any {
		return map[string]any{"card_month": cardID, "asset_id": assetID, "value": value, "received_date": date}
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"foreign card", item(otherCard.ID, own.ID, "10.00", "2024-03-15"), http.StatusBadRequest},
		{"foreign asset", item(card.ID, foreign.ID, "10.00", "2024-03-15"), http.StatusBadRequest},
		{"zero value", item(card.ID, own.ID, "0", "2024-03-15"), http.StatusBadRequest},
		{"bad date", item(card.ID, own.ID, "10.00", "15/03/2024"), http.StatusBadRequest},
		{"missing card", map[string]any{"asset_id": own.ID, "value": "1.00", "received_date": "2024-03-15"}, http.StatusBadRequest},
		{"valid", item(card.ID, own.ID, "12.50", "2024-03-15"), http.StatusCreated},
		{"second", item(card.ID, own.ID, "7.25", "2024-03-20"), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, raw := call(t, app, 1, http.MethodPost, "/items", tt.body); status != tt.want {
				t.Errorf("status = %d %s, want %d", status, raw, tt.want)
			}
		})
	}

	status, raw := call(t, app, 1, http.MethodGet, fmt.Sprintf("/cards/%d", card.ID), nil)
	var got CardResponse
	json.Unmarshal(raw, &got)
	if status != http.StatusOK || len(got.Itens) != 2 || got.Total != "19.75" {
		t.Fatalf("card with items = %s", raw)
	}
	if got.Itens[0].Asset.Code != "TAEE11" {
		t.Errorf("item asset = %+v", got.Itens[0].Asset)
	}

	itemPath := fmt.Sprintf("/items/%d", got.Itens[0].ID)
	if status, _ := call(t, app, 2, http.MethodGet, itemPath, nil); status != http.StatusNotFound {
		t.Errorf("foreign item: status %d, want 404", status)
	}
	status, raw = call(t, app, 1, http.MethodPut, itemPath, map[string]any{"value": "30.00"})
	var updated ItemResponse
	json.Unmarshal(raw, &updated)
	if status != http.StatusOK || updated.Value != "30.00" {
		t.Errorf("update item: %d %s", status, raw)
	}

	status, raw = call(t, app, 1, http.MethodGet, fmt.Sprintf("/items?card_month=%d", card.ID), nil)
	var items []ItemResponse
	json.Unmarshal(raw, &items)
	if status != http.StatusOK || len(items) != 2 {
		t.Errorf("list items = %s", raw)
	}
	if status, raw := call(t, app, 2, http.MethodGet, "/items", nil); status != http.StatusOK || string(raw) != "[]" {
		t.Errorf("other user sees %s", raw)
	}

	if status, _ := call(t, app, 1, http.MethodDelete, fmt.Sprintf("/cards/%d", card.ID), nil); status != http.StatusNoContent {
		t.Fatalf("delete card: status %d", status)
	}
	var count int64
	db.Model(&models.DividendItem{}).Count(&count)
	if count != 0 {
		t.Errorf("%d items left after deleting their card", count)
	}
}
