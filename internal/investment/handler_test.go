package investment

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
	"github.com/shopspring/decimal"
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
	app.Delete("/cards/:id", DeleteCardHandler())
	app.Get("/items", ListItemsHandler())
	app.Post("/items", CreateItemHandler())
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

func TestTotals(t *testing.T) {
	d := decimal.RequireFromString
	items := []models.InvestmentItem{
		{OrderType: models.OrderTypeBuy, Quantity: d("10"), UnitPrice: d("32.15")},
		{OrderType: models.OrderTypeBuy, Quantity: d("2.5"), UnitPrice: d("100.00")},
		{OrderType: models.OrderTypeSell, Quantity: d("4"), UnitPrice: d("35.00")},
	}

	bought, sold := Totals(items)
	if bought.StringFixed(2) != "571.50" {
		t.Errorf("bought = %s, want 571.50", bought.StringFixed(2))
	}
	if sold.StringFixed(2) != "140.00" {
		t.Errorf("sold = %s, want 140.00", sold.StringFixed(2))
	}

	bought, sold = Totals(nil)
	if !bought.IsZero() || !sold.IsZero() {
		t.Errorf("empty totals = %s / %s", bought, sold)
	}
}

func TestInvestmentFlow(t *testing.T) {
	app, db := newTestApp(t)

	own := models.Asset{UserID: 1, Code: "WEGE3"}
	db.Create(&own)
	foreign := models.Asset{UserID: 2, Code: "ABEV3"}
	db.Create(&foreign)

	status, raw := call(t, app, 1, http.MethodPost, "/cards", CardRequest{Month: 6, Year: 2024})
	if status != http.StatusCreated {
		t.Fatalf("create card: %d %s", status, raw)
	}
	var card CardResponse
	json.Unmarshal(raw, &card)
	if status, _ := call(t, app, 1, http.MethodPost, "/cards", CardRequest{Month: 6, Year: 2024}); status != http.StatusBadRequest {
		t.Errorf("duplicate card: status %d, want 400", status)
	}

	order := func(assetID uint, typ, qty, price string) map[string]any {
		return map[string]any{
			"card": card.ID, "asset_id": assetID, "order_type": typ,
			"quantity": qty, "unit_price": price, "operation_date": "2024-06-10",
		}
	}

	tests := []struct {
		name string
		user uint
		body map[string]any
		want int
	}{
		{"foreign card", 2, order(foreign.ID, "BUY", "1", "10.00"), http.StatusBadRequest},
		{"foreign asset", 1, order(foreign.ID, "BUY", "1", "10.00"), http.StatusBadRequest},
		{"unknown order type", 1, order(own.ID, "HOLD", "1", "10.00"), http.StatusBadRequest},
		{"zero quantity", 1, order(own.ID, "BUY", "0", "10.00"), http.StatusBadRequest},
		{"zero price", 1, order(own.ID, "BUY", "1", "0"), http.StatusBadRequest},
		{"buy", 1, order(own.ID, "buy", "10", "40.00"), http.StatusCreated},
		{"default is buy", 1, order(own.ID, "", "1", "38.50"), http.StatusCreated},
		{"sell", 1, order(own.ID, "SELL", "3", "45.00"), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, raw := call(t, app, tt.user, http.MethodPost, "/items", tt.body); status != tt.want {
				t.Errorf("status = %d %s, want %d", status, raw, tt.want)
			}
		})
	}

	status, raw = call(t, app, 1, http.MethodGet, fmt.Sprintf("/cards/%d", card.ID), nil)
	var got CardResponse
	json.Unmarshal(raw, &got)
	if status != http.StatusOK || len(got.Itens) != 3 {
		t.Fatalf("card = %s", raw)
	}
	if got.TotalBought != "438.50" || got.TotalSold != "135.00" {
		t.Errorf("totals = %s / %s, want 438.50 / 135.00", got.TotalBought, got.TotalSold)
	}

	status, raw = call(t, app, 1, http.MethodGet, fmt.Sprintf("/items?card=%d", card.ID), nil)
	var items []ItemResponse
	json.Unmarshal(raw, &items)
	if status != http.StatusOK || len(items) != 3 {
		t.Fatalf("list items = %s", raw)
	}
	status, raw = call(t, app, 1, http.MethodPut, fmt.Sprintf("/items/%d", items[0].ID), map[string]any{"order_type": "SELL"})
	var updated ItemResponse
	json.Unmarshal(raw, &updated)
	if status != http.StatusOK || updated.OrderType != models.OrderTypeSell || updated.Total == "" {
		t.Errorf("update item: %d %s", status, raw)
	}

	if status, _ := call(t, app, 2, http.MethodDelete, fmt.Sprintf("/cards/%d", card.ID), nil); status != http.StatusNotFound {
		t.Errorf("foreign delete: status %d, want 404", status)
	}
	if status, _ := call(t, app, 1, http.MethodDelete, fmt.Sprintf("/cards/%d", card.ID), nil); status != http.StatusNoContent {
		t.Fatalf("delete card: status %d", status)
	}
	var count int64
	db.Model(&models.InvestmentItem{}).Count(&count)
	if count != 0 {
		t.Errorf("%d items left after deleting their card", count)
	}
}
