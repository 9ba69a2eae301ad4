package audit

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-backend/internal/auth"
	"finance-backend/internal/database/dbtest"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestWriteLog(t *testing.T) {
	db := dbtest.Open(t)

	err := WriteLog(db, LogOptions{
		UserID:      3,
		EntityType:  "expense",
		EntityID:    9,
		Action:      models.AuditActionUpdate,
		Description: "expense updated: rent",
		Before:      map[string]any{"amount": "100.00"},
		After:       map[string]any{"amount": "120.00"},
	})
	if err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	if err := WriteLog(db, LogOptions{UserID: 3, EntityType: "expense", EntityID: 10, Action: models.AuditActionCreate}); err != nil {
		t.Fatalf("WriteLog without snapshots: %v", err)
	}

	var logs []models.AuditLog
	db.Order("id asc").Find(&logs)
	if len(logs) != 2 {
		t.Fatalf("got %d logs", len(logs))
	}
	if logs[0].BeforeData != `{"amount":"100.00"}` || logs[0].AfterData != `{"amount":"120.00"}` {
		t.Errorf("snapshots = %s / %s", logs[0].BeforeData, logs[0].AfterData)
	}
	if logs[1].BeforeData != "null" || logs[1].AfterData != "null" {
		t.Errorf("missing snapshots should be stored as null, got %s / %s", logs[1].BeforeData, logs[1].AfterData)
	}
}

func TestListAuditLogsHandler(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.UseGlobal(t, db)

	for _, opts := range []LogOptions{
		{UserID: 1, EntityType: "expense", EntityID: 1, Action: models.AuditActionCreate},
		{UserID: 1, EntityType: "expense", EntityID: 2, Action: models.AuditActionCreate},
		{UserID: 1, EntityType: "recurring_expense", EntityID: 1, Action: models.AuditActionDelete},
		{UserID: 2, EntityType: "expense", EntityID: 3, Action: models.AuditActionCreate},
	} {
		Record(db, opts)
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		return c.Next()
	})
	app.Get("/audit-logs", ListAuditLogsHandler())

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"", http.StatusOK, 3},
		{"?entity_type=expense", http.StatusOK, 2},
		{"?entity_type=expense&entity_id=2", http.StatusOK, 1},
		{"?entity_id=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs"+tt.query, nil), -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			raw, _ := io.ReadAll(resp.Body)
			var logs []AuditLogResponse
			if err := json.Unmarshal(raw, &logs); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(logs) != tt.wantCount {
				t.Errorf("got %d logs, want %d", len(logs), tt.wantCount)
			}
		})
	}
}
