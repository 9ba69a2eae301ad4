package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finance-backend/internal/config"
	"finance-backend/internal/database/dbtest"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	dbtest.UseGlobal(t, dbtest.Open(t))

	cfg := &config.Config{
		JWTSecret:   "0123456789abcdef0123456789abcdef",
		JWTTTL:      time.Hour,
		CORSOrigins: "http://localhost:3000",
		Currency:    "BRL",
	}
	log, _ := test.NewNullLogger()
	return New(cfg, log)
}

func request(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func readJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestServer(t)

	for _, path := range []string{"/api/v1/me", "/api/v1/expenses", "/api/v1/monthly-view", "/api/v1/assets"} {
		resp := request(t, app, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s: status %d, want 401", path, resp.StatusCode)
		}
		var body map[string]string
		readJSON(t, resp, &body)
		if body["error"] == "" {
			t.Errorf("GET %s: missing error message", path)
		}
	}

	resp := request(t, app, http.MethodGet, "/api/v1/me", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestEndToEnd(t *testing.T) {
	app := newTestServer(t)

	resp := request(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "ana", "email": "ana@example.com", "password": "s3cret!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	resp = request(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "ana", "password": "other",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second register: status %d, want 409", resp.StatusCode)
	}

	resp = request(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ana", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", resp.StatusCode)
	}

	resp = request(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ana", "password": "s3cret!",
	})
	var login struct {
		Token string `json:"token"`
	}
	readJSON(t, resp, &login)
	if login.Token == "" {
		t.Fatal("login returned no token")
	}
	token := login.Token

	resp = request(t, app, http.MethodPost, "/api/v1/installments", token, map[string]any{
		"name": "Notebook", "total_amount": "100.00", "installments_quantity": 3, "first_due_date": "2024-01-15",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create installment: status %d", resp.StatusCode)
	}
	resp = request(t, app, http.MethodPost, "/api/v1/recurring", token, map[string]any{
		"name": "Internet", "amount": "99.90", "due_day": 31, "start_date": "2024-01-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create recurring: status %d", resp.StatusCode)
	}

	resp = request(t, app, http.MethodGet, "/api/v1/monthly-view?due_date__year=2024&due_date__month=2", token, nil)
	var entries []struct {
		OccurrenceKind string `json:"occurrence_kind"`
		ExpenseType    string `json:"expense_type"`
		Name           string `json:"name"`
		Amount         string `json:"amount"`
		DueDate        string `json:"due_date"`
	}
	readJSON(t, resp, &entries)
	if len(entries) != 2 {
		t.Fatalf("monthly view has %d entries, want 2", len(entries))
	}
	if entries[0].ExpenseType != "installment" || entries[0].Amount != "33.33" || entries[0].DueDate != "2024-02-15" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].OccurrenceKind != "virtual" || entries[1].DueDate != "2024-02-29" {
		t.Errorf("second entry = %+v", entries[1])
	}

	resp = request(t, app, http.MethodGet, "/api/v1/monthly-view?due_date__year=2024&due_date__month=13", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("month 13: status %d, want 400", resp.StatusCode)
	}

	resp = request(t, app, http.MethodGet, "/api/v1/monthly-view/summary?due_date__year=2024&due_date__month=2", token, nil)
	var summary struct {
		Total   string `json:"total"`
		Pending string `json:"pending"`
	}
	readJSON(t, resp, &summary)
	if summary.Total != "133.23" || summary.Pending != "133.23" {
		t.Errorf("summary = %+v", summary)
	}

	resp = request(t, app, http.MethodGet, "/api/v1/audit-logs", token, nil)
	var logs []map[string]any
	readJSON(t, resp, &logs)
	if len(logs) != 2 {
		t.Errorf("audit log has %d entries, want 2", len(logs))
	}
}
