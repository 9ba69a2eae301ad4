package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance-backend/internal/config"
	"finance-backend/internal/database/dbtest"
	"finance-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: strings.Repeat("k", 32),
		JWTTTL:    time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	user := &models.User{ID: 42, Username: "ana"}

	token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(cfg.JWTSecret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "ana" || claims.Subject != "42" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := ParseToken(strings.Repeat("x", 32), token); err == nil {
		t.Error("token signed with another secret should be rejected")
	}

	expired, _ := GenerateToken(cfg.JWTSecret, -time.Minute, user)
	if _, err := ParseToken(cfg.JWTSecret, expired); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestJWTMiddleware(t *testing.T) {
	cfg := testConfig()
	token, _ := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &models.User{ID: 7, Username: "bob"})

	app := fiber.New()
	app.Use(JWTMiddleware(cfg))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusOK {
				raw, _ := io.ReadAll(resp.Body)
				if string(raw) != `{"id":7}` {
					t.Errorf("body = %s", raw)
				}
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	db := dbtest.Open(t)

	user, err := CreateUser(db, " ana ", "Ana@Example.com", "secret")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "ana" || user.Email != "ana@example.com" {
		t.Errorf("user = %+v", user)
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	if _, err := CreateUser(db, "ana", "", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username: got %v", err)
	}
	if _, err := CreateUser(db, "", "", "x"); err == nil {
		t.Error("empty username should fail")
	}
}

func TestRegisterLoginMe(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.UseGlobal(t, db)
	cfg := testConfig()

	app := fiber.New()
	app.Post("/auth/register", RegisterHandler())
	app.Post("/auth/login", LoginHandler(cfg))
	app.Get("/me", JWTMiddleware(cfg), MeHandler())

	post := func(path string, body any) *http.Response {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/auth/register", map[string]string{"username": "carla", "email": "c@example.com", "password": "pw123456"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp = post("/auth/register", map[string]string{"username": "carla", "password": "again"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	resp = post("/auth/login", map[string]string{"username": "carla", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp = post("/auth/login", map[string]string{"username": "carla", "password": "pw123456"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var login struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.User.Username != "carla" {
		t.Fatalf("login = %+v", login)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login.Token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET /me: %v", err)
	}
	var me UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != login.User.ID || me.Email != "c@example.com" {
		t.Errorf("me = %+v", me)
	}
}
