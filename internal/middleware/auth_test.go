package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docshare/drive/internal/database"
	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/docshare/drive/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupMiddlewareTestStore(t *testing.T) repository.Store {
	t.Helper()
	logger.Init()
	utils.ConfigureJWT("middleware-test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating: %v", err)
	}
	return repository.NewGormStore(db)
}

func createMiddlewareTestUser(t *testing.T, store repository.Store, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", Name: "Test User"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	token, err := utils.GenerateToken(user.ID, user.Email, time.Hour)
	if err != nil {
		t.Fatalf("failed generating token: %v", err)
	}
	return user, token
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v body=%q", err, string(raw))
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	store := setupMiddlewareTestStore(t)
	auth := NewAuthMiddleware(store)
	user, token := createMiddlewareTestUser(t, store, "auth-require@test.com")
	ghostToken, _ := utils.GenerateToken(uuid.New(), "ghost@test.com", time.Hour)
	expiredToken, _ := utils.GenerateToken(user.ID, user.Email, -time.Minute)

	app := fiber.New()
	app.Get("/protected", auth.RequireAuth, func(c *fiber.Ctx) error {
		current := GetCurrentUser(c)
		if current == nil {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"email": current.Email, "userID": c.Locals("userID")})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"bearer without token", "Bearer ", fiber.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, fiber.StatusUnauthorized},
		{"unknown user", "Bearer " + ghostToken, fiber.StatusUnauthorized},
		{"valid token", "Bearer " + token, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			body := decodeBody(t, resp)
			if tt.status == fiber.StatusOK {
				if body["email"] != user.Email || body["userID"] != user.ID.String() {
					t.Fatalf("unexpected body %v", body)
				}
			} else if body["code"] != "UNAUTHENTICATED" {
				t.Fatalf("expected UNAUTHENTICATED code, got %v", body["code"])
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	store := setupMiddlewareTestStore(t)
	auth := NewAuthMiddleware(store)
	user, token := createMiddlewareTestUser(t, store, "auth-optional@test.com")

	app := fiber.New()
	app.Get("/maybe", auth.OptionalAuth, func(c *fiber.Ctx) error {
		if current := GetCurrentUser(c); current != nil {
			return c.SendString(current.ID.String())
		}
		return c.SendString("anonymous")
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", "anonymous"},
		{"invalid token", "Bearer nope", "anonymous"},
		{"valid token", "Bearer " + token, user.ID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			raw, _ := io.ReadAll(resp.Body)
			if string(raw) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, string(raw))
			}
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(), SecurityLogger(), Metrics())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
