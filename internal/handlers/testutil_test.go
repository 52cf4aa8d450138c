package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/docshare/drive/internal/database"
	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/logger"
	"github.com/docshare/drive/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type stubObjects struct{}

func (stubObjects) DeleteObjects(context.Context, []string) error { return nil }

func (stubObjects) PresignedGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/get/" + key, nil
}

func (stubObjects) PresignedPutURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/put/" + key, nil
}

type nopAuditor struct{}

func (nopAuditor) Record(services.AuditEntry) {}

type testEnv struct {
	app   *fiber.App
	store *repository.GormStore
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating: %v", err)
	}

	store := repository.NewGormStore(db)
	objects := stubObjects{}
	auditor := nopAuditor{}
	access := services.NewAccessService(store, services.InheritParent)
	lifecycle := services.NewLifecycleService(store, access, objects, auditor, 30)
	versions := services.NewVersionService(store, access, objects, auditor, 15*time.Minute, time.Hour)
	links := services.NewLinkService(store, access, objects, auditor, time.Hour)
	shares := services.NewShareService(store, access, auditor)
	stars := services.NewStarService(store, access)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	Register(app, Handlers{
		Folders:   NewFoldersHandler(lifecycle),
		Files:     NewFilesHandler(lifecycle, versions),
		Resources: NewResourcesHandler(access, lifecycle, stars, services.NewActivityService(store, access)),
		Shares:    NewSharesHandler(shares, links),
		Browse:    NewBrowseHandler(services.NewBrowseService(store, 1<<20)),
	}, middleware.NewAuthMiddleware(store))

	return &testEnv{app: app, store: store}
}

func createTestUser(t *testing.T, store repository.Store, email string) (*models.User, string) {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "unused", Name: "Test User"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user.ID, user.Email, time.Hour)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertErrorCode(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["code"].(string); got != expected {
		t.Fatalf("expected code %q, got %q (%v)", expected, got, body["error"])
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %+v", body)
	}
	return data
}

func dataList(t *testing.T, body map[string]any) []any {
	t.Helper()
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected list data, got %+v", body)
	}
	return data
}

// createFolder creates a folder through the API and returns its id.
func createFolder(t *testing.T, env *testEnv, token, name string, parentID string) string {
	t.Helper()
	payload := map[string]any{"name": name}
	if parentID != "" {
		payload["parentID"] = parentID
	}
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", payload, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)
	return dataMap(t, body)["id"].(string)
}

// uploadFile runs the upload handshake through the API and returns the file id.
func uploadFile(t *testing.T, env *testEnv, token, name string, folderID string) string {
	t.Helper()
	payload := map[string]any{"name": name, "mimeType": "text/plain", "sizeBytes": 5}
	if folderID != "" {
		payload["folderID"] = folderID
	}
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/files/upload", payload, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)
	fileID := dataMap(t, body)["file"].(map[string]any)["id"].(string)

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/files/"+fileID+"/complete", map[string]any{"checksum": "sha256:" + name}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	return fileID
}
