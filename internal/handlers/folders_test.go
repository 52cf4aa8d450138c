package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestFolderEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerToken := createTestUser(t, env.store, "folders-owner@test.com")
	_, strangerToken := createTestUser(t, env.store, "folders-stranger@test.com")

	parentID := createFolder(t, env, ownerToken, "Projects", "")
	childID := createFolder(t, env, ownerToken, "Drive", parentID)

	t.Run("POST /api/folders requires auth", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{"name": "x"}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertErrorCode(t, body, "UNAUTHENTICATED")
	})

	t.Run("POST /api/folders validates name", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{"name": ""}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorCode(t, body, "VALIDATION_ERROR")
		if body["error"] != "name is required" {
			t.Fatalf("unexpected message %v", body["error"])
		}
	})

	t.Run("POST /api/folders duplicate sibling", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{"name": "Drive", "parentID": parentID}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertErrorCode(t, body, "CONFLICT")
	})

	t.Run("GET /api/folders lists top level", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		folders := dataMap(t, body)["folders"].([]any)
		if len(folders) != 1 || folders[0].(map[string]any)["id"] != parentID {
			t.Fatalf("unexpected top level %+v", folders)
		}
	})

	t.Run("GET /api/folders/:id hides from strangers", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders/"+parentID, nil, authHeaders(strangerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertErrorCode(t, body, "NOT_FOUND")
	})

	t.Run("GET /api/folders/:id invalid id", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders/not-a-uuid", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("GET /api/folders/:id/path", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders/"+childID+"/path", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		path := dataList(t, body)
		if len(path) != 2 || path[0].(map[string]any)["id"] != parentID || path[1].(map[string]any)["id"] != childID {
			t.Fatalf("unexpected path %+v", path)
		}
	})

	t.Run("PATCH /api/folders/:id renames", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPatch, "/api/folders/"+childID, map[string]any{"name": "Renamed"}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["name"] != "Renamed" {
			t.Fatalf("unexpected rename result %+v", body)
		}
	})

	t.Run("POST /api/folders/:id/move into descendant", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders/"+parentID+"/move", map[string]any{"parentID": childID}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorCode(t, body, "INVALID_MOVE")
	})

	t.Run("POST /api/folders/:id/move to top level", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders/"+childID+"/move", map[string]any{"parentID": nil}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["parentID"] != nil {
			t.Fatalf("expected top-level folder, got %+v", body)
		}
	})

	t.Run("POST /api/folders/:id/move unknown destination", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders/"+childID+"/move", map[string]any{"parentID": uuid.NewString()}, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNotFound)
	})
}

func TestResourceLifecycleEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerToken := createTestUser(t, env.store, "lifecycle-owner@test.com")
	viewer, viewerToken := createTestUser(t, env.store, "lifecycle-viewer@test.com")

	folderID := createFolder(t, env, ownerToken, "A", "")
	subID := createFolder(t, env, ownerToken, "B", folderID)
	fileID := uploadFile(t, env, ownerToken, "f.txt", subID)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/resources/folder/"+folderID+"/shares", map[string]any{"email": viewer.Email, "role": "viewer"}, authHeaders(ownerToken))
	assertStatus(t, resp, http.StatusCreated)

	t.Run("GET access reports role", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/resources/folder/"+folderID+"/access", nil, authHeaders(viewerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["role"] != "viewer" {
			t.Fatalf("expected viewer, got %+v", body)
		}
	})

	t.Run("GET access without reach is not found", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/resources/folder/"+subID+"/access", nil, authHeaders(viewerToken))
		assertStatus(t, resp, http.StatusNotFound)
	})

	t.Run("unknown resource type", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/resources/drive/"+folderID+"/access", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorCode(t, body, "VALIDATION_ERROR")
	})

	t.Run("viewer cannot delete", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/resources/folder/"+folderID, nil, authHeaders(viewerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
		assertErrorCode(t, body, "PERMISSION_DENIED")
	})

	t.Run("purge of live resource is rejected", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/resources/folder/"+folderID+"/permanent", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("delete, list trash, restore", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/resources/folder/"+folderID, nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNoContent)

		resp = performRequest(t, env.app, http.MethodGet, "/api/trash", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		items := dataList(t, body)
		if len(items) != 3 {
			t.Fatalf("expected folder, subfolder and file in trash, got %d", len(items))
		}
		if days := items[0].(map[string]any)["daysUntilDeletion"]; days != float64(30) {
			t.Fatalf("expected 30 days left, got %v", days)
		}

		resp = performRequest(t, env.app, http.MethodGet, "/api/files/"+fileID+"/download-url", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNotFound)

		resp = performRequest(t, env.app, http.MethodPost, "/api/resources/folder/"+folderID+"/restore", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNoContent)

		resp = performRequest(t, env.app, http.MethodGet, "/api/files/"+fileID+"/download-url", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)
	})

	t.Run("purge after delete", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/resources/file/"+fileID, nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNoContent)
		resp = performRequest(t, env.app, http.MethodDelete, "/api/resources/file/"+fileID+"/permanent", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNoContent)
		resp = performRequest(t, env.app, http.MethodPost, "/api/resources/file/"+fileID+"/restore", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNotFound)
	})

	t.Run("star and list starred", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPut, "/api/resources/folder/"+folderID+"/star", nil, authHeaders(viewerToken))
		assertStatus(t, resp, http.StatusNoContent)

		resp = performRequest(t, env.app, http.MethodGet, "/api/starred", nil, authHeaders(viewerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if len(dataList(t, body)) != 1 {
			t.Fatalf("expected one starred resource, got %+v", body)
		}

		resp = performRequest(t, env.app, http.MethodDelete, "/api/resources/folder/"+folderID+"/star", nil, authHeaders(viewerToken))
		assertStatus(t, resp, http.StatusNoContent)
	})
}

func TestResourceActivityEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	_, ownerToken := createTestUser(t, env.store, "owner@test.com")
	_, strangerToken := createTestUser(t, env.store, "stranger@test.com")
	folderID := createFolder(t, env, ownerToken, "reports", "")

	resp := performRequest(t, env.app, http.MethodGet, "/api/resources/folder/"+folderID+"/activity?limit=5", nil, authHeaders(ownerToken))
	assertStatus(t, resp, http.StatusOK)

	resp = performRequest(t, env.app, http.MethodGet, "/api/resources/folder/"+folderID+"/activity", nil, authHeaders(strangerToken))
	assertStatus(t, resp, http.StatusNotFound)
	assertErrorCode(t, decodeJSONMap(t, resp), "NOT_FOUND")
}
