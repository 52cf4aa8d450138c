package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/docshare/drive/internal/database"
	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeObjects struct {
	mu           sync.Mutex
	deleted      []string
	presignCalls int
	deleteErr    error
}

func (f *fakeObjects) DeleteObjects(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, keys...)
	return nil
}

func (f *fakeObjects) PresignedGetURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignCalls++
	return "https://objects.test/get/" + key + "?ttl=" + ttl.String(), nil
}

func (f *fakeObjects) PresignedPutURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://objects.test/put/" + key + "?ttl=" + ttl.String(), nil
}

func (f *fakeObjects) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAuditor) Record(entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	store     *repository.GormStore
	objects   *fakeObjects
	audit     *recordingAuditor
	access    *AccessService
	lifecycle *LifecycleService
	versions  *VersionService
	links     *LinkService
	shares    *ShareService
	stars     *StarService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating: %v", err)
	}
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithMode(t, InheritParent)
}

func setupTestEnvWithMode(t *testing.T, mode InheritanceMode) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewGormStore(db)
	objects := &fakeObjects{}
	auditor := &recordingAuditor{}
	access := NewAccessService(store, mode)

	return &testEnv{
		db:        db,
		store:     store,
		objects:   objects,
		audit:     auditor,
		access:    access,
		lifecycle: NewLifecycleService(store, access, objects, auditor, 30),
		versions:  NewVersionService(store, access, objects, auditor, 15*time.Minute, time.Hour),
		links:     NewLinkService(store, access, objects, auditor, time.Hour),
		shares:    NewShareService(store, access, auditor),
		stars:     NewStarService(store, access),
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "hash", Name: email}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}
	return u
}

func (e *testEnv) createFolder(t *testing.T, actor uuid.UUID, name string, parent *models.Folder) *models.Folder {
	t.Helper()
	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	f, err := e.lifecycle.CreateFolder(context.Background(), actor, name, parentID)
	if err != nil {
		t.Fatalf("failed creating folder %s: %v", name, err)
	}
	return f
}

// createFile runs the full upload flow and returns a ready file.
func (e *testEnv) createFile(t *testing.T, actor uuid.UUID, name string, folder *models.Folder) *models.File {
	t.Helper()
	ctx := context.Background()
	req := UploadRequest{Name: name, MimeType: "text/plain", SizeBytes: 10}
	if folder != nil {
		req.FolderID = &folder.ID
	}
	ticket, err := e.versions.InitUpload(ctx, actor, req)
	if err != nil {
		t.Fatalf("failed initializing upload %s: %v", name, err)
	}
	checksum := "sha256:" + name
	file, err := e.versions.CompleteUpload(ctx, actor, ticket.File.ID, &checksum)
	if err != nil {
		t.Fatalf("failed completing upload %s: %v", name, err)
	}
	return file
}

func (e *testEnv) share(t *testing.T, owner uuid.UUID, ref models.ResourceRef, grantee *models.User, role models.Role) {
	t.Helper()
	if _, err := e.shares.CreateShare(context.Background(), owner, ref, grantee.Email, role); err != nil {
		t.Fatalf("failed sharing %s with %s: %v", ref, grantee.Email, err)
	}
}

func (e *testEnv) reloadFolder(t *testing.T, id uuid.UUID) *models.Folder {
	t.Helper()
	f, err := e.store.GetFolder(context.Background(), id)
	if err != nil {
		t.Fatalf("failed loading folder %s: %v", id, err)
	}
	return f
}

func (e *testEnv) reloadFile(t *testing.T, id uuid.UUID) *models.File {
	t.Helper()
	f, err := e.store.GetFile(context.Background(), id)
	if err != nil {
		t.Fatalf("failed loading file %s: %v", id, err)
	}
	return f
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
