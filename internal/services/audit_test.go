package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/google/uuid"
)

// blockingStore holds every CreateActivity call until release is closed.
type blockingStore struct {
	repository.Store
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	<-b.release
	b.calls.Add(1)
	return b.Store.CreateActivity(ctx, activity)
}

func TestAuditService_RecordAndClose(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewGormStore(db)
	audit := NewAuditService(store, 10)

	actor := uuid.New()
	ref := models.ResourceRef{Type: models.ResourceFolder, ID: uuid.New()}
	for i := 0; i < 3; i++ {
		audit.Record(AuditEntry{
			ActorID:      actor,
			Action:       AuditFolderRename,
			Resource:     ref,
			ResourceName: "docs",
			Context:      map[string]interface{}{"attempt": i},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := audit.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	activities, err := store.ListActivities(context.Background(), ref, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(activities) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(activities))
	}
	if activities[0].ActorID != actor || activities[0].ResourceName != "docs" || activities[0].Context["attempt"] == nil {
		t.Fatalf("unexpected activity %+v", activities[0])
	}

	// Entries after Close are dropped without panicking.
	audit.Record(AuditEntry{ActorID: actor, Action: AuditFolderRename, Resource: ref})
	if err := audit.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestAuditService_FullQueueDropsWithoutBlocking(t *testing.T) {
	db := setupTestDB(t)
	store := &blockingStore{Store: repository.NewGormStore(db), release: make(chan struct{})}
	audit := NewAuditService(store, 1)

	ref := models.ResourceRef{Type: models.ResourceFile, ID: uuid.New()}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			audit.Record(AuditEntry{ActorID: uuid.New(), Action: AuditFileUpload, Resource: ref})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(store.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := audit.Close(ctx); err != nil {
		t.Fatal(err)
	}

	written := int(store.calls.Load())
	if written < 1 || written > 2 {
		t.Fatalf("expected one or two entries written with a queue of one, got %d", written)
	}
}

func TestAuditService_CloseHonorsContext(t *testing.T) {
	db := setupTestDB(t)
	store := &blockingStore{Store: repository.NewGormStore(db), release: make(chan struct{})}
	audit := NewAuditService(store, 4)
	audit.Record(AuditEntry{ActorID: uuid.New(), Action: AuditFileUpload, Resource: models.ResourceRef{Type: models.ResourceFile, ID: uuid.New()}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	expectErr(t, audit.Close(ctx), context.DeadlineExceeded)

	close(store.release)
	if err := audit.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
