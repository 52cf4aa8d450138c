package services

import (
	"context"
	"sync"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	AuditFolderCreate    = "folder.create"
	AuditFolderRename    = "folder.rename"
	AuditFolderMove      = "folder.move"
	AuditFileRename      = "file.rename"
	AuditFileMove        = "file.move"
	AuditFileUpload      = "file.upload"
	AuditResourceDelete  = "resource.delete"
	AuditResourceRestore = "resource.restore"
	AuditResourcePurge   = "resource.purge"
	AuditVersionRevert   = "version.revert"
	AuditLinkCreate      = "link.create"
	AuditLinkDelete      = "link.delete"
	AuditLinkAccess      = "link.access"
	AuditShareCreate     = "share.create"
	AuditShareUpdate     = "share.update"
	AuditShareRevoke     = "share.revoke"
)

var auditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "drive_audit_events_total",
	Help: "Audit entries by outcome (recorded, dropped, failed).",
}, []string{"outcome"})

type AuditEntry struct {
	ActorID      uuid.UUID
	Action       string
	Resource     models.ResourceRef
	ResourceName string
	Context      map[string]interface{}
}

// Auditor receives audit entries. Record must not block and never fails the
// caller.
type Auditor interface {
	Record(entry AuditEntry)
}

type AuditService struct {
	Store  repository.Store
	queue  chan models.Activity
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewAuditService(store repository.Store, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = 1000
	}
	s := &AuditService{
		Store: store,
		queue: make(chan models.Activity, queueSize),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) Record(entry AuditEntry) {
	row := models.Activity{
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.Resource.Type,
		ResourceID:   entry.Resource.ID,
		ResourceName: entry.ResourceName,
		Context:      entry.Context,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(entry.Action)
		return
	}

	select {
	case s.queue <- row:
	default:
		s.drop(entry.Action)
	}
}

func (s *AuditService) drop(action string) {
	auditEvents.WithLabelValues("dropped").Inc()
	logger.Warn("audit_queue_full", map[string]interface{}{
		"action":  action,
		"dropped": true,
	})
}

func (s *AuditService) processQueue() {
	defer close(s.done)
	for row := range s.queue {
		if err := s.Store.CreateActivity(context.Background(), &row); err != nil {
			auditEvents.WithLabelValues("failed").Inc()
			logger.Error("audit_insert_failed", err, map[string]interface{}{
				"action":   row.Action,
				"resource": row.ResourceID.String(),
			})
			continue
		}
		auditEvents.WithLabelValues("recorded").Inc()
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (s *AuditService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func auditEntry(actorID uuid.UUID, action string, res *models.Resource, details map[string]interface{}) AuditEntry {
	return AuditEntry{
		ActorID:      actorID,
		Action:       action,
		Resource:     res.Ref(),
		ResourceName: res.Name(),
		Context:      details,
	}
}
