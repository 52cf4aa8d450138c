package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/google/uuid"
)

type TrashItem struct {
	Type              models.ResourceType `json:"type"`
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	MimeType          string              `json:"mimeType,omitempty"`
	SizeBytes         int64               `json:"sizeBytes,omitempty"`
	DeletedAt         time.Time           `json:"deletedAt"`
	DaysUntilDeletion int                 `json:"daysUntilDeletion"`
}

// DaysUntilDeletion is informational; nothing in this package purges
// expired trash.
func DaysUntilDeletion(now, deletedAt time.Time, graceDays int) int {
	// deletedAt may be slightly ahead of now when app nodes disagree on time.
	elapsed := math.Max(0, math.Floor(now.Sub(deletedAt).Hours()/24))
	remaining := graceDays - int(elapsed)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ListTrash returns every trashed folder and file owned by the actor, most
// recently deleted first.
func (s *LifecycleService) ListTrash(ctx context.Context, actorID uuid.UUID) ([]TrashItem, error) {
	folders, err := s.Store.TrashedFolders(ctx, actorID)
	if err != nil {
		return nil, storeErr(err)
	}
	files, err := s.Store.TrashedFiles(ctx, actorID)
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.Now()
	items := make([]TrashItem, 0, len(folders)+len(files))
	for _, f := range folders {
		items = append(items, s.trashItem(now, models.FolderResource(&f)))
	}
	for _, f := range files {
		item := s.trashItem(now, models.FileResource(&f))
		item.MimeType = f.MimeType
		item.SizeBytes = f.SizeBytes
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DeletedAt.After(items[j].DeletedAt)
	})
	return items, nil
}

func (s *LifecycleService) trashItem(now time.Time, res *models.Resource) TrashItem {
	item := TrashItem{Type: res.Type, ID: res.ID(), Name: res.Name()}
	if at := res.DeletedAt(); at != nil {
		item.DeletedAt = *at
		item.DaysUntilDeletion = DaysUntilDeletion(now, *at, s.GraceDays)
	}
	return item
}
