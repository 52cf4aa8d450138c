package services

import (
	"context"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityService reads back the audit trail written by AuditService.
type ActivityService struct {
	Store  repository.Store
	Access *AccessService
}

func NewActivityService(store repository.Store, access *AccessService) *ActivityService {
	return &ActivityService{Store: store, Access: access}
}

// ListActivity returns the newest entries for a resource the actor can read.
// Trashed resources keep their history readable.
func (s *ActivityService) ListActivity(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef, limit int) ([]models.Activity, error) {
	if _, err := s.Access.Authorize(ctx, actorID, ref, models.ActionRead, IncludeTrashed()); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}

	activities, err := s.Store.ListActivities(ctx, ref, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return activities, nil
}
