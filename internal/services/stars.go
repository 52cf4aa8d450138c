package services

import (
	"context"
	"errors"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/google/uuid"
)

type StarService struct {
	Store  repository.Store
	Access *AccessService
}

func NewStarService(store repository.Store, access *AccessService) *StarService {
	return &StarService{Store: store, Access: access}
}

func (s *StarService) Star(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) error {
	if _, err := s.Access.Authorize(ctx, actorID, ref, models.ActionRead); err != nil {
		return err
	}
	star := &models.Star{UserID: actorID, ResourceType: ref.Type, ResourceID: ref.ID}
	return storeErr(s.Store.CreateStar(ctx, star))
}

func (s *StarService) Unstar(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) error {
	return storeErr(s.Store.DeleteStar(ctx, actorID, ref))
}

// ListStarred returns starred resources the actor can still read. Stars on
// trashed resources or revoked shares are skipped, not removed.
func (s *StarService) ListStarred(ctx context.Context, actorID uuid.UUID) ([]*models.Resource, error) {
	stars, err := s.Store.ListStars(ctx, actorID)
	if err != nil {
		return nil, storeErr(err)
	}

	resources := make([]*models.Resource, 0, len(stars))
	for _, star := range stars {
		ref := models.ResourceRef{Type: star.ResourceType, ID: star.ResourceID}
		role, res, err := s.Access.Resolve(ctx, actorID, ref)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if role.Permits(models.ActionRead) {
			resources = append(resources, res)
		}
	}
	return resources, nil
}
