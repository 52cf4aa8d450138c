package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/google/uuid"
)

type ShareService struct {
	Store  repository.Store
	Access *AccessService
	Audit  Auditor
}

func NewShareService(store repository.Store, access *AccessService, auditor Auditor) *ShareService {
	return &ShareService{Store: store, Access: access, Audit: auditor}
}

type ShareDetail struct {
	models.Share
	GranteeEmail string `json:"granteeEmail"`
	GranteeName  string `json:"granteeName"`
}

type SharedItem struct {
	Role     models.Role      `json:"role"`
	Resource *models.Resource `json:"resource"`
}

// CreateShare grants the user with granteeEmail a role on the resource. An
// existing grant for the same user is updated in place.
func (s *ShareService) CreateShare(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef, granteeEmail string, role models.Role) (*models.Share, error) {
	if _, err := models.ParseShareRole(string(role)); err != nil {
		return nil, validationErr("%v", err)
	}
	res, err := s.Access.Authorize(ctx, actorID, ref, models.ActionShare)
	if err != nil {
		return nil, err
	}

	grantee, err := s.Store.GetUserByEmail(ctx, models.NormalizeEmail(granteeEmail))
	if err != nil {
		return nil, storeErr(err)
	}
	if grantee.ID == actorID || grantee.ID == res.OwnerID() {
		return nil, validationErr("cannot share with yourself")
	}

	var share *models.Share
	action := AuditShareCreate
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindShare(ctx, ref, grantee.ID)
		switch {
		case err == nil:
			if err := tx.UpdateShareRole(ctx, existing.ID, role); err != nil {
				return err
			}
			existing.Role = role
			share = existing
			action = AuditShareUpdate
			return nil
		case errors.Is(err, repository.ErrNotFound):
			share = &models.Share{
				ResourceType:  ref.Type,
				ResourceID:    ref.ID,
				GranteeUserID: grantee.ID,
				Role:          role,
				CreatedByID:   actorID,
			}
			return tx.CreateShare(ctx, share)
		default:
			return err
		}
	})
	if err != nil {
		return nil, storeErr(err)
	}

	logger.InfoWithUser(actorID.String(), "share_saved", map[string]interface{}{
		"resource": ref.String(),
		"grantee":  grantee.ID.String(),
		"role":     string(role),
	})
	s.Audit.Record(auditEntry(actorID, action, res, map[string]interface{}{
		"grantee_user_id": grantee.ID.String(),
		"role":            string(role),
	}))
	return share, nil
}

func (s *ShareService) RevokeShare(ctx context.Context, actorID, shareID uuid.UUID) error {
	share, err := s.Store.GetShare(ctx, shareID)
	if err != nil {
		return storeErr(err)
	}
	res, err := s.Access.Authorize(ctx, actorID, share.Ref(), models.ActionShare, IncludeTrashed())
	if err != nil {
		return err
	}
	if err := s.Store.DeleteShare(ctx, shareID); err != nil {
		return storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditShareRevoke, res, map[string]interface{}{
		"grantee_user_id": share.GranteeUserID.String(),
	}))
	return nil
}

func (s *ShareService) ListShares(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) ([]ShareDetail, error) {
	if _, err := s.Access.Authorize(ctx, actorID, ref, models.ActionShare); err != nil {
		return nil, err
	}
	shares, err := s.Store.ListShares(ctx, ref)
	if err != nil {
		return nil, storeErr(err)
	}

	details := make([]ShareDetail, 0, len(shares))
	for _, share := range shares {
		detail := ShareDetail{Share: share}
		user, err := s.Store.GetUser(ctx, share.GranteeUserID)
		switch {
		case err == nil:
			detail.GranteeEmail = user.Email
			detail.GranteeName = user.Name
		case !errors.Is(err, repository.ErrNotFound):
			return nil, storeErr(err)
		}
		details = append(details, detail)
	}
	return details, nil
}

// SharedWithMe lists live resources shared directly with the actor.
func (s *ShareService) SharedWithMe(ctx context.Context, actorID uuid.UUID) ([]SharedItem, error) {
	shares, err := s.Store.SharesForGrantee(ctx, actorID)
	if err != nil {
		return nil, storeErr(err)
	}

	items := make([]SharedItem, 0, len(shares))
	for _, share := range shares {
		res, err := loadResource(ctx, s.Store, share.Ref())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading shared %s: %w", share.Ref(), err)
		}
		if res.IsDeleted() {
			continue
		}
		if res.Type == models.ResourceFile && res.File.UploadStatus != models.UploadStatusReady {
			continue
		}
		items = append(items, SharedItem{Role: share.Role, Resource: res})
	}
	return items, nil
}
