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

// InheritanceMode controls how folder shares reach the resources inside them.
type InheritanceMode string

const (
	// InheritParent lets a file inherit a share on its immediate folder only.
	// Shares on grandparents, and shares on a folder's parent, do not apply.
	InheritParent InheritanceMode = "parent"
	// InheritAncestors applies the most permissive share found anywhere on
	// the ancestor chain, for files and folders alike.
	InheritAncestors InheritanceMode = "ancestors"
)

func ParseInheritanceMode(value string) (InheritanceMode, error) {
	switch InheritanceMode(value) {
	case InheritParent, "":
		return InheritParent, nil
	case InheritAncestors:
		return InheritAncestors, nil
	default:
		return "", fmt.Errorf("unknown share inheritance mode %q", value)
	}
}

type resolveOptions struct {
	includeTrashed bool
}

type ResolveOption func(*resolveOptions)

// IncludeTrashed resolves soft-deleted resources instead of reporting them as
// not found.
func IncludeTrashed() ResolveOption {
	return func(o *resolveOptions) { o.includeTrashed = true }
}

type AccessService struct {
	Store repository.Store
	Mode  InheritanceMode
}

func NewAccessService(store repository.Store, mode InheritanceMode) *AccessService {
	if mode == "" {
		mode = InheritParent
	}
	return &AccessService{Store: store, Mode: mode}
}

// Resolve returns the effective role of actorID on the resource along with
// the loaded resource.
func (a *AccessService) Resolve(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef, opts ...ResolveOption) (models.Role, *models.Resource, error) {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := loadResource(ctx, a.Store, ref)
	if err != nil {
		return models.RoleNone, nil, err
	}
	if res.IsDeleted() && !o.includeTrashed {
		return models.RoleNone, nil, ErrNotFound
	}
	if res.OwnerID() == actorID {
		return models.RoleOwner, res, nil
	}

	var role models.Role
	switch a.Mode {
	case InheritAncestors:
		role, err = a.ancestorRole(ctx, actorID, res)
	default:
		role, err = a.parentRole(ctx, actorID, res)
	}
	if err != nil {
		return models.RoleNone, nil, err
	}
	return role, res, nil
}

// Authorize resolves the actor's role and checks it against action. Actors
// with no role at all get ErrNotFound so the resource's existence is not
// revealed.
func (a *AccessService) Authorize(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef, action models.Action, opts ...ResolveOption) (*models.Resource, error) {
	role, res, err := a.Resolve(ctx, actorID, ref, opts...)
	if err != nil {
		return nil, err
	}
	if role == models.RoleNone {
		return nil, ErrNotFound
	}
	if !role.Permits(action) {
		logger.WarnWithUser(actorID.String(), "permission_denied", map[string]interface{}{
			"resource": ref.String(),
			"action":   string(action),
			"role":     string(role),
		})
		return nil, ErrPermissionDenied
	}
	return res, nil
}

func (a *AccessService) shareRole(ctx context.Context, ref models.ResourceRef, actorID uuid.UUID) (models.Role, error) {
	share, err := a.Store.FindShare(ctx, ref, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.RoleNone, nil
	}
	if err != nil {
		return models.RoleNone, storeErr(err)
	}
	return share.Role, nil
}

func (a *AccessService) parentRole(ctx context.Context, actorID uuid.UUID, res *models.Resource) (models.Role, error) {
	role, err := a.shareRole(ctx, res.Ref(), actorID)
	if err != nil || role != models.RoleNone {
		return role, err
	}

	switch res.Type {
	case models.ResourceFile:
		if res.File.FolderID == nil {
			return models.RoleNone, nil
		}
		return a.shareRole(ctx, models.ResourceRef{Type: models.ResourceFolder, ID: *res.File.FolderID}, actorID)
	case models.ResourceFolder:
		return models.RoleNone, nil
	default:
		return models.RoleNone, fmt.Errorf("%w: resource type %q", ErrIntegrity, res.Type)
	}
}

func (a *AccessService) ancestorRole(ctx context.Context, actorID uuid.UUID, res *models.Resource) (models.Role, error) {
	best, err := a.shareRole(ctx, res.Ref(), actorID)
	if err != nil {
		return models.RoleNone, err
	}

	visited := make(map[uuid.UUID]bool)
	next := res.ParentID()
	for next != nil && best != models.RoleEditor {
		id := *next
		if visited[id] {
			return models.RoleNone, fmt.Errorf("%w: folder cycle at %s", ErrIntegrity, id)
		}
		visited[id] = true

		role, err := a.shareRole(ctx, models.ResourceRef{Type: models.ResourceFolder, ID: id}, actorID)
		if err != nil {
			return models.RoleNone, err
		}
		best = models.MaxRole(best, role)

		folder, err := a.Store.GetFolder(ctx, id)
		if err != nil {
			return models.RoleNone, storeErr(err)
		}
		next = folder.ParentID
	}
	return best, nil
}

func loadResource(ctx context.Context, store repository.Store, ref models.ResourceRef) (*models.Resource, error) {
	switch ref.Type {
	case models.ResourceFile:
		file, err := store.GetFile(ctx, ref.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		return models.FileResource(file), nil
	case models.ResourceFolder:
		folder, err := store.GetFolder(ctx, ref.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		return models.FolderResource(folder), nil
	default:
		return nil, validationErr("unknown resource type %q", ref.Type)
	}
}
