package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/google/uuid"
)

// ObjectStore is the blob storage behind files. Keys are the storage locators
// recorded on files and versions.
type ObjectStore interface {
	DeleteObjects(ctx context.Context, keys []string) error
	PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignedPutURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type LifecycleService struct {
	Store     repository.Store
	Access    *AccessService
	Objects   ObjectStore
	Audit     Auditor
	GraceDays int
	Now       func() time.Time
}

func NewLifecycleService(store repository.Store, access *AccessService, objects ObjectStore, auditor Auditor, graceDays int) *LifecycleService {
	if graceDays <= 0 {
		graceDays = 30
	}
	return &LifecycleService{
		Store:     store,
		Access:    access,
		Objects:   objects,
		Audit:     auditor,
		GraceDays: graceDays,
		Now:       time.Now,
	}
}

// now is truncated to microseconds so a stored deletion instant compares
// equal after a round trip through Postgres.
func (s *LifecycleService) now() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}

func folderRef(id uuid.UUID) models.ResourceRef {
	return models.ResourceRef{Type: models.ResourceFolder, ID: id}
}

func fileRef(id uuid.UUID) models.ResourceRef {
	return models.ResourceRef{Type: models.ResourceFile, ID: id}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", validationErr("name is required")
	case len(name) > 255:
		return "", validationErr("name is longer than 255 characters")
	case strings.ContainsAny(name, "/\\"):
		return "", validationErr("name must not contain path separators")
	}
	return name, nil
}

func (s *LifecycleService) CreateFolder(ctx context.Context, actorID uuid.UUID, name string, parentID *uuid.UUID) (*models.Folder, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	ownerID := actorID
	if parentID != nil {
		parent, err := s.Access.Authorize(ctx, actorID, folderRef(*parentID), models.ActionCreate)
		if err != nil {
			return nil, err
		}
		ownerID = parent.OwnerID()
	}

	folder := &models.Folder{Name: name, OwnerID: ownerID, ParentID: parentID}
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		taken, err := tx.FolderNameTaken(ctx, ownerID, parentID, name, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: a folder named %q already exists", ErrConflict, name)
		}
		return tx.CreateFolder(ctx, folder)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditFolderCreate, models.FolderResource(folder), nil))
	return folder, nil
}

func (s *LifecycleService) RenameFolder(ctx context.Context, actorID, folderID uuid.UUID, name string) (*models.Folder, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	res, err := s.Access.Authorize(ctx, actorID, folderRef(folderID), models.ActionRename)
	if err != nil {
		return nil, err
	}
	folder := res.Folder
	oldName := folder.Name

	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		taken, err := tx.FolderNameTaken(ctx, folder.OwnerID, folder.ParentID, name, folder.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: a folder named %q already exists", ErrConflict, name)
		}
		return tx.UpdateFolder(ctx, folder.ID, map[string]interface{}{"name": name})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	folder.Name = name

	s.Audit.Record(auditEntry(actorID, AuditFolderRename, res, map[string]interface{}{"old_name": oldName}))
	return folder, nil
}

func (s *LifecycleService) RenameFile(ctx context.Context, actorID, fileID uuid.UUID, name string) (*models.File, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	res, err := s.Access.Authorize(ctx, actorID, fileRef(fileID), models.ActionRename)
	if err != nil {
		return nil, err
	}
	oldName := res.File.Name

	if err := s.Store.UpdateFile(ctx, fileID, map[string]interface{}{"name": name}); err != nil {
		return nil, storeErr(err)
	}
	res.File.Name = name

	s.Audit.Record(auditEntry(actorID, AuditFileRename, res, map[string]interface{}{"old_name": oldName}))
	return res.File, nil
}

// MoveFile moves a file into folderID, or to its owner's top level when
// folderID is nil.
func (s *LifecycleService) MoveFile(ctx context.Context, actorID, fileID uuid.UUID, folderID *uuid.UUID) (*models.File, error) {
	res, err := s.Access.Authorize(ctx, actorID, fileRef(fileID), models.ActionMove)
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		dest, err := s.Access.Authorize(ctx, actorID, folderRef(*folderID), models.ActionCreate)
		if err != nil {
			return nil, err
		}
		if dest.OwnerID() != res.OwnerID() {
			return nil, fmt.Errorf("%w: destination belongs to another owner", ErrInvalidMove)
		}
	}

	if err := s.Store.UpdateFile(ctx, fileID, map[string]interface{}{"folder_id": folderID}); err != nil {
		return nil, storeErr(err)
	}
	res.File.FolderID = folderID

	s.Audit.Record(auditEntry(actorID, AuditFileMove, res, map[string]interface{}{"folder_id": uuidString(folderID)}))
	return res.File, nil
}

// MoveFolder re-parents a folder. newParentID nil moves it to its owner's top
// level. The moved row and every ancestor of the destination are locked for
// the duration of the cycle check, so two concurrent moves cannot both pass
// validation and create a cycle.
func (s *LifecycleService) MoveFolder(ctx context.Context, actorID, folderID uuid.UUID, newParentID *uuid.UUID) (*models.Folder, error) {
	res, err := s.Access.Authorize(ctx, actorID, folderRef(folderID), models.ActionMove)
	if err != nil {
		return nil, err
	}
	if newParentID != nil && *newParentID == folderID {
		return nil, fmt.Errorf("%w: a folder cannot be moved into itself", ErrInvalidMove)
	}
	if newParentID != nil {
		dest, err := s.Access.Authorize(ctx, actorID, folderRef(*newParentID), models.ActionCreate)
		if err != nil {
			return nil, err
		}
		if dest.OwnerID() != res.OwnerID() {
			return nil, fmt.Errorf("%w: destination belongs to another owner", ErrInvalidMove)
		}
	}

	var moved *models.Folder
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		folder, err := tx.GetFolderForUpdate(ctx, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return ErrNotFound
		}
		if newParentID != nil {
			if err := ensureNotAncestor(ctx, tx, folderID, *newParentID); err != nil {
				return err
			}
		}

		taken, err := tx.FolderNameTaken(ctx, folder.OwnerID, newParentID, folder.Name, folder.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: destination already has a folder named %q", ErrConflict, folder.Name)
		}

		if err := tx.UpdateFolder(ctx, folderID, map[string]interface{}{"parent_id": newParentID}); err != nil {
			return err
		}
		folder.ParentID = newParentID
		moved = folder
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditFolderMove, models.FolderResource(moved), map[string]interface{}{"parent_id": uuidString(newParentID)}))
	return moved, nil
}

// ensureNotAncestor walks from destID to the root, locking each folder, and
// fails when movedID is on the path. The walk is bounded by the folder count;
// exceeding it or revisiting a folder means the stored tree has a cycle.
func ensureNotAncestor(ctx context.Context, tx repository.Store, movedID, destID uuid.UUID) error {
	bound, err := tx.CountFolders(ctx)
	if err != nil {
		return err
	}

	visited := make(map[uuid.UUID]bool)
	current := &destID
	for steps := int64(0); current != nil; steps++ {
		id := *current
		if id == movedID {
			return fmt.Errorf("%w: destination is inside the moved folder", ErrInvalidMove)
		}
		if visited[id] || steps > bound {
			err := fmt.Errorf("%w: folder ancestry of %s does not terminate", ErrIntegrity, destID)
			logger.Error("folder_cycle_detected", err, map[string]interface{}{
				"folder_id": id.String(),
				"steps":     steps,
			})
			return err
		}
		visited[id] = true

		folder, err := tx.GetFolderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if id == destID && folder.IsDeleted {
			return ErrNotFound
		}
		current = folder.ParentID
	}
	return nil
}

// DeleteResource moves a file, or a folder with everything below it, to the
// trash. Every row touched shares one deletion instant. Deleting something
// already in the trash is a no-op.
func (s *LifecycleService) DeleteResource(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) error {
	res, err := s.Access.Authorize(ctx, actorID, ref, models.ActionDelete, IncludeTrashed())
	if err != nil {
		return err
	}
	if res.IsDeleted() {
		return nil
	}

	deletedAt := s.now()
	var folderCount, fileCount int
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		switch res.Type {
		case models.ResourceFile:
			fileCount = 1
			return tx.SetFilesDeleted(ctx, []uuid.UUID{res.ID()}, &deletedAt)
		case models.ResourceFolder:
			levels, err := folderLevels(ctx, tx, res.ID(), repository.Live)
			if err != nil {
				return err
			}
			for _, level := range levels {
				if err := tx.SetFoldersDeleted(ctx, level, &deletedAt); err != nil {
					return err
				}
				folderCount += len(level)
			}
			files, err := tx.FilesInFolders(ctx, flatten(levels), repository.Live)
			if err != nil {
				return err
			}
			fileCount = len(files)
			return tx.SetFilesDeleted(ctx, fileIDs(files), &deletedAt)
		default:
			return validationErr("unknown resource type %q", res.Type)
		}
	})
	if err != nil {
		return storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditResourceDelete, res, map[string]interface{}{
		"folders": folderCount,
		"files":   fileCount,
	}))
	return nil
}

// RestoreResource takes a resource out of the trash. For a folder, every
// trashed descendant folder and every file under the closure comes back with
// it. Restoring a live resource is a no-op.
func (s *LifecycleService) RestoreResource(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) error {
	res, err := s.Access.Authorize(ctx, actorID, ref, models.ActionRestore, IncludeTrashed())
	if err != nil {
		return err
	}
	if !res.IsDeleted() {
		return nil
	}
	var folderCount, fileCount int
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		switch res.Type {
		case models.ResourceFile:
			fileCount = 1
			return tx.SetFilesDeleted(ctx, []uuid.UUID{res.ID()}, nil)
		case models.ResourceFolder:
			folder := res.Folder
			taken, err := tx.FolderNameTaken(ctx, folder.OwnerID, folder.ParentID, folder.Name, folder.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: a folder named %q already exists", ErrConflict, folder.Name)
			}

			levels, err := folderLevels(ctx, tx, folder.ID, repository.Trashed)
			if err != nil {
				return err
			}
			for _, level := range levels {
				if err := tx.SetFoldersDeleted(ctx, level, nil); err != nil {
					return err
				}
				folderCount += len(level)
			}

			files, err := tx.FilesInFolders(ctx, flatten(levels), repository.Trashed)
			if err != nil {
				return err
			}
			fileCount = len(files)
			return tx.SetFilesDeleted(ctx, fileIDs(files), nil)
		default:
			return validationErr("unknown resource type %q", res.Type)
		}
	})
	if err != nil {
		return storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditResourceRestore, res, map[string]interface{}{
		"folders": folderCount,
		"files":   fileCount,
	}))
	return nil
}

// PermanentlyDelete purges a trashed resource. Storage objects go first, then
// version, file and folder rows, then every share, link and star pointing at
// a purged resource. Files still uploading inside a purged folder are purged
// with it.
func (s *LifecycleService) PermanentlyDelete(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) error {
	res, err := s.Access.Authorize(ctx, actorID, ref, models.ActionPurge, IncludeTrashed())
	if err != nil {
		return err
	}
	if !res.IsDeleted() {
		return validationErr("only items in the trash can be permanently deleted")
	}

	var levels [][]uuid.UUID
	var files []models.File
	switch res.Type {
	case models.ResourceFile:
		files = []models.File{*res.File}
	case models.ResourceFolder:
		levels, err = folderLevels(ctx, s.Store, res.ID(), repository.AnyState)
		if err != nil {
			return storeErr(err)
		}
		files, err = s.Store.FilesInFolders(ctx, flatten(levels), repository.AnyState)
		if err != nil {
			return storeErr(err)
		}
	default:
		return validationErr("unknown resource type %q", res.Type)
	}

	ids := fileIDs(files)
	versions, err := s.Store.VersionsForFiles(ctx, ids)
	if err != nil {
		return storeErr(err)
	}
	keys := storageKeys(files, versions)
	if len(keys) > 0 {
		if err := s.Objects.DeleteObjects(ctx, keys); err != nil {
			logger.ErrorWithUser(actorID.String(), "purge_storage_failed", err, map[string]interface{}{
				"resource": ref.String(),
				"objects":  len(keys),
			})
			return fmt.Errorf("%w: deleting storage objects: %v", ErrTransient, err)
		}
	}

	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.DeleteVersionsForFiles(ctx, ids); err != nil {
			return err
		}
		if err := tx.DeleteFiles(ctx, ids); err != nil {
			return err
		}
		if err := tx.DeleteReferences(ctx, models.ResourceFile, ids); err != nil {
			return err
		}
		for i := len(levels) - 1; i >= 0; i-- {
			if err := tx.DeleteFolders(ctx, levels[i]); err != nil {
				return err
			}
		}
		return tx.DeleteReferences(ctx, models.ResourceFolder, flatten(levels))
	})
	if err != nil {
		return storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditResourcePurge, res, map[string]interface{}{
		"folders": len(flatten(levels)),
		"files":   len(files),
		"objects": len(keys),
	}))
	return nil
}

type FolderListing struct {
	Folder  *models.Folder  `json:"folder"`
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}

// ListFolder returns the live subfolders and ready files of folderID, or of
// the actor's top level when folderID is nil.
func (s *LifecycleService) ListFolder(ctx context.Context, actorID uuid.UUID, folderID *uuid.UUID) (*FolderListing, error) {
	listing := &FolderListing{}
	scope := repository.ChildScope{OwnerID: actorID}
	if folderID != nil {
		res, err := s.Access.Authorize(ctx, actorID, folderRef(*folderID), models.ActionRead)
		if err != nil {
			return nil, err
		}
		listing.Folder = res.Folder
		scope.ParentID = folderID
	}

	folders, err := s.Store.ListChildFolders(ctx, scope)
	if err != nil {
		return nil, storeErr(err)
	}
	files, err := s.Store.ListChildFiles(ctx, scope, models.UploadStatusReady)
	if err != nil {
		return nil, storeErr(err)
	}
	listing.Folders = folders
	listing.Files = files
	return listing, nil
}

// FolderPath returns the breadcrumb trail from the top level down to
// folderID. The trail starts at the highest ancestor the actor can read.
func (s *LifecycleService) FolderPath(ctx context.Context, actorID, folderID uuid.UUID) ([]models.Folder, error) {
	res, err := s.Access.Authorize(ctx, actorID, folderRef(folderID), models.ActionRead)
	if err != nil {
		return nil, err
	}
	bound, err := s.Store.CountFolders(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	path := []models.Folder{*res.Folder}
	next := res.Folder.ParentID
	for next != nil {
		if int64(len(path)) > bound {
			return nil, fmt.Errorf("%w: folder ancestry of %s does not terminate", ErrIntegrity, folderID)
		}
		role, parent, err := s.Access.Resolve(ctx, actorID, folderRef(*next))
		if err != nil || !role.Permits(models.ActionRead) {
			break
		}
		path = append(path, *parent.Folder)
		next = parent.Folder.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// folderLevels returns the descendant closure of rootID in breadth-first
// levels, rootID alone in the first level. Only children in the given state
// (and accepted by keep, when set) are followed.
func folderLevels(ctx context.Context, store repository.Store, rootID uuid.UUID, state repository.DeletionState) ([][]uuid.UUID, error) {
	levels := [][]uuid.UUID{{rootID}}
	seen := map[uuid.UUID]bool{rootID: true}
	frontier := levels[0]

	for len(frontier) > 0 {
		children, err := store.ChildFolders(ctx, frontier, state)
		if err != nil {
			return nil, err
		}
		var next []uuid.UUID
		for i := range children {
			child := &children[i]
			if seen[child.ID] {
				return nil, fmt.Errorf("%w: folder %s reached twice below %s", ErrIntegrity, child.ID, rootID)
			}
			seen[child.ID] = true
			next = append(next, child.ID)
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}
	return levels, nil
}

func flatten(levels [][]uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for _, level := range levels {
		ids = append(ids, level...)
	}
	return ids
}

func fileIDs(files []models.File) []uuid.UUID {
	ids := make([]uuid.UUID, len(files))
	for i := range files {
		ids[i] = files[i].ID
	}
	return ids
}

func storageKeys(files []models.File, versions []models.FileVersion) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(key string) {
		if key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for i := range files {
		add(files[i].StorageKey)
	}
	for i := range versions {
		add(versions[i].StorageKey)
	}
	return keys
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
