// Package repository is the persistence boundary of the drive engine. Services
// only talk to the database through Store.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate key")
	ErrLockConflict = errors.New("lock conflict")
)

// DeletionState filters rows by their soft-delete flag.
type DeletionState int

const (
	Live DeletionState = iota
	Trashed
	AnyState
)

// ChildScope selects the direct children of ParentID. At the root level
// (ParentID nil) only rows owned by OwnerID are returned.
type ChildScope struct {
	ParentID *uuid.UUID
	OwnerID  uuid.UUID
}

// UsageTotals sums an owner's live rows.
type UsageTotals struct {
	TotalBytes  int64
	FileCount   int64
	FolderCount int64
}

type Store interface {
	// WithTx runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on panic.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	GetFolder(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	GetFolderForUpdate(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	CreateFolder(ctx context.Context, folder *models.Folder) error
	UpdateFolder(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CountFolders(ctx context.Context) (int64, error)
	AllFolders(ctx context.Context) ([]models.Folder, error)
	FolderNameTaken(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	ChildFolders(ctx context.Context, parentIDs []uuid.UUID, state DeletionState) ([]models.Folder, error)
	ListChildFolders(ctx context.Context, scope ChildScope) ([]models.Folder, error)
	SetFoldersDeleted(ctx context.Context, ids []uuid.UUID, deletedAt *time.Time) error
	DeleteFolders(ctx context.Context, ids []uuid.UUID) error
	TrashedFolders(ctx context.Context, ownerID uuid.UUID) ([]models.Folder, error)

	// SearchFolders and SearchFiles match a case-insensitive substring of the
	// name among the owner's live rows, most recently updated first. Files
	// must be ready.
	SearchFolders(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]models.Folder, error)
	SearchFiles(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]models.File, error)
	RecentFiles(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.File, error)
	UsageTotals(ctx context.Context, ownerID uuid.UUID) (*UsageTotals, error)

	GetFile(ctx context.Context, id uuid.UUID) (*models.File, error)
	GetFileForUpdate(ctx context.Context, id uuid.UUID) (*models.File, error)
	CreateFile(ctx context.Context, file *models.File) error
	UpdateFile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	FilesInFolders(ctx context.Context, folderIDs []uuid.UUID, state DeletionState) ([]models.File, error)
	ListChildFiles(ctx context.Context, scope ChildScope, status models.UploadStatus) ([]models.File, error)
	SetFilesDeleted(ctx context.Context, ids []uuid.UUID, deletedAt *time.Time) error
	DeleteFiles(ctx context.Context, ids []uuid.UUID) error
	TrashedFiles(ctx context.Context, ownerID uuid.UUID) ([]models.File, error)

	GetVersion(ctx context.Context, id uuid.UUID) (*models.FileVersion, error)
	ListVersions(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error)
	VersionsForFiles(ctx context.Context, fileIDs []uuid.UUID) ([]models.FileVersion, error)
	MaxVersionNumber(ctx context.Context, fileID uuid.UUID) (int, error)
	CreateVersion(ctx context.Context, version *models.FileVersion) error
	DeleteVersionsForFiles(ctx context.Context, fileIDs []uuid.UUID) error

	GetShare(ctx context.Context, id uuid.UUID) (*models.Share, error)
	FindShare(ctx context.Context, ref models.ResourceRef, granteeID uuid.UUID) (*models.Share, error)
	CreateShare(ctx context.Context, share *models.Share) error
	UpdateShareRole(ctx context.Context, id uuid.UUID, role models.Role) error
	DeleteShare(ctx context.Context, id uuid.UUID) error
	ListShares(ctx context.Context, ref models.ResourceRef) ([]models.Share, error)
	SharesForGrantee(ctx context.Context, granteeID uuid.UUID) ([]models.Share, error)

	GetLink(ctx context.Context, id uuid.UUID) (*models.LinkShare, error)
	GetLinkByToken(ctx context.Context, token string) (*models.LinkShare, error)
	CreateLink(ctx context.Context, link *models.LinkShare) error
	DeleteLink(ctx context.Context, id uuid.UUID) error
	ListLinks(ctx context.Context, ref models.ResourceRef) ([]models.LinkShare, error)

	CreateStar(ctx context.Context, star *models.Star) error
	DeleteStar(ctx context.Context, userID uuid.UUID, ref models.ResourceRef) error
	ListStars(ctx context.Context, userID uuid.UUID) ([]models.Star, error)

	// DeleteReferences removes shares, link shares and stars that point at
	// any of the given resources.
	DeleteReferences(ctx context.Context, resourceType models.ResourceType, ids []uuid.UUID) error

	CreateActivity(ctx context.Context, activity *models.Activity) error
	ListActivities(ctx context.Context, ref models.ResourceRef, limit int) ([]models.Activity, error)
}
