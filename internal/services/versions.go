package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/docshare/drive/pkg/utils"
	"github.com/google/uuid"
)

// versionAttempts bounds retries when two writers race for the same version
// number on one file.
const versionAttempts = 3

type VersionService struct {
	Store       repository.Store
	Access      *AccessService
	Objects     ObjectStore
	Audit       Auditor
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

func NewVersionService(store repository.Store, access *AccessService, objects ObjectStore, auditor Auditor, uploadTTL, downloadTTL time.Duration) *VersionService {
	return &VersionService{
		Store:       store,
		Access:      access,
		Objects:     objects,
		Audit:       auditor,
		UploadTTL:   uploadTTL,
		DownloadTTL: downloadTTL,
	}
}

type UploadRequest struct {
	Name      string
	MimeType  string
	SizeBytes int64
	FolderID  *uuid.UUID
}

type UploadTicket struct {
	File      *models.File `json:"file"`
	UploadURL string       `json:"uploadUrl"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// InitUpload registers a new file and returns a presigned URL the client
// uploads the bytes to. The file stays invisible in listings until
// CompleteUpload marks it ready.
func (s *VersionService) InitUpload(ctx context.Context, actorID uuid.UUID, req UploadRequest) (*UploadTicket, error) {
	name, err := cleanName(utils.SanitizeFilename(req.Name))
	if err != nil {
		return nil, err
	}
	if req.SizeBytes < 0 {
		return nil, validationErr("size must not be negative")
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	ownerID := actorID
	if req.FolderID != nil {
		folder, err := s.Access.Authorize(ctx, actorID, folderRef(*req.FolderID), models.ActionCreate)
		if err != nil {
			return nil, err
		}
		ownerID = folder.OwnerID()
	}

	file := &models.File{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		Name:         name,
		OwnerID:      ownerID,
		FolderID:     req.FolderID,
		MimeType:     mimeType,
		SizeBytes:    req.SizeBytes,
		UploadStatus: models.UploadStatusPending,
	}
	file.StorageKey = utils.StorageKey(ownerID, req.FolderID, file.ID, name)
	if err := s.Store.CreateFile(ctx, file); err != nil {
		return nil, storeErr(err)
	}

	url, err := s.Objects.PresignedPutURL(ctx, file.StorageKey, s.UploadTTL)
	if err != nil {
		logger.ErrorWithUser(actorID.String(), "upload_url_failed", err, map[string]interface{}{
			"file_id": file.ID.String(),
		})
		if delErr := s.Store.DeleteFiles(ctx, []uuid.UUID{file.ID}); delErr != nil {
			logger.Error("upload_cleanup_failed", delErr, map[string]interface{}{"file_id": file.ID.String()})
		}
		return nil, fmt.Errorf("%w: presigning upload: %v", ErrTransient, err)
	}

	if err := s.Store.UpdateFile(ctx, file.ID, map[string]interface{}{"upload_status": models.UploadStatusUploading}); err != nil {
		return nil, storeErr(err)
	}
	file.UploadStatus = models.UploadStatusUploading

	return &UploadTicket{
		File:      file,
		UploadURL: url,
		ExpiresAt: time.Now().UTC().Add(s.UploadTTL),
	}, nil
}

// CompleteUpload marks an uploaded file ready and records its first version.
func (s *VersionService) CompleteUpload(ctx context.Context, actorID, fileID uuid.UUID, checksum *string) (*models.File, error) {
	res, err := s.Access.Authorize(ctx, actorID, fileRef(fileID), models.ActionCreate)
	if err != nil {
		return nil, err
	}

	var file *models.File
	err = s.withVersionRetry(ctx, func(tx repository.Store) error {
		f, err := tx.GetFileForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		if f.UploadStatus == models.UploadStatusReady {
			return fmt.Errorf("%w: file already uploaded", ErrConflict)
		}

		version, err := appendVersion(ctx, tx, f.ID, f.StorageKey, f.SizeBytes, checksum)
		if err != nil {
			return err
		}
		err = tx.UpdateFile(ctx, f.ID, map[string]interface{}{
			"upload_status":      models.UploadStatusReady,
			"checksum":           checksum,
			"current_version_id": version.ID,
		})
		if err != nil {
			return err
		}
		f.UploadStatus = models.UploadStatusReady
		f.Checksum = checksum
		f.CurrentVersionID = &version.ID
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(auditEntry(actorID, AuditFileUpload, res, map[string]interface{}{"folder_id": uuidString(file.FolderID)}))
	return file, nil
}

// ListVersions returns the file's history, newest first.
func (s *VersionService) ListVersions(ctx context.Context, actorID, fileID uuid.UUID) ([]models.FileVersion, error) {
	if _, err := s.Access.Authorize(ctx, actorID, fileRef(fileID), models.ActionRead); err != nil {
		return nil, err
	}
	versions, err := s.Store.ListVersions(ctx, fileID)
	if err != nil {
		return nil, storeErr(err)
	}
	return versions, nil
}

// Revert makes versionID's content current again by appending a new version
// that carries it. Existing versions are never changed. A file with no
// recorded current version gets its present content snapshotted first so
// nothing is lost.
func (s *VersionService) Revert(ctx context.Context, actorID, fileID, versionID uuid.UUID) (*models.FileVersion, error) {
	res, err := s.Access.Authorize(ctx, actorID, fileRef(fileID), models.ActionRevert)
	if err != nil {
		return nil, err
	}
	if res.File.UploadStatus != models.UploadStatusReady {
		return nil, validationErr("file upload is not complete")
	}

	var created, target *models.FileVersion
	err = s.withVersionRetry(ctx, func(tx repository.Store) error {
		file, err := tx.GetFileForUpdate(ctx, fileID)
		if err != nil {
			return err
		}
		target, err = tx.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if target.FileID != file.ID {
			return ErrNotFound
		}

		if file.CurrentVersionID == nil {
			if _, err := appendVersion(ctx, tx, file.ID, file.StorageKey, file.SizeBytes, file.Checksum); err != nil {
				return err
			}
		}

		created, err = appendVersion(ctx, tx, file.ID, target.StorageKey, target.SizeBytes, target.Checksum)
		if err != nil {
			return err
		}
		return tx.UpdateFile(ctx, file.ID, map[string]interface{}{
			"storage_key":        target.StorageKey,
			"size_bytes":         target.SizeBytes,
			"checksum":           target.Checksum,
			"current_version_id": created.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(auditEntry(actorID, AuditVersionRevert, res, map[string]interface{}{
		"reverted_to_version": target.VersionNumber,
		"new_version":         created.VersionNumber,
	}))
	return created, nil
}

// DownloadURL returns a short-lived URL for the file's current content.
func (s *VersionService) DownloadURL(ctx context.Context, actorID, fileID uuid.UUID) (string, error) {
	res, err := s.Access.Authorize(ctx, actorID, fileRef(fileID), models.ActionRead)
	if err != nil {
		return "", err
	}
	download, err := s.presignDownload(ctx, res.File)
	if err != nil {
		return "", err
	}
	return download.URL, nil
}

// FileDetail is a readable file with the caller's role and a fresh download
// URL.
type FileDetail struct {
	File     *models.File `json:"file"`
	Role     models.Role  `json:"role"`
	Download *Download    `json:"download"`
}

func (s *VersionService) GetFile(ctx context.Context, actorID, fileID uuid.UUID) (*FileDetail, error) {
	role, res, err := s.Access.Resolve(ctx, actorID, fileRef(fileID))
	if err != nil {
		return nil, err
	}
	if role == models.RoleNone {
		return nil, ErrNotFound
	}
	download, err := s.presignDownload(ctx, res.File)
	if err != nil {
		return nil, err
	}
	return &FileDetail{File: res.File, Role: role, Download: download}, nil
}

// presignDownload only serves files whose upload completed.
func (s *VersionService) presignDownload(ctx context.Context, file *models.File) (*Download, error) {
	if file.UploadStatus != models.UploadStatusReady {
		return nil, ErrNotFound
	}
	expiresAt := time.Now().UTC().Add(s.DownloadTTL)
	url, err := s.Objects.PresignedGetURL(ctx, file.StorageKey, s.DownloadTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: presigning download: %v", ErrTransient, err)
	}
	return &Download{URL: url, ExpiresAt: expiresAt}, nil
}

// withVersionRetry runs fn in a transaction and retries when a concurrent
// writer took the version number first.
func (s *VersionService) withVersionRetry(ctx context.Context, fn func(tx repository.Store) error) error {
	var err error
	for attempt := 1; attempt <= versionAttempts; attempt++ {
		err = s.Store.WithTx(ctx, fn)
		if !errors.Is(err, repository.ErrDuplicate) {
			return storeErr(err)
		}
		logger.Warn("version_number_conflict", map[string]interface{}{"attempt": attempt})
	}
	return fmt.Errorf("%w: version number contention: %v", ErrConflict, err)
}

func appendVersion(ctx context.Context, tx repository.Store, fileID uuid.UUID, key string, size int64, checksum *string) (*models.FileVersion, error) {
	max, err := tx.MaxVersionNumber(ctx, fileID)
	if err != nil {
		return nil, err
	}
	version := &models.FileVersion{
		FileID:        fileID,
		VersionNumber: max + 1,
		StorageKey:    key,
		SizeBytes:     size,
		Checksum:      checksum,
	}
	if err := tx.CreateVersion(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}
