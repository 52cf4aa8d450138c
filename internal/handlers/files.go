package handlers

import (
	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilesHandler struct {
	Lifecycle *services.LifecycleService
	Versions  *services.VersionService
}

func NewFilesHandler(lifecycle *services.LifecycleService, versions *services.VersionService) *FilesHandler {
	return &FilesHandler{Lifecycle: lifecycle, Versions: versions}
}

type initUploadRequest struct {
	Name      string     `json:"name" validate:"required,max=255"`
	MimeType  string     `json:"mimeType" validate:"max=255"`
	SizeBytes int64      `json:"sizeBytes" validate:"gte=0"`
	FolderID  *uuid.UUID `json:"folderID"`
}

type completeUploadRequest struct {
	Checksum *string `json:"checksum" validate:"omitempty,max=128"`
}

func (h *FilesHandler) fileID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := parseUUID(c.Params("id"))
	return id, err == nil
}

func invalidFileID(c *fiber.Ctx) error {
	return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid file id", nil)
}

func (h *FilesHandler) InitUpload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	var req initUploadRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ticket, err := h.Versions.InitUpload(c.UserContext(), currentUser.ID, services.UploadRequest{
		Name:      req.Name,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		FolderID:  req.FolderID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, ticket)
}

func (h *FilesHandler) CompleteUpload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}
	var req completeUploadRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	file, err := h.Versions.CompleteUpload(c.UserContext(), currentUser.ID, fileID, req.Checksum)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, file)
}

// Get returns the file with the caller's role and a download URL.
func (h *FilesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}

	detail, err := h.Versions.GetFile(c.UserContext(), currentUser.ID, fileID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, detail)
}

func (h *FilesHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}

	url, err := h.Versions.DownloadURL(c.UserContext(), currentUser.ID, fileID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": url})
}

func (h *FilesHandler) Rename(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}
	var req renameRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	file, err := h.Lifecycle.RenameFile(c.UserContext(), currentUser.ID, fileID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, file)
}

func (h *FilesHandler) Move(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}
	var req moveRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	file, err := h.Lifecycle.MoveFile(c.UserContext(), currentUser.ID, fileID, req.ParentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, file)
}

func (h *FilesHandler) ListVersions(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}

	versions, err := h.Versions.ListVersions(c.UserContext(), currentUser.ID, fileID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, versions)
}

func (h *FilesHandler) Revert(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	fileID, ok := h.fileID(c)
	if !ok {
		return invalidFileID(c)
	}
	versionID, err := parseUUID(c.Params("versionId"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid version id", nil)
	}

	version, err := h.Versions.Revert(c.UserContext(), currentUser.ID, fileID, versionID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, version)
}
