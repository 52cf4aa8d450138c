package handlers

import (
	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FoldersHandler struct {
	Lifecycle *services.LifecycleService
}

func NewFoldersHandler(lifecycle *services.LifecycleService) *FoldersHandler {
	return &FoldersHandler{Lifecycle: lifecycle}
}

type createFolderRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	ParentID *uuid.UUID `json:"parentID"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// moveRequest targets the top level when ParentID is null.
type moveRequest struct {
	ParentID *uuid.UUID `json:"parentID"`
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	var req createFolderRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	folder, err := h.Lifecycle.CreateFolder(c.UserContext(), currentUser.ID, req.Name, req.ParentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, folder)
}

// ListRoot lists the caller's own top level.
func (h *FoldersHandler) ListRoot(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	listing, err := h.Lifecycle.ListFolder(c.UserContext(), currentUser.ID, nil)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, listing)
}

func (h *FoldersHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid folder id", nil)
	}

	listing, err := h.Lifecycle.ListFolder(c.UserContext(), currentUser.ID, &folderID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, listing)
}

func (h *FoldersHandler) Path(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid folder id", nil)
	}

	path, err := h.Lifecycle.FolderPath(c.UserContext(), currentUser.ID, folderID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, path)
}

func (h *FoldersHandler) Rename(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid folder id", nil)
	}
	var req renameRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	folder, err := h.Lifecycle.RenameFolder(c.UserContext(), currentUser.ID, folderID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, folder)
}

func (h *FoldersHandler) Move(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid folder id", nil)
	}
	var req moveRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	folder, err := h.Lifecycle.MoveFolder(c.UserContext(), currentUser.ID, folderID, req.ParentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, folder)
}
