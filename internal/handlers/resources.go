package handlers

import (
	"context"

	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ResourcesHandler serves operations that apply to files and folders alike,
// addressed as /resources/:type/:id.
type ResourcesHandler struct {
	AccessSvc *services.AccessService
	Lifecycle *services.LifecycleService
	Stars     *services.StarService
	Activity  *services.ActivityService
}

func NewResourcesHandler(access *services.AccessService, lifecycle *services.LifecycleService, stars *services.StarService, activity *services.ActivityService) *ResourcesHandler {
	return &ResourcesHandler{AccessSvc: access, Lifecycle: lifecycle, Stars: stars, Activity: activity}
}

// Access reports the caller's effective role. Resources the caller cannot
// see are reported as not found.
func (h *ResourcesHandler) Access(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}

	role, res, err := h.AccessSvc.Resolve(c.UserContext(), currentUser.ID, ref)
	if err != nil {
		return respondError(c, err)
	}
	if role == models.RoleNone {
		return respondError(c, services.ErrNotFound)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"role": role, "resource": res})
}

func (h *ResourcesHandler) ListActivity(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}

	activities, err := h.Activity.ListActivity(c.UserContext(), currentUser.ID, ref, c.QueryInt("limit"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, activities)
}

func (h *ResourcesHandler) Delete(c *fiber.Ctx) error {
	return h.mutate(c, h.Lifecycle.DeleteResource)
}

func (h *ResourcesHandler) Restore(c *fiber.Ctx) error {
	return h.mutate(c, h.Lifecycle.RestoreResource)
}

func (h *ResourcesHandler) Purge(c *fiber.Ctx) error {
	return h.mutate(c, h.Lifecycle.PermanentlyDelete)
}

func (h *ResourcesHandler) Star(c *fiber.Ctx) error {
	return h.mutate(c, h.Stars.Star)
}

func (h *ResourcesHandler) Unstar(c *fiber.Ctx) error {
	return h.mutate(c, h.Stars.Unstar)
}

func (h *ResourcesHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) error) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}

	if err := op(c.UserContext(), currentUser.ID, ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ResourcesHandler) Trash(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	items, err := h.Lifecycle.ListTrash(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, items)
}

func (h *ResourcesHandler) Starred(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	resources, err := h.Stars.ListStarred(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, resources)
}
