package handlers

import (
	"time"

	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// linkPasswordHeader carries the password for protected links so it never
// lands in URLs or access logs.
const linkPasswordHeader = "X-Link-Password"

type SharesHandler struct {
	Shares *services.ShareService
	Links  *services.LinkService
}

func NewSharesHandler(shares *services.ShareService, links *services.LinkService) *SharesHandler {
	return &SharesHandler{Shares: shares, Links: links}
}

type createShareRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,oneof=viewer editor"`
}

type createLinkRequest struct {
	ExpiresAt *time.Time `json:"expiresAt"`
	Password  string     `json:"password" validate:"max=72"`
}

func (h *SharesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	var req createShareRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	share, err := h.Shares.CreateShare(c.UserContext(), currentUser.ID, ref, req.Email, models.Role(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, share)
}

func (h *SharesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}

	shares, err := h.Shares.ListShares(c.UserContext(), currentUser.ID, ref)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, shares)
}

func (h *SharesHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	shareID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid share id", nil)
	}

	if err := h.Shares.RevokeShare(c.UserContext(), currentUser.ID, shareID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SharesHandler) SharedWithMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	items, err := h.Shares.SharedWithMe(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, items)
}

func (h *SharesHandler) CreateLink(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	var req createLinkRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	link, err := h.Links.CreateLink(c.UserContext(), currentUser.ID, ref, services.CreateLinkRequest{
		ExpiresAt: req.ExpiresAt,
		Password:  req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, link)
}

func (h *SharesHandler) ListLinks(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	ref, err := parseRef(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}

	links, err := h.Links.ListLinks(c.UserContext(), currentUser.ID, ref)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, links)
}

func (h *SharesHandler) DeleteLink(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}
	linkID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid link id", nil)
	}

	if err := h.Links.DeleteLink(c.UserContext(), currentUser.ID, linkID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResolveLink is public. A protected link answers 401 PASSWORD_REQUIRED until
// the password arrives in the X-Link-Password header.
func (h *SharesHandler) ResolveLink(c *fiber.Ctx) error {
	var password *string
	if value := c.Get(linkPasswordHeader); value != "" {
		password = &value
	}

	resolution, err := h.Links.ResolveLink(c.UserContext(), c.Params("token"), password)
	if err != nil {
		return respondError(c, err)
	}
	if resolution.PasswordRequired {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "PASSWORD_REQUIRED", "password required", fiber.Map{
			"requiresPassword": true,
		})
	}
	return utils.Success(c, fiber.StatusOK, resolution)
}
