package handlers

import (
	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type BrowseHandler struct {
	Browse *services.BrowseService
}

func NewBrowseHandler(browse *services.BrowseService) *BrowseHandler {
	return &BrowseHandler{Browse: browse}
}

// Search handles GET /search?q=&type=&starred=&limit=.
func (h *BrowseHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	query := services.SearchQuery{
		Term:        c.Query("q"),
		Type:        c.Query("type"),
		StarredOnly: c.QueryBool("starred"),
		Limit:       c.QueryInt("limit"),
	}
	results, err := h.Browse.Search(c.UserContext(), currentUser.ID, query)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, results)
}

func (h *BrowseHandler) Recent(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	results, err := h.Browse.RecentFiles(c.UserContext(), currentUser.ID, c.QueryInt("limit"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, results)
}

func (h *BrowseHandler) Usage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return unauthorized(c)
	}

	usage, err := h.Browse.StorageUsage(c.UserContext(), currentUser.ID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, usage)
}
