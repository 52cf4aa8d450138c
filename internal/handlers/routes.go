package handlers

import (
	"github.com/docshare/drive/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Folders   *FoldersHandler
	Files     *FilesHandler
	Resources *ResourcesHandler
	Shares    *SharesHandler
	Browse    *BrowseHandler
}

// Register mounts the drive API under /api.
func Register(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware) {
	api := app.Group("/api")

	api.Get("/public/links/:token", h.Shares.ResolveLink)

	folderRoutes := api.Group("/folders", auth.RequireAuth)
	folderRoutes.Post("/", h.Folders.Create)
	folderRoutes.Get("/", h.Folders.ListRoot)
	folderRoutes.Get("/:id", h.Folders.List)
	folderRoutes.Get("/:id/path", h.Folders.Path)
	folderRoutes.Patch("/:id", h.Folders.Rename)
	folderRoutes.Post("/:id/move", h.Folders.Move)

	fileRoutes := api.Group("/files", auth.RequireAuth)
	fileRoutes.Post("/upload", h.Files.InitUpload)
	fileRoutes.Post("/:id/complete", h.Files.CompleteUpload)
	fileRoutes.Get("/:id", h.Files.Get)
	fileRoutes.Get("/:id/download-url", h.Files.DownloadURL)
	fileRoutes.Patch("/:id", h.Files.Rename)
	fileRoutes.Post("/:id/move", h.Files.Move)
	fileRoutes.Get("/:id/versions", h.Files.ListVersions)
	fileRoutes.Post("/:id/versions/:versionId/revert", h.Files.Revert)

	resourceRoutes := api.Group("/resources/:type/:id", auth.RequireAuth)
	resourceRoutes.Get("/access", h.Resources.Access)
	resourceRoutes.Get("/activity", h.Resources.ListActivity)
	resourceRoutes.Delete("/", h.Resources.Delete)
	resourceRoutes.Post("/restore", h.Resources.Restore)
	resourceRoutes.Delete("/permanent", h.Resources.Purge)
	resourceRoutes.Put("/star", h.Resources.Star)
	resourceRoutes.Delete("/star", h.Resources.Unstar)
	resourceRoutes.Get("/shares", h.Shares.List)
	resourceRoutes.Post("/shares", h.Shares.Create)
	resourceRoutes.Get("/links", h.Shares.ListLinks)
	resourceRoutes.Post("/links", h.Shares.CreateLink)

	api.Delete("/shares/:id", auth.RequireAuth, h.Shares.Revoke)
	api.Delete("/links/:id", auth.RequireAuth, h.Shares.DeleteLink)
	api.Get("/shared", auth.RequireAuth, h.Shares.SharedWithMe)
	api.Get("/starred", auth.RequireAuth, h.Resources.Starred)
	api.Get("/trash", auth.RequireAuth, h.Resources.Trash)
	api.Get("/search", auth.RequireAuth, h.Browse.Search)
	api.Get("/recent", auth.RequireAuth, h.Browse.Recent)
	api.Get("/usage", auth.RequireAuth, h.Browse.Usage)
}
