package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docshare/drive/internal/config"
	"github.com/docshare/drive/internal/database"
	"github.com/docshare/drive/internal/handlers"
	"github.com/docshare/drive/internal/middleware"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/internal/services"
	"github.com/docshare/drive/internal/storage"
	"github.com/docshare/drive/pkg/logger"
	"github.com/docshare/drive/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.Setup(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		SentryDSN: cfg.Log.SentryDSN,
	})
	defer logger.Flush()

	utils.ConfigureJWT(cfg.JWT.Secret)

	mode, err := services.ParseInheritanceMode(cfg.Access.ShareInheritance)
	if err != nil {
		log.Fatalf("invalid access configuration: %v", err)
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	store := repository.NewGormStore(db)
	auditService := services.NewAuditService(store, cfg.Audit.QueueSize)
	accessService := services.NewAccessService(store, mode)
	lifecycleService := services.NewLifecycleService(store, accessService, storageClient, auditService, cfg.Trash.GraceDays)
	versionService := services.NewVersionService(store, accessService, storageClient, auditService, cfg.Links.UploadTTL, cfg.Links.DownloadTTL)
	linkService := services.NewLinkService(store, accessService, storageClient, auditService, cfg.Links.DownloadTTL)
	shareService := services.NewShareService(store, accessService, auditService)
	starService := services.NewStarService(store, accessService)
	activityService := services.NewActivityService(store, accessService)
	browseService := services.NewBrowseService(store, cfg.Quota.Bytes)

	authMiddleware := middleware.NewAuthMiddleware(store)

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.Register(app, handlers.Handlers{
		Folders:   handlers.NewFoldersHandler(lifecycleService),
		Files:     handlers.NewFilesHandler(lifecycleService, versionService),
		Resources: handlers.NewResourcesHandler(accessService, lifecycleService, starService, activityService),
		Shares:    handlers.NewSharesHandler(shareService, linkService),
		Browse:    handlers.NewBrowseHandler(browseService),
	}, authMiddleware)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":              cfg.Server.Port,
		"address":           listenAddr,
		"db_driver":         cfg.DB.Driver,
		"share_inheritance": string(mode),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("server_stopping", map[string]interface{}{"signal": sig.String()})
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", err, nil)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := auditService.Close(ctx); err != nil {
		logger.Error("audit_drain_incomplete", err, nil)
	}
}
