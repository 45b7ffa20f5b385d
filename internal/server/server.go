package server

import (
	"log"

	"video-segmentation-be/internal/bootstrap"
	"video-segmentation-be/internal/config"
	"video-segmentation-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	// Initialize Fiber App
	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // raw uploads are trimmed server-side
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Static video/poster delivery; paths mirror the catalog's URL scheme.
	app.Static("/"+cfg.Data.GalleryPrefix, cfg.Data.GalleryPath)
	app.Static("/"+cfg.Data.PostersPrefix, cfg.Data.PostersPath)
	app.Static("/"+cfg.Data.UploadsPrefix, cfg.Data.UploadsPath)

	app.Get("/healthy", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status":    "ok",
			"observers": container.WebSocketHub.ClientCount(),
		})
	})

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	c.SessionController.RegisterRoutes(app)
	c.SegmentationController.RegisterRoutes(app)
	c.VideoController.RegisterRoutes(app)

	c.NotificationHandler.RegisterRoutes(app.Group("/api"))
}
