package api

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// DatasetPrefix is where the dataset browse API is mounted
const DatasetPrefix = "/api/v1/dataset"

// AppConfig configures the fiber application
type AppConfig struct {
	AppName       string
	CORSOrigins   string
	EnableLogging bool
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	BodyLimit     int // bytes; 0 keeps fiber's default
}

// NewApp creates the fiber application with the standard middleware stack
func NewApp(config AppConfig) *fiber.App {
	if config.AppName == "" {
		config.AppName = "FF6 Dataset API"
	}
	if config.CORSOrigins == "" {
		config.CORSOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               config.AppName,
		DisableStartupMessage: false,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		BodyLimit:             config.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	if config.EnableLogging {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "UTC",
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	return app
}

// SetupRoutes configures all API routes. browse serves the dataset files and
// must route under DatasetPrefix; it may be nil.
func SetupRoutes(app *fiber.App, h *Handlers, storageHandler *StorageHandler, browse http.Handler) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	builds := v1.Group("/builds")
	builds.Post("/", h.StartBuild)
	builds.Get("/:id", h.GetBuild)

	storage := v1.Group("/storage")
	storage.Get("/snapshots", storageHandler.GetSnapshots)
	storage.Get("/metrics", storageHandler.GetStorageMetrics)
	storage.Get("/health", storageHandler.GetStorageHealth)
	storage.Delete("/metrics", storageHandler.ClearMetrics)

	if browse != nil {
		app.All(DatasetPrefix+"/*", adaptor.HTTPHandler(browse))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "FF6 Dataset",
			"version": "0.1.0",
			"dataset": DatasetPrefix,
			"builds":  "/api/v1/builds",
		})
	})
}
