package server

import (
	"watchlist/pkg/handlers"
	"watchlist/pkg/metrics"
	"watchlist/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Name    string
	Origins []string
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		ReduceMemoryUsage:     true,
		DisableStartupMessage: true,
		ErrorHandler:          handlers.NewErrorHandler(opts.Logger),
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(opts.Logger, opts.Metrics))
	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(middleware.CORSConfig(opts.Origins)))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": opts.Name})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	return app
}
