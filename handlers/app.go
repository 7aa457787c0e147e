// handlers/app.go - Fiber application wiring
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"trainvoc/game"
	"trainvoc/handlers/admin"
	"trainvoc/middleware"
)

type AppConfig struct {
	Registry    *game.Registry
	Tokens      *middleware.SessionTokens
	HTTPLimits  *middleware.RateLimiter
	WSLimits    *middleware.RateLimiter
	Words       LevelLister
	History     HistoryReader
	PublicURL   string
	CORSOrigins string
	SendBuffer  int
	Production  bool
	AccessLog   bool

	AdminKey string
	Cleanup  admin.Cleaner
}

// NewApp builds the HTTP application: REST under /api, realtime on /ws.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(cfg.Production),
		BodyLimit:    64 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
		}))
	}

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: corsOrigins != "*",
	}))

	if cfg.HTTPLimits != nil {
		app.Use(middleware.FiberRateLimitMiddleware(cfg.HTTPLimits))
	}

	rooms := NewRoomHandler(cfg.Registry, cfg.Tokens, cfg.Words, cfg.History, cfg.PublicURL)
	app.Get("/health", rooms.Health)
	api := app.Group("/api")
	rooms.Register(api)
	admin.New(cfg.Registry, cfg.Cleanup).Register(api, cfg.AdminKey)

	wsLimits := cfg.WSLimits
	if wsLimits == nil {
		wsLimits = middleware.NewRateLimiter(5, 10)
	}
	ws := NewMultiplayerHandler(cfg.Registry, cfg.Tokens, wsLimits, cfg.SendBuffer)
	app.Use("/ws", ws.Upgrade)
	app.Get("/ws", ws.Handler())

	return app
}

func errorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		// Don't expose internal errors in production
		if production && code == fiber.StatusInternalServerError {
			message = "An error occurred. Please try again later."
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
