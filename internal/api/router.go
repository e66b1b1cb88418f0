package api

import (
	"github.com/DylanFeger/askeuno-sub001/docs"
	"github.com/DylanFeger/askeuno-sub001/internal/api/handlers"
	"github.com/DylanFeger/askeuno-sub001/pkg/auth"
	"github.com/DylanFeger/askeuno-sub001/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	sourceHandler *handlers.DataSourceHandler,
	chatHandler *handlers.ChatHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
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

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Swagger - importing docs registers the spec through init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	sources := protected.Group("/datasources")
	sources.Post("/upload", sourceHandler.UploadSource)
	sources.Post("/connect", sourceHandler.ConnectSource)
	sources.Get("", sourceHandler.ListSources)

	conversations := protected.Group("/conversations")
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("", chatHandler.ListConversations)
	conversations.Get("/:id/messages", chatHandler.ListMessages)
	conversations.Post("/:id/sources", sourceHandler.AttachSource)

	protected.Post("/chat", chatHandler.Chat)

	return app
}
