package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/config"
	"github.com/gorsocial/backend/internal/http/handlers"
	"github.com/gorsocial/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	postHandler *handlers.PostHandler,
	settlementHandler *handlers.SettlementHandler,
	notificationHandler *handlers.NotificationHandler,
	uploadHandler *handlers.UploadHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/verify", authHandler.Verify)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Profile
	protected.Get("/me/profile", profileHandler.Me)
	protected.Put("/me/profile", profileHandler.Update)
	protected.Get("/profiles/:address", profileHandler.Get)
	protected.Post("/profiles/:address/follow", profileHandler.Follow)
	protected.Delete("/profiles/:address/follow", profileHandler.Unfollow)
	protected.Post("/profiles/:address/block", profileHandler.Block)
	protected.Delete("/profiles/:address/block", profileHandler.Unblock)

	// Posts
	protected.Post("/posts", postHandler.Create)
	protected.Get("/posts", postHandler.Feed)
	protected.Get("/posts/:id", postHandler.Get)
	protected.Get("/profiles/:address/posts", postHandler.ByAuthor)
	protected.Post("/posts/:id/like", postHandler.Like)
	protected.Delete("/posts/:id/like", postHandler.Unlike)
	protected.Post("/posts/:id/repost", postHandler.Repost)
	protected.Delete("/posts/:id/repost", postHandler.Unrepost)
	protected.Post("/posts/:id/comments", postHandler.Comment)
	protected.Get("/posts/:id/comments", postHandler.Comments)

	// Wallet and settlements
	protected.Get("/me/wallet", settlementHandler.Wallet)
	protected.Post("/settlements/tip", settlementHandler.Tip)
	protected.Post("/settlements/tickets/buy", settlementHandler.BuyTicket)
	protected.Post("/settlements/tickets/sell", settlementHandler.SellTicket)
	protected.Get("/settlements/stuck", settlementHandler.Stuck)

	// Notifications
	protected.Get("/me/notifications", notificationHandler.List)
	protected.Post("/me/notifications/:id/read", notificationHandler.MarkRead)

	// Uploads
	protected.Post("/uploads/image", uploadHandler.Image)

	// WebSocket sync sessions
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
