package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/config"
	"github.com/talent-marketplace/backend/internal/http/handlers"
	"github.com/talent-marketplace/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	contractHandler *handlers.ContractHandler,
	milestoneHandler *handlers.MilestoneHandler,
	escrowHandler *handlers.EscrowHandler,
	adminHandler *handlers.AdminHandler,
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

	// Payment gateway callback, authenticated by static key.
	internal := app.Group("/internal", middleware.GatewayKeyMiddleware(cfg))
	internal.Post("/escrow/:contractId/fund", escrowHandler.Fund)
	internal.Post("/escrow/:contractId/refund", escrowHandler.Refund)

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Contracts
	protected.Post("/contracts", contractHandler.Create)
	protected.Get("/contracts", contractHandler.List)
	protected.Get("/contracts/:id", contractHandler.Get)
	protected.Get("/contracts/:id/events", contractHandler.GetEvents)
	protected.Post("/contracts/:id/send", contractHandler.Send)
	protected.Post("/contracts/:id/accept", contractHandler.Accept)
	protected.Post("/contracts/:id/decline", contractHandler.Decline)
	protected.Post("/contracts/:id/cancel", contractHandler.Cancel)

	// Milestones
	protected.Post("/contracts/:id/milestones/:mid/start", milestoneHandler.Start)
	protected.Post("/contracts/:id/milestones/:mid/submit", milestoneHandler.Submit)
	protected.Post("/contracts/:id/milestones/:mid/approve", milestoneHandler.Approve)
	protected.Post("/contracts/:id/milestones/:mid/request-revision", milestoneHandler.RequestRevision)
	protected.Post("/contracts/:id/milestones/:mid/retry-payout", milestoneHandler.RetryPayout)

	// Escrow (read-only for parties; funding goes through the gateway)
	protected.Get("/contracts/:id/escrow", escrowHandler.Get)
	protected.Get("/contracts/:id/escrow/transactions", escrowHandler.ListTransactions)

	// Admin
	admin := protected.Group("/admin", middleware.AdminMiddleware(cfg))
	admin.Get("/contracts/:id", adminHandler.GetContract)
	admin.Get("/contracts/:id/escrow", adminHandler.GetEscrow)
	admin.Post("/contracts/:id/force-status", adminHandler.ForceStatus)
	admin.Post("/contracts/:id/force-complete", adminHandler.ForceComplete)
	admin.Post("/contracts/:id/escrow/emergency-release", adminHandler.EmergencyRelease)
	admin.Post("/contracts/:id/escrow/force-refund", adminHandler.ForceRefund)
	admin.Post("/contracts/:id/escrow/hold", adminHandler.Hold)
	admin.Post("/contracts/:id/escrow/release-hold", adminHandler.ReleaseHold)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
