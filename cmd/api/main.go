package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/config"
	"github.com/talent-marketplace/backend/internal/db"
	"github.com/talent-marketplace/backend/internal/events"
	apphttp "github.com/talent-marketplace/backend/internal/http"
	"github.com/talent-marketplace/backend/internal/http/handlers"
	"github.com/talent-marketplace/backend/internal/repositories"
	"github.com/talent-marketplace/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	contractRepo := repositories.NewContractRepo(pool)
	milestoneRepo := repositories.NewMilestoneRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	proposalRepo := repositories.NewProposalRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	contractService := services.NewContractService(contractRepo, milestoneRepo, proposalRepo, auditRepo, publisher, log)
	milestoneService := services.NewMilestoneService(contractRepo, milestoneRepo, escrowRepo, auditRepo, publisher, log)
	escrowService := services.NewEscrowService(contractRepo, escrowRepo, auditRepo, publisher, cfg, log)
	adminService := services.NewAdminService(contractRepo, escrowRepo, auditRepo, publisher, log)

	// Handlers
	contractHandler := handlers.NewContractHandler(contractService, log)
	milestoneHandler := handlers.NewMilestoneHandler(milestoneService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	adminHandler := handlers.NewAdminHandler(adminService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, contractHandler, milestoneHandler, escrowHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
