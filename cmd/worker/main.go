package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/config"
	"github.com/talent-marketplace/backend/internal/db"
	"github.com/talent-marketplace/backend/internal/events"
	"github.com/talent-marketplace/backend/internal/linkcheck"
	"github.com/talent-marketplace/backend/internal/models"
	"github.com/talent-marketplace/backend/internal/repositories"
	"github.com/talent-marketplace/backend/internal/services"
)

const jobBatchSize = 100

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	contractRepo := repositories.NewContractRepo(pool)
	milestoneRepo := repositories.NewMilestoneRepo(pool)
	proposalRepo := repositories.NewProposalRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	contractService := services.NewContractService(contractRepo, milestoneRepo, proposalRepo, auditRepo, publisher, log)
	checker := linkcheck.NewChecker(cfg.LinkCheckTimeoutMS, cfg.LinkCheckMaxRetries, log)

	log.Info("worker started")

	timeoutTicker := time.NewTicker(2 * time.Minute)
	overdueTicker := time.NewTicker(10 * time.Minute)
	linkTicker := time.NewTicker(cfg.LinkCheckWindow)
	defer timeoutTicker.Stop()
	defer overdueTicker.Stop()
	defer linkTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-timeoutTicker.C:
			runContractTimeouts(ctx, contractRepo, contractService, cfg, log)
		case <-overdueTicker.C:
			runOverdueMilestones(ctx, milestoneRepo, publisher, cfg, log)
		case <-linkTicker.C:
			runDeliverableLinkChecks(ctx, milestoneRepo, auditRepo, checker, publisher, cfg, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runContractTimeouts cancels offers that sat in sent past the expiry
// window without the talent responding.
func runContractTimeouts(ctx context.Context, contractRepo *repositories.ContractRepo, contractService *services.ContractService, cfg *config.Config, log *zap.Logger) {
	contracts, err := contractRepo.GetTimedOut(ctx, models.ContractStatusSent, cfg.ContractTimeoutSentSeconds)
	if err != nil {
		log.Error("failed to get timed out contracts", zap.Error(err))
		return
	}

	for _, contract := range contracts {
		log.Info("auto-cancelling expired offer", zap.String("contract_id", contract.ID.String()))
		reason := fmt.Sprintf("offer expired after %d seconds without response", cfg.ContractTimeoutSentSeconds)
		if err := contractService.SystemCancel(ctx, contract.ID, reason); err != nil {
			log.Error("failed to cancel contract", zap.String("contract_id", contract.ID.String()), zap.Error(err))
		}
	}
}

// runOverdueMilestones emits an event per milestone still unfinished past
// its due date plus the grace period. Notification only, no state change.
func runOverdueMilestones(ctx context.Context, milestoneRepo *repositories.MilestoneRepo, publisher events.Publisher, cfg *config.Config, log *zap.Logger) {
	milestones, err := milestoneRepo.ListOverdue(ctx, cfg.MilestoneOverdueGrace, jobBatchSize)
	if err != nil {
		log.Error("failed to list overdue milestones", zap.Error(err))
		return
	}

	for _, m := range milestones {
		_ = publisher.Publish(ctx, events.StreamContract, events.Event{
			Type: events.EventMilestoneOverdue,
			Payload: map[string]any{
				"contract_id":  m.ContractID.String(),
				"milestone_id": m.ID.String(),
				"due_date":     m.DueDate,
				"status":       m.Status,
			},
		})
	}

	if len(milestones) > 0 {
		log.Info("overdue milestones flagged", zap.Int("count", len(milestones)))
	}
}

// runDeliverableLinkChecks verifies that deliverable URLs on recently
// submitted milestones still resolve, so a manager reviewing work is not
// approving dead links.
func runDeliverableLinkChecks(ctx context.Context, milestoneRepo *repositories.MilestoneRepo, auditRepo *repositories.AuditRepo, checker *linkcheck.Checker, publisher events.Publisher, cfg *config.Config, log *zap.Logger) {
	cutoff := time.Now().Add(-cfg.LinkCheckWindow)
	milestones, err := milestoneRepo.ListSubmittedSince(ctx, cutoff, jobBatchSize)
	if err != nil {
		log.Error("failed to list submitted milestones", zap.Error(err))
		return
	}

	for _, m := range milestones {
		if len(m.Deliverables) == 0 {
			continue
		}

		for _, result := range checker.CheckAll(ctx, m.Deliverables) {
			if result.Reachable {
				continue
			}

			log.Warn("deliverable link unreachable",
				zap.String("milestone_id", m.ID.String()),
				zap.String("url", result.URL),
			)

			milestoneID := m.ID
			_ = auditRepo.Log(ctx, models.AuditLog{
				ActorType:  "system",
				Action:     "deliverable_link_broken",
				EntityType: "milestone",
				EntityID:   &milestoneID,
				Meta: map[string]any{
					"contract_id": m.ContractID.String(),
					"url":         result.URL,
				},
			})
			_ = publisher.Publish(ctx, events.StreamContract, events.Event{
				Type: events.EventDeliverableLinkBroken,
				Payload: map[string]any{
					"contract_id":  m.ContractID.String(),
					"milestone_id": m.ID.String(),
					"url":          result.URL,
				},
			})
		}
	}
}
