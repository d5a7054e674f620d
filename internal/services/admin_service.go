package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/talent-marketplace/backend/internal/events"
	"github.com/talent-marketplace/backend/internal/models"
	"github.com/talent-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

// AdminService is the dispute/override controller: a privileged command set
// over the same aggregates. It bypasses party authorization and status
// gating, but the escrow balance invariant has no escape hatch here either.
type AdminService struct {
	contractRepo *repositories.ContractRepo
	escrowRepo   *repositories.EscrowRepo
	auditRepo    *repositories.AuditRepo
	publisher    events.Publisher
	log          *zap.Logger
}

func NewAdminService(
	contractRepo *repositories.ContractRepo,
	escrowRepo *repositories.EscrowRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		contractRepo: contractRepo,
		escrowRepo:   escrowRepo,
		auditRepo:    auditRepo,
		publisher:    publisher,
		log:          log,
	}
}

func (s *AdminService) audit(ctx context.Context, adminID uuid.UUID, action, entityType string, entityID *uuid.UUID, meta map[string]any) {
	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   "admin",
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Meta:        meta,
	})
}

func (s *AdminService) publishOverride(ctx context.Context, action string, contractID uuid.UUID, extra map[string]any) {
	payload := map[string]any{
		"action":      action,
		"contract_id": contractID.String(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type:    events.EventAdminOverride,
		Payload: payload,
	})
}

// ForceStatus sets the contract to any declared status, skipping the
// transition table. No money moves here.
func (s *AdminService) ForceStatus(ctx context.Context, adminID, contractID uuid.UUID, newStatus string, notes *string) error {
	if !models.IsValidContractStatus(newStatus) {
		return fmt.Errorf("%w: unknown contract status %q", models.ErrValidation, newStatus)
	}
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}

	if err := s.contractRepo.ForceStatus(ctx, contractID, newStatus, notes); err != nil {
		return err
	}

	s.audit(ctx, adminID, "admin_force_status", "contract", &contractID, map[string]any{
		"old_status": contract.Status,
		"new_status": newStatus,
	})
	s.publishOverride(ctx, "force_status", contractID, map[string]any{
		"old_status": contract.Status,
		"new_status": newStatus,
	})
	return nil
}

// EmergencyRelease pays out past an admin hold. The available-balance
// precondition is identical to a normal release.
func (s *AdminService) EmergencyRelease(ctx context.Context, adminID, contractID uuid.UUID, amount decimal.Decimal, reason string) (*models.EscrowAccount, error) {
	desc := fmt.Sprintf("emergency release by admin %s: %s", adminID, reason)
	account, err := s.escrowRepo.AdminRelease(ctx, contractID, amount, desc)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, adminID, "admin_emergency_release", "escrow", &account.ID, map[string]any{
		"contract_id": contractID.String(),
		"amount":      amount.String(),
		"reason":      reason,
	})
	s.publishOverride(ctx, "emergency_release", contractID, map[string]any{
		"amount":    amount.String(),
		"available": account.AvailableBalance().String(),
	})
	return account, nil
}

// ForceRefund returns money to the manager past an admin hold.
func (s *AdminService) ForceRefund(ctx context.Context, adminID, contractID uuid.UUID, amount decimal.Decimal, reason string) (*models.EscrowAccount, error) {
	desc := fmt.Sprintf("forced refund by admin %s: %s", adminID, reason)
	account, err := s.escrowRepo.AdminRefund(ctx, contractID, amount, desc)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, adminID, "admin_force_refund", "escrow", &account.ID, map[string]any{
		"contract_id": contractID.String(),
		"amount":      amount.String(),
		"reason":      reason,
	})
	s.publishOverride(ctx, "force_refund", contractID, map[string]any{
		"amount":    amount.String(),
		"available": account.AvailableBalance().String(),
	})
	return account, nil
}

// Hold freezes the contract's escrow account: milestone-driven releases are
// rejected until ReleaseHold. No money moves.
func (s *AdminService) Hold(ctx context.Context, adminID, contractID uuid.UUID, reason string) (*models.EscrowAccount, error) {
	account, err := s.escrowRepo.SetHold(ctx, contractID, reason, adminID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, adminID, "admin_escrow_hold", "escrow", &account.ID, map[string]any{
		"contract_id": contractID.String(),
		"reason":      reason,
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventEscrowHold,
		Payload: map[string]any{
			"contract_id": contractID.String(),
			"reason":      reason,
		},
	})
	return account, nil
}

// ReleaseHold lifts the freeze; the account status falls back to its totals.
func (s *AdminService) ReleaseHold(ctx context.Context, adminID, contractID uuid.UUID) (*models.EscrowAccount, error) {
	account, err := s.escrowRepo.ClearHold(ctx, contractID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, adminID, "admin_escrow_hold_released", "escrow", &account.ID, map[string]any{
		"contract_id": contractID.String(),
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventEscrowHoldReleased,
		Payload: map[string]any{
			"contract_id": contractID.String(),
		},
	})
	return account, nil
}

// ForceComplete closes the contract and, when an escrow account exists, the
// account as well, without adjusting any amount. Assumes the books were
// reconciled beforehand.
func (s *AdminService) ForceComplete(ctx context.Context, adminID, contractID uuid.UUID, notes *string) error {
	if _, err := s.contractRepo.GetByID(ctx, contractID); err != nil {
		return err
	}
	if err := s.contractRepo.ForceStatus(ctx, contractID, models.ContractStatusCompleted, notes); err != nil {
		return err
	}

	if err := s.escrowRepo.MarkCompleted(ctx, contractID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	s.audit(ctx, adminID, "admin_force_complete", "contract", &contractID, nil)
	s.publishOverride(ctx, "force_complete", contractID, nil)
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventContractCompleted,
		Payload: map[string]any{
			"contract_id": contractID.String(),
		},
	})
	return nil
}

// GetContract is the unrestricted admin read.
func (s *AdminService) GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	return s.contractRepo.GetByID(ctx, contractID)
}

// GetEscrow is the unrestricted admin read of an account.
func (s *AdminService) GetEscrow(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error) {
	return s.escrowRepo.GetByContractID(ctx, contractID)
}
