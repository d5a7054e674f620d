package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/talent-marketplace/backend/internal/events"
	"github.com/talent-marketplace/backend/internal/models"
	"github.com/talent-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

// The milestone service depends on the narrow slices of the repositories it
// actually calls, so the payout paths can be exercised against in-memory
// stores.
type contractGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

type milestoneStore interface {
	Get(ctx context.Context, contractID, milestoneID uuid.UUID) (*models.Milestone, error)
	TransitionStatus(ctx context.Context, contractID, milestoneID uuid.UUID, fromStatus, toStatus string, upd repositories.MilestoneUpdate) (bool, error)
	RevertPayout(ctx context.Context, contractID, milestoneID uuid.UUID) error
}

type escrowReleaser interface {
	Release(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal, description string) (*models.EscrowAccount, error)
}

type auditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type MilestoneService struct {
	contractRepo  contractGetter
	milestoneRepo milestoneStore
	escrowRepo    escrowReleaser
	auditRepo     auditLogger
	publisher     events.Publisher
	log           *zap.Logger
}

func NewMilestoneService(
	contractRepo contractGetter,
	milestoneRepo milestoneStore,
	escrowRepo escrowReleaser,
	auditRepo auditLogger,
	publisher events.Publisher,
	log *zap.Logger,
) *MilestoneService {
	return &MilestoneService{
		contractRepo:  contractRepo,
		milestoneRepo: milestoneRepo,
		escrowRepo:    escrowRepo,
		auditRepo:     auditRepo,
		publisher:     publisher,
		log:           log,
	}
}

// load fetches the contract and milestone pair every operation starts from.
func (s *MilestoneService) load(ctx context.Context, contractID, milestoneID uuid.UUID) (*models.Contract, *models.Milestone, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	milestone, err := s.milestoneRepo.Get(ctx, contractID, milestoneID)
	if err != nil {
		return nil, nil, err
	}
	return contract, milestone, nil
}

// transition applies a milestone status change via compare-and-swap, then
// audits and publishes. A lost CAS means another writer got to this milestone
// first and surfaces as ErrConflict.
func (s *MilestoneService) transition(ctx context.Context, contract *models.Contract, m *models.Milestone, toStatus string, upd repositories.MilestoneUpdate, actorID *uuid.UUID, actorType, eventType string) error {
	if !models.IsValidMilestoneTransition(m.Status, toStatus) {
		return fmt.Errorf("%w: cannot move milestone from %s to %s", models.ErrInvalidState, m.Status, toStatus)
	}

	ok, err := s.milestoneRepo.TransitionStatus(ctx, contract.ID, m.ID, m.Status, toStatus, upd)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: milestone %s was modified concurrently", models.ErrConflict, m.ID)
	}

	oldStatus := m.Status
	m.Status = toStatus

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      fmt.Sprintf("milestone_status_%s_to_%s", oldStatus, toStatus),
		EntityType:  "milestone",
		EntityID:    &m.ID,
		Meta: map[string]any{
			"contract_id": contract.ID.String(),
			"old_status":  oldStatus,
			"new_status":  toStatus,
		},
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"contract_id":  contract.ID.String(),
			"milestone_id": m.ID.String(),
			"manager_id":   contract.ManagerID.String(),
			"talent_id":    contract.TalentID.String(),
			"old_status":   oldStatus,
			"new_status":   toStatus,
		},
	})
	return nil
}

// Start moves a pending milestone into work. Talent only, active contract.
func (s *MilestoneService) Start(ctx context.Context, contractID, milestoneID, actorID uuid.UUID) error {
	contract, milestone, err := s.load(ctx, contractID, milestoneID)
	if err != nil {
		return err
	}
	if contract.TalentID != actorID {
		return fmt.Errorf("%w: only the contract's talent can start a milestone", models.ErrForbidden)
	}
	if contract.Status != models.ContractStatusActive {
		return fmt.Errorf("%w: contract is %s, must be active", models.ErrInvalidState, contract.Status)
	}
	if milestone.Status != models.MilestoneStatusPending {
		return fmt.Errorf("%w: milestone is %s, must be pending", models.ErrInvalidState, milestone.Status)
	}
	return s.transition(ctx, contract, milestone, models.MilestoneStatusInProgress,
		repositories.MilestoneUpdate{}, &actorID, "user", events.EventMilestoneStarted)
}

// Submit hands the milestone's deliverables to the manager for review.
func (s *MilestoneService) Submit(ctx context.Context, contractID, milestoneID, actorID uuid.UUID, notes *string, deliverables []string) error {
	contract, milestone, err := s.load(ctx, contractID, milestoneID)
	if err != nil {
		return err
	}
	if contract.TalentID != actorID {
		return fmt.Errorf("%w: only the contract's talent can submit a milestone", models.ErrForbidden)
	}
	if contract.Status != models.ContractStatusActive {
		return fmt.Errorf("%w: contract is %s, must be active", models.ErrInvalidState, contract.Status)
	}
	if milestone.Status != models.MilestoneStatusPending && milestone.Status != models.MilestoneStatusInProgress {
		return fmt.Errorf("%w: milestone is %s, must be pending or in_progress", models.ErrInvalidState, milestone.Status)
	}
	return s.transition(ctx, contract, milestone, models.MilestoneStatusSubmitted,
		repositories.MilestoneUpdate{SubmissionNotes: notes, Deliverables: deliverables},
		&actorID, "user", events.EventMilestoneSubmitted)
}

// Approve accepts the submitted work and pays the milestone out of escrow.
// The approval and the payout are two steps: if the escrow release is
// rejected (admin hold, insufficient balance) the milestone stays approved
// and the failure is returned, never swallowed.
func (s *MilestoneService) Approve(ctx context.Context, contractID, milestoneID, actorID uuid.UUID, notes *string) error {
	contract, milestone, err := s.load(ctx, contractID, milestoneID)
	if err != nil {
		return err
	}
	if contract.ManagerID != actorID {
		return fmt.Errorf("%w: only the contract's manager can approve a milestone", models.ErrForbidden)
	}
	if contract.Status != models.ContractStatusActive {
		return fmt.Errorf("%w: contract is %s, must be active", models.ErrInvalidState, contract.Status)
	}
	if milestone.Status != models.MilestoneStatusSubmitted {
		return fmt.Errorf("%w: milestone is %s, must be submitted", models.ErrInvalidState, milestone.Status)
	}

	if err := s.transition(ctx, contract, milestone, models.MilestoneStatusApproved,
		repositories.MilestoneUpdate{ApprovalNotes: notes}, &actorID, "user", events.EventMilestoneApproved); err != nil {
		return err
	}

	return s.payout(ctx, contract, milestone, &actorID)
}

// payout releases the milestone amount and flips approved -> paid. Kept
// separate from Approve so an approved-but-unpaid milestone can be retried
// after a hold clears. The approved -> paid CAS runs BEFORE the escrow
// release: only the writer that wins the claim may touch the ledger, so
// concurrent approve/retry attempts cannot release the same milestone twice.
// On a rejected release the claim is handed back and the milestone returns
// to approved.
func (s *MilestoneService) payout(ctx context.Context, contract *models.Contract, milestone *models.Milestone, actorID *uuid.UUID) error {
	ok, err := s.milestoneRepo.TransitionStatus(ctx, contract.ID, milestone.ID,
		models.MilestoneStatusApproved, models.MilestoneStatusPaid, repositories.MilestoneUpdate{})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: payout for milestone %s already in flight", models.ErrConflict, milestone.ID)
	}

	desc := fmt.Sprintf("milestone %q payout", milestone.Title)
	account, err := s.escrowRepo.Release(ctx, contract.ID, milestone.Amount, desc)
	if err != nil {
		if revertErr := s.milestoneRepo.RevertPayout(ctx, contract.ID, milestone.ID); revertErr != nil {
			// No money moved. A milestone stuck in paid without a release
			// transaction needs an operator; log with everything they need.
			s.log.Error("milestone payout claim could not be reverted",
				zap.String("contract_id", contract.ID.String()),
				zap.String("milestone_id", milestone.ID.String()),
				zap.Error(revertErr),
			)
		}
		s.log.Warn("milestone payout rejected",
			zap.String("contract_id", contract.ID.String()),
			zap.String("milestone_id", milestone.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("milestone approved but payout failed: %w", err)
	}

	milestone.Status = models.MilestoneStatusPaid

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   "system",
		Action:      "milestone_status_approved_to_paid",
		EntityType:  "milestone",
		EntityID:    &milestone.ID,
		Meta: map[string]any{
			"contract_id": contract.ID.String(),
			"old_status":  models.MilestoneStatusApproved,
			"new_status":  models.MilestoneStatusPaid,
			"amount":      milestone.Amount.String(),
		},
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventMilestonePaid,
		Payload: map[string]any{
			"contract_id":  contract.ID.String(),
			"milestone_id": milestone.ID.String(),
			"manager_id":   contract.ManagerID.String(),
			"talent_id":    contract.TalentID.String(),
			"old_status":   models.MilestoneStatusApproved,
			"new_status":   models.MilestoneStatusPaid,
		},
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventEscrowReleased,
		Payload: map[string]any{
			"contract_id":  contract.ID.String(),
			"milestone_id": milestone.ID.String(),
			"amount":       milestone.Amount.String(),
			"available":    account.AvailableBalance().String(),
		},
	})
	return nil
}

// RetryPayout re-attempts the release for an approved milestone, typically
// after an admin hold was cleared.
func (s *MilestoneService) RetryPayout(ctx context.Context, contractID, milestoneID, actorID uuid.UUID) error {
	contract, milestone, err := s.load(ctx, contractID, milestoneID)
	if err != nil {
		return err
	}
	if contract.ManagerID != actorID {
		return fmt.Errorf("%w: only the contract's manager can retry a payout", models.ErrForbidden)
	}
	if milestone.Status != models.MilestoneStatusApproved {
		return fmt.Errorf("%w: milestone is %s, must be approved", models.ErrInvalidState, milestone.Status)
	}
	return s.payout(ctx, contract, milestone, &actorID)
}

// RequestRevision sends a submitted milestone back to work with notes.
func (s *MilestoneService) RequestRevision(ctx context.Context, contractID, milestoneID, actorID uuid.UUID, notes *string) error {
	contract, milestone, err := s.load(ctx, contractID, milestoneID)
	if err != nil {
		return err
	}
	if contract.ManagerID != actorID {
		return fmt.Errorf("%w: only the contract's manager can request a revision", models.ErrForbidden)
	}
	if contract.Status != models.ContractStatusActive {
		return fmt.Errorf("%w: contract is %s, must be active", models.ErrInvalidState, contract.Status)
	}
	if milestone.Status != models.MilestoneStatusSubmitted {
		return fmt.Errorf("%w: milestone is %s, must be submitted", models.ErrInvalidState, milestone.Status)
	}
	return s.transition(ctx, contract, milestone, models.MilestoneStatusInProgress,
		repositories.MilestoneUpdate{RevisionNotes: notes},
		&actorID, "user", events.EventMilestoneRevisionRequested)
}
