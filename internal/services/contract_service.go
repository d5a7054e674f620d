package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/talent-marketplace/backend/internal/events"
	"github.com/talent-marketplace/backend/internal/models"
	"github.com/talent-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

// maxTransitionRetries bounds the optimistic-concurrency retry loop before a
// lost race is surfaced as ErrConflict.
const maxTransitionRetries = 3

type ContractService struct {
	contractRepo  *repositories.ContractRepo
	milestoneRepo *repositories.MilestoneRepo
	proposalRepo  *repositories.ProposalRepo
	auditRepo     *repositories.AuditRepo
	publisher     events.Publisher
	log           *zap.Logger
}

func NewContractService(
	contractRepo *repositories.ContractRepo,
	milestoneRepo *repositories.MilestoneRepo,
	proposalRepo *repositories.ProposalRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	log *zap.Logger,
) *ContractService {
	return &ContractService{
		contractRepo:  contractRepo,
		milestoneRepo: milestoneRepo,
		proposalRepo:  proposalRepo,
		auditRepo:     auditRepo,
		publisher:     publisher,
		log:           log,
	}
}

// transition validates and performs a contract status change with audit
// logging and a lifecycle event. The repository update is a compare-and-swap
// on the current status; a stale read is retried against fresh state a
// bounded number of times before ErrConflict.
func (s *ContractService) transition(ctx context.Context, contract *models.Contract, newStatus string, reason *string, actorID *uuid.UUID, actorType, eventType string) error {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		if !models.IsValidContractTransition(contract.Status, newStatus) {
			return fmt.Errorf("%w: cannot move contract from %s to %s", models.ErrInvalidState, contract.Status, newStatus)
		}

		oldStatus := contract.Status
		ok, err := s.contractRepo.TransitionStatus(ctx, contract.ID, oldStatus, newStatus, reason)
		if err != nil {
			return err
		}
		if !ok {
			// Someone moved the contract first; re-read and re-validate.
			fresh, err := s.contractRepo.GetByID(ctx, contract.ID)
			if err != nil {
				return err
			}
			*contract = *fresh
			continue
		}
		contract.Status = newStatus

		_ = s.auditRepo.Log(ctx, models.AuditLog{
			ActorUserID: actorID,
			ActorType:   actorType,
			Action:      fmt.Sprintf("contract_status_%s_to_%s", oldStatus, newStatus),
			EntityType:  "contract",
			EntityID:    &contract.ID,
			Meta:        map[string]any{"old_status": oldStatus, "new_status": newStatus},
		})

		_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
			Type: eventType,
			Payload: map[string]any{
				"contract_id": contract.ID.String(),
				"manager_id":  contract.ManagerID.String(),
				"talent_id":   contract.TalentID.String(),
				"old_status":  oldStatus,
				"new_status":  newStatus,
			},
		})

		return nil
	}
	return fmt.Errorf("%w: contract %s is being modified concurrently", models.ErrConflict, contract.ID)
}

type MilestoneInput struct {
	Title       string
	Description *string
	Amount      decimal.Decimal
	DueDate     time.Time
}

type CreateContractInput struct {
	ProposalID       uuid.UUID
	Title            string
	Description      *string
	TotalAmount      decimal.Decimal
	Currency         string
	PaymentType      string
	HourlyRate       *decimal.Decimal
	EstimatedHours   *int
	StartDate        time.Time
	EndDate          time.Time
	Terms            *string
	ParentContractID *uuid.UUID
	Milestones       []MilestoneInput
}

// CreateFromProposal turns an accepted proposal into a draft contract. The
// requester must be the manager of the proposal's job; a proposal carries at
// most one contract.
func (s *ContractService) CreateFromProposal(ctx context.Context, managerID uuid.UUID, input CreateContractInput) (*models.ContractWithMilestones, error) {
	proposal, err := s.proposalRepo.GetByID(ctx, input.ProposalID)
	if err != nil {
		return nil, err
	}
	job, err := s.proposalRepo.GetJobByID(ctx, proposal.JobID)
	if err != nil {
		return nil, err
	}
	if job.ManagerID != managerID {
		return nil, fmt.Errorf("%w: only the job's manager can create a contract", models.ErrForbidden)
	}
	if proposal.Status != models.ProposalStatusAccepted {
		return nil, fmt.Errorf("%w: proposal is %s, must be accepted", models.ErrInvalidState, proposal.Status)
	}

	exists, err := s.contractRepo.ExistsForProposal(ctx, input.ProposalID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: contract already exists for proposal %s", models.ErrConflict, input.ProposalID)
	}

	contract := &models.Contract{
		ProposalID:       input.ProposalID,
		JobID:            job.ID,
		ManagerID:        managerID,
		TalentID:         proposal.TalentID,
		Title:            input.Title,
		Description:      input.Description,
		TotalAmount:      input.TotalAmount,
		Currency:         input.Currency,
		PaymentType:      input.PaymentType,
		HourlyRate:       input.HourlyRate,
		EstimatedHours:   input.EstimatedHours,
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		Terms:            input.Terms,
		ParentContractID: input.ParentContractID,
		Status:           models.ContractStatusDraft,
	}

	milestones := make([]models.Milestone, len(input.Milestones))
	for i, m := range input.Milestones {
		milestones[i] = models.Milestone{
			Title:       m.Title,
			Description: m.Description,
			Amount:      m.Amount,
			DueDate:     m.DueDate,
		}
	}

	if err := models.ValidateContractTerms(contract, milestones); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Create(ctx, contract, milestones); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorUserID: &managerID,
		ActorType:   "user",
		Action:      "contract_created",
		EntityType:  "contract",
		EntityID:    &contract.ID,
		Meta: map[string]any{
			"proposal_id":  input.ProposalID.String(),
			"payment_type": contract.PaymentType,
			"total_amount": contract.TotalAmount.String(),
		},
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventContractCreated,
		Payload: map[string]any{
			"contract_id": contract.ID.String(),
			"manager_id":  contract.ManagerID.String(),
			"talent_id":   contract.TalentID.String(),
		},
	})

	return &models.ContractWithMilestones{Contract: *contract, Milestones: milestones}, nil
}

// Send moves a draft to the talent for review.
func (s *ContractService) Send(ctx context.Context, contractID, actorID uuid.UUID) error {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.ManagerID != actorID {
		return fmt.Errorf("%w: only the contract's manager can send it", models.ErrForbidden)
	}
	return s.transition(ctx, contract, models.ContractStatusSent, nil, &actorID, "user", events.EventContractSent)
}

// Accept records the talent's agreement. Funding, not acceptance, is what
// activates the contract.
func (s *ContractService) Accept(ctx context.Context, contractID, actorID uuid.UUID) error {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.TalentID != actorID {
		return fmt.Errorf("%w: only the named talent can accept", models.ErrForbidden)
	}
	return s.transition(ctx, contract, models.ContractStatusAccepted, nil, &actorID, "user", events.EventContractAccepted)
}

func (s *ContractService) Decline(ctx context.Context, contractID, actorID uuid.UUID, reason *string) error {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.TalentID != actorID {
		return fmt.Errorf("%w: only the named talent can decline", models.ErrForbidden)
	}
	return s.transition(ctx, contract, models.ContractStatusDeclined, reason, &actorID, "user", events.EventContractDeclined)
}

// Cancel is available to either party from any non-terminal state.
func (s *ContractService) Cancel(ctx context.Context, contractID, actorID uuid.UUID, reason *string) error {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.ManagerID != actorID && contract.TalentID != actorID {
		return fmt.Errorf("%w: only a contract party can cancel", models.ErrForbidden)
	}
	if models.IsTerminalContractStatus(contract.Status) {
		return fmt.Errorf("%w: contract is already %s", models.ErrInvalidState, contract.Status)
	}
	return s.transition(ctx, contract, models.ContractStatusCancelled, reason, &actorID, "user", events.EventContractCancelled)
}

// SystemCancel is the worker path for send-timeouts; no party check.
func (s *ContractService) SystemCancel(ctx context.Context, contractID uuid.UUID, reason string) error {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if models.IsTerminalContractStatus(contract.Status) {
		return fmt.Errorf("%w: contract is already %s", models.ErrInvalidState, contract.Status)
	}
	return s.transition(ctx, contract, models.ContractStatusCancelled, &reason, nil, "system", events.EventContractCancelled)
}

// GetForParty fetches a contract with its milestones for one of its parties.
func (s *ContractService) GetForParty(ctx context.Context, contractID, actorID uuid.UUID) (*models.ContractWithMilestones, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ManagerID != actorID && contract.TalentID != actorID {
		return nil, fmt.Errorf("%w: not a party to this contract", models.ErrForbidden)
	}
	milestones, err := s.milestoneRepo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &models.ContractWithMilestones{Contract: *contract, Milestones: milestones}, nil
}

func (s *ContractService) List(ctx context.Context, f repositories.ContractFilter) ([]models.Contract, error) {
	return s.contractRepo.List(ctx, f)
}

// GetEvents returns the audit trail of a contract for one of its parties.
func (s *ContractService) GetEvents(ctx context.Context, contractID, actorID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ManagerID != actorID && contract.TalentID != actorID {
		return nil, fmt.Errorf("%w: not a party to this contract", models.ErrForbidden)
	}
	return s.auditRepo.GetByEntity(ctx, "contract", contractID, limit, offset)
}
