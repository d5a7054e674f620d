package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/talent-marketplace/backend/internal/config"
	"github.com/talent-marketplace/backend/internal/events"
	"github.com/talent-marketplace/backend/internal/models"
	"github.com/talent-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

type EscrowService struct {
	contractRepo *repositories.ContractRepo
	escrowRepo   *repositories.EscrowRepo
	auditRepo    *repositories.AuditRepo
	publisher    events.Publisher
	cfg          *config.Config
	log          *zap.Logger
}

func NewEscrowService(
	contractRepo *repositories.ContractRepo,
	escrowRepo *repositories.EscrowRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		contractRepo: contractRepo,
		escrowRepo:   escrowRepo,
		auditRepo:    auditRepo,
		publisher:    publisher,
		cfg:          cfg,
		log:          log,
	}
}

// Fund is the funding gateway's deposit callback: it creates and funds the
// escrow account of an accepted contract, then activates the contract.
// Activation happens here and only here.
func (s *EscrowService) Fund(ctx context.Context, contractID uuid.UUID, amount, feeAmount decimal.Decimal) (*models.EscrowAccount, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusAccepted {
		return nil, fmt.Errorf("%w: contract is %s, must be accepted before funding", models.ErrInvalidState, contract.Status)
	}

	// Gateways that don't itemize the fee get the platform default.
	if feeAmount.IsZero() && s.cfg.PlatformFeeBPS > 0 {
		feeAmount = amount.Mul(decimal.NewFromInt(int64(s.cfg.PlatformFeeBPS))).Div(decimal.NewFromInt(10000)).Round(2)
	}

	account, err := s.escrowRepo.Fund(ctx, contractID, contract.Currency, amount, feeAmount)
	if err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorType:  "gateway",
		Action:     "escrow_funded",
		EntityType: "escrow",
		EntityID:   &account.ID,
		Meta: map[string]any{
			"contract_id": contractID.String(),
			"amount":      amount.String(),
			"fee_amount":  feeAmount.String(),
		},
	})

	ok, err := s.contractRepo.TransitionStatus(ctx, contractID, models.ContractStatusAccepted, models.ContractStatusActive, nil)
	if err != nil || !ok {
		// The deposit is committed; the contract moved out of accepted in
		// the meantime (cancel/dispute race). The ledger stays authoritative
		// and an admin resolves the contract side.
		s.log.Error("escrow funded but contract activation failed",
			zap.String("contract_id", contractID.String()),
			zap.Bool("cas_applied", ok),
			zap.Error(err),
		)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: contract %s left accepted state during funding", models.ErrConflict, contractID)
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "contract_status_accepted_to_active",
		EntityType: "contract",
		EntityID:   &contractID,
		Meta:       map[string]any{"old_status": models.ContractStatusAccepted, "new_status": models.ContractStatusActive},
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventContractFunded,
		Payload: map[string]any{
			"contract_id": contractID.String(),
			"manager_id":  contract.ManagerID.String(),
			"talent_id":   contract.TalentID.String(),
			"amount":      amount.String(),
		},
	})

	return account, nil
}

// Refund returns part of the available balance to the manager. Used by the
// normal (non-admin) cancellation settlement flow.
func (s *EscrowService) Refund(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal, description string) (*models.EscrowAccount, error) {
	account, err := s.escrowRepo.Refund(ctx, contractID, amount, description)
	if err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "escrow_refunded",
		EntityType: "escrow",
		EntityID:   &account.ID,
		Meta: map[string]any{
			"contract_id": contractID.String(),
			"amount":      amount.String(),
		},
	})
	_ = s.publisher.Publish(ctx, events.StreamContract, events.Event{
		Type: events.EventEscrowRefunded,
		Payload: map[string]any{
			"contract_id": contractID.String(),
			"amount":      amount.String(),
			"available":   account.AvailableBalance().String(),
		},
	})
	return account, nil
}

// GetForParty returns the account for one of the contract's parties.
func (s *EscrowService) GetForParty(ctx context.Context, contractID, actorID uuid.UUID) (*models.EscrowAccount, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ManagerID != actorID && contract.TalentID != actorID {
		return nil, fmt.Errorf("%w: not a party to this contract", models.ErrForbidden)
	}
	return s.escrowRepo.GetByContractID(ctx, contractID)
}

func (s *EscrowService) AvailableBalance(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.escrowRepo.GetByContractID(ctx, contractID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.AvailableBalance(), nil
}

// ListTransactionsForParty returns the append-only transaction log.
func (s *EscrowService) ListTransactionsForParty(ctx context.Context, contractID, actorID uuid.UUID) ([]models.EscrowTransaction, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ManagerID != actorID && contract.TalentID != actorID {
		return nil, fmt.Errorf("%w: not a party to this contract", models.ErrForbidden)
	}
	return s.escrowRepo.ListTransactions(ctx, contractID)
}
