package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Escrow account statuses
const (
	EscrowStatusCreated        = "created"
	EscrowStatusFunded         = "funded"
	EscrowStatusPartialRelease = "partial_release"
	EscrowStatusCompleted      = "completed"
	EscrowStatusRefunded       = "refunded"
	EscrowStatusDisputed       = "disputed"
)

// Escrow transaction types
const (
	TransactionTypeDeposit     = "deposit"
	TransactionTypeRelease     = "release"
	TransactionTypeRefund      = "refund"
	TransactionTypeAdminAction = "admin_action"
)

// Escrow transaction statuses
const (
	TransactionStatusCompleted = "completed"
)

type EscrowAccount struct {
	ID                uuid.UUID       `json:"id"`
	ContractID        uuid.UUID       `json:"contract_id"`
	Currency          string          `json:"currency"`
	HeldAmount        decimal.Decimal `json:"held_amount"`
	ReleasedAmount    decimal.Decimal `json:"released_amount"`
	RefundedAmount    decimal.Decimal `json:"refunded_amount"`
	PlatformFeeAmount decimal.Decimal `json:"platform_fee_amount"`
	Status            string          `json:"status"`
	HoldReason        *string         `json:"hold_reason,omitempty"`
	HoldBy            *uuid.UUID      `json:"hold_by,omitempty"`
	HoldAt            *time.Time      `json:"hold_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AvailableBalance is the only amount eligible for further release or refund:
// held - released - refunded. Non-negative by invariant.
func (a *EscrowAccount) AvailableBalance() decimal.Decimal {
	return a.HeldAmount.Sub(a.ReleasedAmount).Sub(a.RefundedAmount)
}

// CanDebit reports whether amount could be released or refunded right now.
func (a *EscrowAccount) CanDebit(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThanOrEqual(a.AvailableBalance())
}

// IsHeld reports whether an admin has frozen the account. A held account
// rejects milestone-driven releases; only admin overrides may move money.
func (a *EscrowAccount) IsHeld() bool {
	return a.Status == EscrowStatusDisputed
}

// DeriveStatus computes the account status from its totals. Called after
// every debit; the disputed status is sticky and never derived here.
// When the balance reaches zero the account is refunded if every coin went
// back to the manager, completed otherwise.
func (a *EscrowAccount) DeriveStatus() string {
	if !a.HeldAmount.IsPositive() {
		return EscrowStatusCreated
	}
	if a.AvailableBalance().IsZero() {
		if a.RefundedAmount.Equal(a.HeldAmount) {
			return EscrowStatusRefunded
		}
		return EscrowStatusCompleted
	}
	if a.ReleasedAmount.IsPositive() || a.RefundedAmount.IsPositive() {
		return EscrowStatusPartialRelease
	}
	return EscrowStatusFunded
}

type EscrowTransaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	ContractID  uuid.UUID       `json:"contract_id"`
	Type        string          `json:"type"` // deposit / release / refund / admin_action
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description *string         `json:"description,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}
