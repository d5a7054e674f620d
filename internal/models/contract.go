package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract statuses
const (
	ContractStatusDraft     = "draft"
	ContractStatusSent      = "sent"
	ContractStatusAccepted  = "accepted"
	ContractStatusDeclined  = "declined"
	ContractStatusActive    = "active"
	ContractStatusCompleted = "completed"
	ContractStatusCancelled = "cancelled"
	ContractStatusDisputed  = "disputed"
)

// Payment types
const (
	PaymentTypeFixed     = "fixed"
	PaymentTypeHourly    = "hourly"
	PaymentTypeMilestone = "milestone"
)

// Valid state transitions: from -> []to. "active" is entered only by the
// funding event, never implied by acceptance.
var ValidContractTransitions = map[string][]string{
	ContractStatusDraft:     {ContractStatusSent, ContractStatusCancelled},
	ContractStatusSent:      {ContractStatusAccepted, ContractStatusDeclined, ContractStatusCancelled},
	ContractStatusAccepted:  {ContractStatusActive, ContractStatusCancelled, ContractStatusDisputed},
	ContractStatusActive:    {ContractStatusCompleted, ContractStatusCancelled, ContractStatusDisputed},
	ContractStatusDisputed:  {ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled},
	ContractStatusDeclined:  {},
	ContractStatusCompleted: {},
	ContractStatusCancelled: {},
}

func IsValidContractTransition(from, to string) bool {
	allowed, ok := ValidContractTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidContractStatus reports whether status is one of the declared enum
// values. Admin force-status goes through this instead of the transition table.
func IsValidContractStatus(status string) bool {
	_, ok := ValidContractTransitions[status]
	return ok
}

func IsTerminalContractStatus(status string) bool {
	allowed, ok := ValidContractTransitions[status]
	return ok && len(allowed) == 0
}

func IsValidPaymentType(t string) bool {
	return t == PaymentTypeFixed || t == PaymentTypeHourly || t == PaymentTypeMilestone
}

// AmountTolerance is how far the milestone sum may drift from the contract
// total before creation is rejected (rounding slack, one cent).
var AmountTolerance = decimal.NewFromFloat(0.01)

type Contract struct {
	ID               uuid.UUID       `json:"id"`
	ProposalID       uuid.UUID       `json:"proposal_id"`
	JobID            uuid.UUID       `json:"job_id"`
	ManagerID        uuid.UUID       `json:"manager_id"`
	TalentID         uuid.UUID       `json:"talent_id"`
	Title            string          `json:"title"`
	Description      *string         `json:"description,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	PaymentType      string          `json:"payment_type"` // fixed / hourly / milestone
	HourlyRate       *decimal.Decimal `json:"hourly_rate,omitempty"`
	EstimatedHours   *int            `json:"estimated_hours,omitempty"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	Terms            *string         `json:"terms,omitempty"`
	Status           string          `json:"status"`
	Revision         int             `json:"revision"`
	ParentContractID *uuid.UUID      `json:"parent_contract_id,omitempty"`
	DeclineReason    *string         `json:"decline_reason,omitempty"`
	CancelReason     *string         `json:"cancel_reason,omitempty"`
	AdminNotes       *string         `json:"admin_notes,omitempty"`
	ForcedByAdmin    bool            `json:"forced_by_admin"`
	SentAt           *time.Time      `json:"sent_at,omitempty"`
	AcceptedAt       *time.Time      `json:"accepted_at,omitempty"`
	DeclinedAt       *time.Time      `json:"declined_at,omitempty"`
	ActivatedAt      *time.Time      `json:"activated_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	DisputedAt       *time.Time      `json:"disputed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ContractWithMilestones avoids N+1 loads on the detail endpoint.
type ContractWithMilestones struct {
	Contract
	Milestones []Milestone `json:"milestones,omitempty"`
}

// StatusTimestampColumn maps a status to the column stamped on entry.
// Statuses without a dedicated timestamp (draft) return "".
func StatusTimestampColumn(status string) string {
	switch status {
	case ContractStatusSent:
		return "sent_at"
	case ContractStatusAccepted:
		return "accepted_at"
	case ContractStatusDeclined:
		return "declined_at"
	case ContractStatusActive:
		return "activated_at"
	case ContractStatusCompleted:
		return "completed_at"
	case ContractStatusCancelled:
		return "cancelled_at"
	case ContractStatusDisputed:
		return "disputed_at"
	}
	return ""
}

// ValidateContractTerms checks everything that must hold before a contract
// row is written: positive total, ordered dates, payment-type shape and the
// milestone amount reconciliation.
func ValidateContractTerms(c *Contract, milestones []Milestone) error {
	if c.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !IsValidPaymentType(c.PaymentType) {
		return fmt.Errorf("%w: invalid payment type %q", ErrValidation, c.PaymentType)
	}
	if !c.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount must be positive", ErrValidation)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() || !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("%w: start date must be before end date", ErrValidation)
	}

	if c.PaymentType == PaymentTypeHourly {
		if c.HourlyRate == nil || !c.HourlyRate.IsPositive() {
			return fmt.Errorf("%w: hourly contracts require a positive hourly rate", ErrValidation)
		}
		if c.EstimatedHours == nil || *c.EstimatedHours <= 0 {
			return fmt.Errorf("%w: hourly contracts require estimated hours", ErrValidation)
		}
	} else if c.HourlyRate != nil || c.EstimatedHours != nil {
		return fmt.Errorf("%w: hourly rate and estimated hours are only valid for hourly contracts", ErrValidation)
	}

	if c.PaymentType == PaymentTypeMilestone {
		return ValidateMilestoneAmounts(c.TotalAmount, milestones)
	}
	if len(milestones) > 0 {
		return fmt.Errorf("%w: milestones are only valid for milestone contracts", ErrValidation)
	}
	return nil
}

// ValidateMilestoneAmounts enforces the reconciliation invariant: every
// milestone amount positive and the sum within AmountTolerance of the total.
func ValidateMilestoneAmounts(total decimal.Decimal, milestones []Milestone) error {
	if len(milestones) == 0 {
		return fmt.Errorf("%w: milestone contracts require at least one milestone", ErrValidation)
	}
	sum := decimal.Zero
	for i, m := range milestones {
		if m.Title == "" {
			return fmt.Errorf("%w: milestone %d is missing a title", ErrValidation, i+1)
		}
		if !m.Amount.IsPositive() {
			return fmt.Errorf("%w: milestone %d amount must be positive", ErrValidation, i+1)
		}
		if m.DueDate.IsZero() {
			return fmt.Errorf("%w: milestone %d is missing a due date", ErrValidation, i+1)
		}
		sum = sum.Add(m.Amount)
	}
	if sum.Sub(total).Abs().GreaterThan(AmountTolerance) {
		return fmt.Errorf("%w: milestone amounts sum to %s, contract total is %s", ErrValidation, sum, total)
	}
	return nil
}
