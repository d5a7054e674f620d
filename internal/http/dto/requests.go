package dto

import "time"

type MilestoneRequest struct {
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Amount      string    `json:"amount"`
	DueDate     time.Time `json:"due_date"`
}

type CreateContractRequest struct {
	ProposalID       string             `json:"proposal_id"`
	Title            string             `json:"title"`
	Description      *string            `json:"description,omitempty"`
	TotalAmount      string             `json:"total_amount"`
	Currency         string             `json:"currency"`
	PaymentType      string             `json:"payment_type"` // fixed / hourly / milestone
	HourlyRate       *string            `json:"hourly_rate,omitempty"`
	EstimatedHours   *int               `json:"estimated_hours,omitempty"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	Terms            *string            `json:"terms,omitempty"`
	ParentContractID *string            `json:"parent_contract_id,omitempty"`
	Milestones       []MilestoneRequest `json:"milestones,omitempty"`
}

type DeclineContractRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type CancelContractRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type SubmitMilestoneRequest struct {
	Notes        *string  `json:"notes,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
}

type ApproveMilestoneRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type RequestRevisionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// FundEscrowRequest is posted by the payment gateway once a charge settles.
type FundEscrowRequest struct {
	Amount    string `json:"amount"`
	FeeAmount string `json:"fee_amount,omitempty"`
}

type RefundEscrowRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// Admin

type ForceStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

type ForceCompleteRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type AdminEscrowActionRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type HoldRequest struct {
	Reason string `json:"reason"`
}
