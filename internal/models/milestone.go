package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Milestone statuses
const (
	MilestoneStatusPending    = "pending"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusSubmitted  = "submitted"
	MilestoneStatusApproved   = "approved"
	MilestoneStatusPaid       = "paid"
)

// Valid milestone transitions: forward-only, except the revision edge
// submitted -> in_progress.
var ValidMilestoneTransitions = map[string][]string{
	MilestoneStatusPending:    {MilestoneStatusInProgress, MilestoneStatusSubmitted},
	MilestoneStatusInProgress: {MilestoneStatusSubmitted},
	MilestoneStatusSubmitted:  {MilestoneStatusApproved, MilestoneStatusInProgress},
	MilestoneStatusApproved:   {MilestoneStatusPaid},
	MilestoneStatusPaid:       {},
}

func IsValidMilestoneTransition(from, to string) bool {
	allowed, ok := ValidMilestoneTransitions[from]
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

type Milestone struct {
	ID                  uuid.UUID       `json:"id"`
	ContractID          uuid.UUID       `json:"contract_id"`
	Position            int             `json:"position"`
	Title               string          `json:"title"`
	Description         *string         `json:"description,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	DueDate             time.Time       `json:"due_date"`
	Status              string          `json:"status"`
	SubmissionNotes     *string         `json:"submission_notes,omitempty"`
	Deliverables        []string        `json:"deliverables,omitempty"` // URLs
	ApprovalNotes       *string         `json:"approval_notes,omitempty"`
	RevisionNotes       *string         `json:"revision_notes,omitempty"`
	SubmittedAt         *time.Time      `json:"submitted_at,omitempty"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	RevisionRequestedAt *time.Time      `json:"revision_requested_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
