package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Proposals and jobs belong to the hiring subsystem. This core only reads
// them to derive contract parties and check acceptance.

const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
)

type Proposal struct {
	ID          uuid.UUID       `json:"id"`
	JobID       uuid.UUID       `json:"job_id"`
	TalentID    uuid.UUID       `json:"talent_id"`
	BidAmount   decimal.Decimal `json:"bid_amount"`
	CoverLetter *string         `json:"cover_letter,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Job struct {
	ID        uuid.UUID `json:"id"`
	ManagerID uuid.UUID `json:"manager_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
