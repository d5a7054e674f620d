package events

import "context"

// StreamContract carries every lifecycle event of the contract/escrow core.
const StreamContract = "events:contract"

// Event types
const (
	EventContractCreated   = "contract_created"
	EventContractSent      = "contract_sent"
	EventContractAccepted  = "contract_accepted"
	EventContractDeclined  = "contract_declined"
	EventContractFunded    = "contract_funded"
	EventContractCancelled = "contract_cancelled"
	EventContractCompleted = "contract_completed"
	EventContractDisputed  = "contract_disputed"

	EventMilestoneStarted           = "milestone_started"
	EventMilestoneSubmitted         = "milestone_submitted"
	EventMilestoneApproved          = "milestone_approved"
	EventMilestoneRevisionRequested = "milestone_revision_requested"
	EventMilestonePaid              = "milestone_paid"
	EventMilestoneOverdue           = "milestone_overdue"

	EventEscrowReleased     = "escrow_released"
	EventEscrowRefunded     = "escrow_refunded"
	EventEscrowHold         = "escrow_hold"
	EventEscrowHoldReleased = "escrow_hold_released"

	EventAdminOverride         = "admin_override"
	EventDeliverableLinkBroken = "deliverable_link_broken"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Publisher delivers lifecycle events to interested consumers (notification
// feed, websocket hub). Invoked fire-and-forget: callers discard the error
// and a failed publish never rolls back a financial state change.
type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
