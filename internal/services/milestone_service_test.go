package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/events"
	"github.com/talent-marketplace/backend/internal/models"
	"github.com/talent-marketplace/backend/internal/repositories"
)

type fakeContractGetter struct {
	contract *models.Contract
}

func (f *fakeContractGetter) GetByID(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	if f.contract == nil || f.contract.ID != id {
		return nil, fmt.Errorf("%w: contract %s", models.ErrNotFound, id)
	}
	return f.contract, nil
}

// fakeMilestoneStore keeps a single milestone and applies CAS transitions
// against it, recording the order of mutating calls.
type fakeMilestoneStore struct {
	milestone   *models.Milestone
	calls       []string
	updates     map[string]repositories.MilestoneUpdate
	failNextCAS bool
}

func (f *fakeMilestoneStore) Get(_ context.Context, contractID, milestoneID uuid.UUID) (*models.Milestone, error) {
	if f.milestone == nil || f.milestone.ID != milestoneID || f.milestone.ContractID != contractID {
		return nil, fmt.Errorf("%w: milestone %s", models.ErrNotFound, milestoneID)
	}
	return f.milestone, nil
}

func (f *fakeMilestoneStore) TransitionStatus(_ context.Context, _, _ uuid.UUID, fromStatus, toStatus string, upd repositories.MilestoneUpdate) (bool, error) {
	f.calls = append(f.calls, "cas:"+fromStatus+"->"+toStatus)
	if f.failNextCAS {
		f.failNextCAS = false
		return false, nil
	}
	if f.milestone.Status != fromStatus {
		return false, nil
	}
	f.milestone.Status = toStatus
	if f.updates == nil {
		f.updates = make(map[string]repositories.MilestoneUpdate)
	}
	f.updates[fromStatus+"->"+toStatus] = upd
	return true, nil
}

func (f *fakeMilestoneStore) RevertPayout(_ context.Context, _, _ uuid.UUID) error {
	f.calls = append(f.calls, "revert")
	if f.milestone.Status != models.MilestoneStatusPaid {
		return fmt.Errorf("%w: milestone is %s", models.ErrConflict, f.milestone.Status)
	}
	f.milestone.Status = models.MilestoneStatusApproved
	return nil
}

type fakeEscrowReleaser struct {
	err      error
	releases []decimal.Decimal
	calls    *fakeMilestoneStore // shares the call log for ordering checks
}

func (f *fakeEscrowReleaser) Release(_ context.Context, _ uuid.UUID, amount decimal.Decimal, _ string) (*models.EscrowAccount, error) {
	if f.calls != nil {
		f.calls.calls = append(f.calls.calls, "release")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.releases = append(f.releases, amount)
	return &models.EscrowAccount{
		HeldAmount:     decimal.RequireFromString("3000.00"),
		ReleasedAmount: amount,
		Status:         models.EscrowStatusPartialRelease,
	}, nil
}

type fakeAuditLogger struct {
	entries []models.AuditLog
}

func (f *fakeAuditLogger) Log(_ context.Context, entry models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	f.events = append(f.events, event)
	return nil
}

type milestoneFixture struct {
	svc       *MilestoneService
	contract  *models.Contract
	milestone *models.Milestone
	store     *fakeMilestoneStore
	escrow    *fakeEscrowReleaser
	publisher *fakePublisher
}

func newMilestoneFixture(milestoneStatus string) *milestoneFixture {
	contract := &models.Contract{
		ID:        uuid.New(),
		ManagerID: uuid.New(),
		TalentID:  uuid.New(),
		Status:    models.ContractStatusActive,
	}
	milestone := &models.Milestone{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Title:      "Design handoff",
		Amount:     decimal.RequireFromString("1000.00"),
		Status:     milestoneStatus,
	}
	store := &fakeMilestoneStore{milestone: milestone}
	escrow := &fakeEscrowReleaser{calls: store}
	publisher := &fakePublisher{}
	svc := NewMilestoneService(&fakeContractGetter{contract: contract}, store, escrow,
		&fakeAuditLogger{}, publisher, zap.NewNop())
	return &milestoneFixture{svc: svc, contract: contract, milestone: milestone,
		store: store, escrow: escrow, publisher: publisher}
}

func TestApprovePaysOut(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusSubmitted)

	err := f.svc.Approve(context.Background(), f.contract.ID, f.milestone.ID, f.contract.ManagerID, nil)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if f.milestone.Status != models.MilestoneStatusPaid {
		t.Errorf("milestone status = %q, want %q", f.milestone.Status, models.MilestoneStatusPaid)
	}
	if len(f.escrow.releases) != 1 {
		t.Fatalf("escrow releases = %d, want 1", len(f.escrow.releases))
	}
	if !f.escrow.releases[0].Equal(f.milestone.Amount) {
		t.Errorf("released %s, want %s", f.escrow.releases[0], f.milestone.Amount)
	}
	// The paid claim must land before money moves.
	want := []string{"cas:submitted->approved", "cas:approved->paid", "release"}
	if len(f.store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.store.calls, want)
	}
	for i := range want {
		if f.store.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, f.store.calls[i], want[i])
		}
	}
}

func TestApprovePersistsNotes(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusSubmitted)
	notes := "great work, shipping as-is"

	if err := f.svc.Approve(context.Background(), f.contract.ID, f.milestone.ID, f.contract.ManagerID, &notes); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	upd, ok := f.store.updates["submitted->approved"]
	if !ok {
		t.Fatal("no submitted->approved transition recorded")
	}
	if upd.ApprovalNotes == nil || *upd.ApprovalNotes != notes {
		t.Errorf("ApprovalNotes = %v, want %q", upd.ApprovalNotes, notes)
	}
}

func TestApprovePayoutInsufficientFunds(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusSubmitted)
	f.escrow.err = fmt.Errorf("%w: requested 1000.00 but only 200.00 available", models.ErrInsufficientFunds)

	err := f.svc.Approve(context.Background(), f.contract.ID, f.milestone.ID, f.contract.ManagerID, nil)
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Approve() error = %v, want ErrInsufficientFunds", err)
	}
	if f.milestone.Status != models.MilestoneStatusApproved {
		t.Errorf("milestone status = %q, want %q after failed payout", f.milestone.Status, models.MilestoneStatusApproved)
	}
	if len(f.escrow.releases) != 0 {
		t.Errorf("escrow releases = %d, want 0", len(f.escrow.releases))
	}
}

func TestApprovePayoutBlockedByHold(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusSubmitted)
	f.escrow.err = fmt.Errorf("%w: escrow for contract %s is frozen by an admin hold", models.ErrInvalidState, f.contract.ID)

	err := f.svc.Approve(context.Background(), f.contract.ID, f.milestone.ID, f.contract.ManagerID, nil)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("Approve() error = %v, want ErrInvalidState", err)
	}
	if f.milestone.Status != models.MilestoneStatusApproved {
		t.Errorf("milestone status = %q, want %q while the hold stands", f.milestone.Status, models.MilestoneStatusApproved)
	}
}

func TestRetryPayoutAfterHoldCleared(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusApproved)

	if err := f.svc.RetryPayout(context.Background(), f.contract.ID, f.milestone.ID, f.contract.ManagerID); err != nil {
		t.Fatalf("RetryPayout() error = %v", err)
	}
	if f.milestone.Status != models.MilestoneStatusPaid {
		t.Errorf("milestone status = %q, want %q", f.milestone.Status, models.MilestoneStatusPaid)
	}
	if len(f.escrow.releases) != 1 {
		t.Errorf("escrow releases = %d, want 1", len(f.escrow.releases))
	}
}

func TestRetryPayoutLostClaimNeverReleases(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusApproved)
	f.store.failNextCAS = true // another payout won the approved->paid claim

	err := f.svc.RetryPayout(context.Background(), f.contract.ID, f.milestone.ID, f.contract.ManagerID)
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("RetryPayout() error = %v, want ErrConflict", err)
	}
	if len(f.escrow.releases) != 0 {
		t.Errorf("escrow releases = %d, want 0 for the losing claimant", len(f.escrow.releases))
	}
	for _, call := range f.store.calls {
		if call == "release" {
			t.Error("escrow release attempted after losing the payout claim")
		}
	}
}

func TestRetryPayoutRequiresManager(t *testing.T) {
	f := newMilestoneFixture(models.MilestoneStatusApproved)

	err := f.svc.RetryPayout(context.Background(), f.contract.ID, f.milestone.ID, f.contract.TalentID)
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("RetryPayout() error = %v, want ErrForbidden", err)
	}
}
