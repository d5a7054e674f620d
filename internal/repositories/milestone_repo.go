package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talent-marketplace/backend/internal/models"
)

const milestoneColumns = `
	id, contract_id, position, title, description, amount, due_date, status,
	submission_notes, deliverables, approval_notes, revision_notes,
	submitted_at, approved_at, paid_at, revision_requested_at,
	created_at, updated_at`

type MilestoneRepo struct {
	pool *pgxpool.Pool
}

func NewMilestoneRepo(pool *pgxpool.Pool) *MilestoneRepo {
	return &MilestoneRepo{pool: pool}
}

func scanMilestone(row pgx.Row, m *models.Milestone) error {
	var deliverables []byte
	err := row.Scan(&m.ID, &m.ContractID, &m.Position, &m.Title, &m.Description, &m.Amount, &m.DueDate, &m.Status,
		&m.SubmissionNotes, &deliverables, &m.ApprovalNotes, &m.RevisionNotes,
		&m.SubmittedAt, &m.ApprovedAt, &m.PaidAt, &m.RevisionRequestedAt,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return err
	}
	if len(deliverables) > 0 {
		_ = json.Unmarshal(deliverables, &m.Deliverables)
	}
	return nil
}

func (r *MilestoneRepo) Get(ctx context.Context, contractID, milestoneID uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	err := scanMilestone(r.pool.QueryRow(ctx, `
		SELECT`+milestoneColumns+` FROM milestones WHERE id = $1 AND contract_id = $2
	`, milestoneID, contractID), &m)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: milestone %s", models.ErrNotFound, milestoneID)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+milestoneColumns+` FROM milestones WHERE contract_id = $1 ORDER BY position
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []models.Milestone
	for rows.Next() {
		var m models.Milestone
		if err := scanMilestone(rows, &m); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// MilestoneUpdate carries the side data written alongside a status change.
type MilestoneUpdate struct {
	SubmissionNotes *string
	Deliverables    []string
	ApprovalNotes   *string
	RevisionNotes   *string
}

// TransitionStatus is a compare-and-swap on the milestone's status: concurrent
// updates to the same milestone serialize on the expected status while updates
// to sibling milestones of the same contract never conflict. Returns false
// when the milestone was no longer in fromStatus.
func (r *MilestoneRepo) TransitionStatus(ctx context.Context, contractID, milestoneID uuid.UUID, fromStatus, toStatus string, upd MilestoneUpdate) (bool, error) {
	query := `UPDATE milestones SET status = $1, updated_at = now()`
	args := []any{toStatus, milestoneID, contractID, fromStatus}
	argIdx := 5

	switch toStatus {
	case models.MilestoneStatusSubmitted:
		deliverables, _ := json.Marshal(upd.Deliverables)
		query += fmt.Sprintf(", submitted_at = now(), submission_notes = $%d, deliverables = $%d", argIdx, argIdx+1)
		args = append(args, upd.SubmissionNotes, deliverables)
	case models.MilestoneStatusApproved:
		query += fmt.Sprintf(", approved_at = now(), approval_notes = $%d", argIdx)
		args = append(args, upd.ApprovalNotes)
	case models.MilestoneStatusPaid:
		query += ", paid_at = now()"
	case models.MilestoneStatusInProgress:
		if fromStatus == models.MilestoneStatusSubmitted {
			// revision request
			query += fmt.Sprintf(", revision_requested_at = now(), revision_notes = $%d", argIdx)
			args = append(args, upd.RevisionNotes)
		}
	}

	query += ` WHERE id = $2 AND contract_id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevertPayout returns a paid milestone to approved and clears paid_at. Used
// when the escrow release behind a payout claim was rejected, so the milestone
// can be retried later.
func (r *MilestoneRepo) RevertPayout(ctx context.Context, contractID, milestoneID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE milestones SET status = $1, paid_at = NULL, updated_at = now()
		WHERE id = $2 AND contract_id = $3 AND status = $4
	`, models.MilestoneStatusApproved, milestoneID, contractID, models.MilestoneStatusPaid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: milestone %s is no longer paid", models.ErrConflict, milestoneID)
	}
	return nil
}

// ListOverdue returns in-flight milestones of active contracts whose due date
// passed more than grace ago.
func (r *MilestoneRepo) ListOverdue(ctx context.Context, grace time.Duration, limit int) ([]models.Milestone, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.contract_id, m.position, m.title, m.description, m.amount, m.due_date, m.status,
		       m.submission_notes, m.deliverables, m.approval_notes, m.revision_notes,
		       m.submitted_at, m.approved_at, m.paid_at, m.revision_requested_at,
		       m.created_at, m.updated_at
		FROM milestones m
		JOIN contracts c ON c.id = m.contract_id
		WHERE c.status = $1
		  AND m.status IN ($2, $3)
		  AND m.due_date < now() - ($4 * interval '1 second')
		ORDER BY m.due_date
		LIMIT $5
	`, models.ContractStatusActive,
		models.MilestoneStatusPending, models.MilestoneStatusInProgress,
		int64(grace.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []models.Milestone
	for rows.Next() {
		var m models.Milestone
		if err := scanMilestone(rows, &m); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// ListSubmittedSince returns milestones submitted after the cutoff, for the
// deliverable link checker.
func (r *MilestoneRepo) ListSubmittedSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Milestone, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+milestoneColumns+`
		FROM milestones
		WHERE status = $1 AND submitted_at >= $2 AND deliverables IS NOT NULL
		ORDER BY submitted_at
		LIMIT $3
	`, models.MilestoneStatusSubmitted, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []models.Milestone
	for rows.Next() {
		var m models.Milestone
		if err := scanMilestone(rows, &m); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}
