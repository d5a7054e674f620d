package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talent-marketplace/backend/internal/models"
)

const contractColumns = `
	id, proposal_id, job_id, manager_id, talent_id, title, description,
	total_amount, currency, payment_type, hourly_rate, estimated_hours,
	start_date, end_date, terms, status, revision, parent_contract_id,
	decline_reason, cancel_reason, admin_notes, forced_by_admin,
	sent_at, accepted_at, declined_at, activated_at, completed_at, cancelled_at, disputed_at,
	created_at, updated_at`

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

func scanContract(row pgx.Row, c *models.Contract) error {
	return row.Scan(&c.ID, &c.ProposalID, &c.JobID, &c.ManagerID, &c.TalentID, &c.Title, &c.Description,
		&c.TotalAmount, &c.Currency, &c.PaymentType, &c.HourlyRate, &c.EstimatedHours,
		&c.StartDate, &c.EndDate, &c.Terms, &c.Status, &c.Revision, &c.ParentContractID,
		&c.DeclineReason, &c.CancelReason, &c.AdminNotes, &c.ForcedByAdmin,
		&c.SentAt, &c.AcceptedAt, &c.DeclinedAt, &c.ActivatedAt, &c.CompletedAt, &c.CancelledAt, &c.DisputedAt,
		&c.CreatedAt, &c.UpdatedAt)
}

// Create inserts the contract and its milestones in one transaction. The
// unique index on proposal_id turns a duplicate creation race into ErrConflict.
func (r *ContractRepo) Create(ctx context.Context, c *models.Contract, milestones []models.Milestone) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO contracts (proposal_id, job_id, manager_id, talent_id, title, description,
		                       total_amount, currency, payment_type, hourly_rate, estimated_hours,
		                       start_date, end_date, terms, status, parent_contract_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, revision, created_at, updated_at
	`, c.ProposalID, c.JobID, c.ManagerID, c.TalentID, c.Title, c.Description,
		c.TotalAmount, c.Currency, c.PaymentType, c.HourlyRate, c.EstimatedHours,
		c.StartDate, c.EndDate, c.Terms, c.Status, c.ParentContractID,
	).Scan(&c.ID, &c.Revision, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: contract already exists for proposal %s", models.ErrConflict, c.ProposalID)
		}
		return err
	}

	for i := range milestones {
		m := &milestones[i]
		m.ContractID = c.ID
		m.Position = i + 1
		m.Status = models.MilestoneStatusPending
		err = tx.QueryRow(ctx, `
			INSERT INTO milestones (contract_id, position, title, description, amount, due_date, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`, m.ContractID, m.Position, m.Title, m.Description, m.Amount, m.DueDate, m.Status,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	err := scanContract(r.pool.QueryRow(ctx, `SELECT`+contractColumns+` FROM contracts WHERE id = $1`, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: contract %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepo) ExistsForProposal(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM contracts WHERE proposal_id = $1)`, proposalID).Scan(&exists)
	return exists, err
}

// TransitionStatus is a compare-and-swap on the status column: the update
// applies only if the row is still in fromStatus. The per-status timestamp
// column is stamped and the revision counter bumped. Returns false when the
// row was not in fromStatus anymore (caller re-reads and decides).
func (r *ContractRepo) TransitionStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, reason *string) (bool, error) {
	query := `UPDATE contracts SET status = $1, revision = revision + 1, updated_at = now()`
	if col := models.StatusTimestampColumn(toStatus); col != "" {
		query += fmt.Sprintf(", %s = now()", col)
	}
	switch toStatus {
	case models.ContractStatusDeclined:
		query += `, decline_reason = $4`
	case models.ContractStatusCancelled:
		query += `, cancel_reason = $4`
	}
	query += ` WHERE id = $2 AND status = $3`

	args := []any{toStatus, id, fromStatus}
	if toStatus == models.ContractStatusDeclined || toStatus == models.ContractStatusCancelled {
		args = append(args, reason)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ForceStatus is the admin path: no compare-and-swap, records the override.
func (r *ContractRepo) ForceStatus(ctx context.Context, id uuid.UUID, toStatus string, adminNotes *string) error {
	query := `UPDATE contracts SET status = $1, revision = revision + 1, updated_at = now(),
	          forced_by_admin = true, admin_notes = $3`
	if col := models.StatusTimestampColumn(toStatus); col != "" {
		query += fmt.Sprintf(", %s = now()", col)
	}
	query += ` WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, toStatus, id, adminNotes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contract %s", models.ErrNotFound, id)
	}
	return nil
}

type ContractFilter struct {
	ManagerID *uuid.UUID
	TalentID  *uuid.UUID
	PartyID   *uuid.UUID // manager or talent
	JobID     *uuid.UUID
	Status    *string
	Limit     int
	Offset    int
}

func (r *ContractRepo) List(ctx context.Context, f ContractFilter) ([]models.Contract, error) {
	query := `SELECT` + contractColumns + ` FROM contracts`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.ManagerID != nil {
		where = append(where, fmt.Sprintf("manager_id = $%d", argIdx))
		args = append(args, *f.ManagerID)
		argIdx++
	}
	if f.TalentID != nil {
		where = append(where, fmt.Sprintf("talent_id = $%d", argIdx))
		args = append(args, *f.TalentID)
		argIdx++
	}
	if f.PartyID != nil {
		where = append(where, fmt.Sprintf("(manager_id = $%d OR talent_id = $%d)", argIdx, argIdx))
		args = append(args, *f.PartyID)
		argIdx++
	}
	if f.JobID != nil {
		where = append(where, fmt.Sprintf("job_id = $%d", argIdx))
		args = append(args, *f.JobID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := scanContract(rows, &c); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// GetTimedOut returns contracts stuck in status longer than timeoutSeconds.
func (r *ContractRepo) GetTimedOut(ctx context.Context, status string, timeoutSeconds int) ([]models.Contract, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+contractColumns+`
		FROM contracts
		WHERE status = $1 AND updated_at < now() - ($2 || ' seconds')::interval
	`, status, fmt.Sprintf("%d", timeoutSeconds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := scanContract(rows, &c); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}
