package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talent-marketplace/backend/internal/models"
)

// ProposalRepo reads the hiring subsystem's records. This core never writes
// proposals or jobs.
type ProposalRepo struct {
	pool *pgxpool.Pool
}

func NewProposalRepo(pool *pgxpool.Pool) *ProposalRepo {
	return &ProposalRepo{pool: pool}
}

func (r *ProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	err := r.pool.QueryRow(ctx, `
		SELECT id, job_id, talent_id, bid_amount, cover_letter, status, created_at
		FROM proposals WHERE id = $1
	`, id).Scan(&p.ID, &p.JobID, &p.TalentID, &p.BidAmount, &p.CoverLetter, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: proposal %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProposalRepo) GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := r.pool.QueryRow(ctx, `
		SELECT id, manager_id, title, status, created_at
		FROM jobs WHERE id = $1
	`, id).Scan(&j.ID, &j.ManagerID, &j.Title, &j.Status, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
