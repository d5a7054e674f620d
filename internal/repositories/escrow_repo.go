package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/talent-marketplace/backend/internal/models"
)

const escrowColumns = `
	id, contract_id, currency, held_amount, released_amount, refunded_amount,
	platform_fee_amount, status, hold_reason, hold_by, hold_at, created_at, updated_at`

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

func scanEscrowAccount(row pgx.Row, a *models.EscrowAccount) error {
	return row.Scan(&a.ID, &a.ContractID, &a.Currency, &a.HeldAmount, &a.ReleasedAmount, &a.RefundedAmount,
		&a.PlatformFeeAmount, &a.Status, &a.HoldReason, &a.HoldBy, &a.HoldAt, &a.CreatedAt, &a.UpdatedAt)
}

func (r *EscrowRepo) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error) {
	var a models.EscrowAccount
	err := scanEscrowAccount(r.pool.QueryRow(ctx, `
		SELECT`+escrowColumns+` FROM escrow_accounts WHERE contract_id = $1
	`, contractID), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: escrow account for contract %s", models.ErrNotFound, contractID)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// lockAccount reads the account row under FOR UPDATE inside tx. Every mutation
// of the same account serializes here, so balance checks always see committed
// state, never a stale read.
func lockAccount(ctx context.Context, tx pgx.Tx, contractID uuid.UUID) (*models.EscrowAccount, error) {
	var a models.EscrowAccount
	err := scanEscrowAccount(tx.QueryRow(ctx, `
		SELECT`+escrowColumns+` FROM escrow_accounts WHERE contract_id = $1 FOR UPDATE
	`, contractID), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: escrow account for contract %s", models.ErrNotFound, contractID)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, t *models.EscrowTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO escrow_transactions (account_id, contract_id, type, amount, status, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, processed_at
	`, t.AccountID, t.ContractID, t.Type, t.Amount, t.Status, t.Description).Scan(&t.ID, &t.ProcessedAt)
}

// Fund creates the account on first use, appends the deposit transaction and
// bumps held_amount, all in one transaction. A second deposit for the same
// contract is rejected with ErrConflict.
func (r *EscrowRepo) Fund(ctx context.Context, contractID uuid.UUID, currency string, amount, feeAmount decimal.Decimal) (*models.EscrowAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Claim the contract's account slot; ON CONFLICT leaves an existing row
	// untouched so the FOR UPDATE read below sees whichever row won.
	_, err = tx.Exec(ctx, `
		INSERT INTO escrow_accounts (contract_id, currency, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (contract_id) DO NOTHING
	`, contractID, currency, models.EscrowStatusCreated)
	if err != nil {
		return nil, err
	}

	account, err := lockAccount(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if account.Status != models.EscrowStatusCreated {
		return nil, fmt.Errorf("%w: escrow for contract %s is already funded", models.ErrConflict, contractID)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", models.ErrValidation)
	}
	if feeAmount.IsNegative() {
		return nil, fmt.Errorf("%w: platform fee cannot be negative", models.ErrValidation)
	}

	desc := "escrow funded by payment gateway"
	if err := appendTransaction(ctx, tx, &models.EscrowTransaction{
		AccountID:   account.ID,
		ContractID:  contractID,
		Type:        models.TransactionTypeDeposit,
		Amount:      amount,
		Status:      models.TransactionStatusCompleted,
		Description: &desc,
	}); err != nil {
		return nil, err
	}

	account.HeldAmount = account.HeldAmount.Add(amount)
	account.PlatformFeeAmount = feeAmount
	account.Status = models.EscrowStatusFunded
	if err := updateAccount(ctx, tx, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

func updateAccount(ctx context.Context, tx pgx.Tx, a *models.EscrowAccount) error {
	return tx.QueryRow(ctx, `
		UPDATE escrow_accounts
		SET held_amount = $1, released_amount = $2, refunded_amount = $3,
		    platform_fee_amount = $4, status = $5,
		    hold_reason = $6, hold_by = $7, hold_at = $8, updated_at = now()
		WHERE id = $9
		RETURNING updated_at
	`, a.HeldAmount, a.ReleasedAmount, a.RefundedAmount,
		a.PlatformFeeAmount, a.Status,
		a.HoldReason, a.HoldBy, a.HoldAt, a.ID).Scan(&a.UpdatedAt)
}

// debit appends one release/refund transaction and adjusts the matching total
// as a single atomic unit. Preconditions are checked against the locked row;
// any failure rolls the whole thing back, so no partial transaction is ever
// recorded. Admin overrides pass allowHeld and the admin_action type; the
// balance check itself has no override.
func (r *EscrowRepo) debit(ctx context.Context, contractID uuid.UUID, refund bool, txType string, amount decimal.Decimal, description string, allowHeld bool) (*models.EscrowAccount, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if account.IsHeld() && !allowHeld {
		return nil, fmt.Errorf("%w: escrow for contract %s is frozen by an admin hold", models.ErrInvalidState, contractID)
	}
	if !account.CanDebit(amount) {
		return nil, fmt.Errorf("%w: requested %s but only %s available", models.ErrInsufficientFunds, amount, account.AvailableBalance())
	}

	if err := appendTransaction(ctx, tx, &models.EscrowTransaction{
		AccountID:   account.ID,
		ContractID:  contractID,
		Type:        txType,
		Amount:      amount,
		Status:      models.TransactionStatusCompleted,
		Description: &description,
	}); err != nil {
		return nil, err
	}

	if refund {
		account.RefundedAmount = account.RefundedAmount.Add(amount)
	} else {
		account.ReleasedAmount = account.ReleasedAmount.Add(amount)
	}

	// A hold survives debits until the balance is exhausted or an admin
	// clears it; otherwise the status follows the totals.
	if !account.IsHeld() || account.AvailableBalance().IsZero() {
		account.Status = account.DeriveStatus()
		if account.Status != models.EscrowStatusDisputed {
			account.HoldReason, account.HoldBy, account.HoldAt = nil, nil, nil
		}
	}

	if err := updateAccount(ctx, tx, account); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

// Release pays amount out of the available balance toward the talent.
func (r *EscrowRepo) Release(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal, description string) (*models.EscrowAccount, error) {
	return r.debit(ctx, contractID, false, models.TransactionTypeRelease, amount, description, false)
}

// Refund returns amount from the available balance to the manager.
func (r *EscrowRepo) Refund(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal, description string) (*models.EscrowAccount, error) {
	return r.debit(ctx, contractID, true, models.TransactionTypeRefund, amount, description, false)
}

// AdminRelease moves money out even while the account is held. The balance
// precondition still applies.
func (r *EscrowRepo) AdminRelease(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal, description string) (*models.EscrowAccount, error) {
	return r.debit(ctx, contractID, false, models.TransactionTypeAdminAction, amount, description, true)
}

// AdminRefund refunds even while the account is held.
func (r *EscrowRepo) AdminRefund(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal, description string) (*models.EscrowAccount, error) {
	return r.debit(ctx, contractID, true, models.TransactionTypeAdminAction, amount, description, true)
}

// SetHold freezes the account: milestone-driven releases are rejected until
// the hold is cleared. No money moves.
func (r *EscrowRepo) SetHold(ctx context.Context, contractID uuid.UUID, reason string, adminID uuid.UUID) (*models.EscrowAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if account.Status == models.EscrowStatusCompleted || account.Status == models.EscrowStatusRefunded {
		return nil, fmt.Errorf("%w: cannot hold a fully disbursed escrow", models.ErrInvalidState)
	}

	now := time.Now()
	account.Status = models.EscrowStatusDisputed
	account.HoldReason = &reason
	account.HoldBy = &adminID
	account.HoldAt = &now
	if err := updateAccount(ctx, tx, account); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

// ClearHold lifts an admin hold; the status falls back to whatever the totals
// dictate.
func (r *EscrowRepo) ClearHold(ctx context.Context, contractID uuid.UUID) (*models.EscrowAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if !account.IsHeld() {
		return nil, fmt.Errorf("%w: escrow for contract %s is not held", models.ErrInvalidState, contractID)
	}

	account.Status = account.DeriveStatus()
	account.HoldReason, account.HoldBy, account.HoldAt = nil, nil, nil
	if err := updateAccount(ctx, tx, account); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

// MarkCompleted closes the account without touching amounts. Used by the
// admin force-complete path after off-ledger reconciliation.
func (r *EscrowRepo) MarkCompleted(ctx context.Context, contractID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrow_accounts
		SET status = $1, hold_reason = NULL, hold_by = NULL, hold_at = NULL, updated_at = now()
		WHERE contract_id = $2
	`, models.EscrowStatusCompleted, contractID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: escrow account for contract %s", models.ErrNotFound, contractID)
	}
	return nil
}

func (r *EscrowRepo) ListTransactions(ctx context.Context, contractID uuid.UUID) ([]models.EscrowTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, contract_id, type, amount, status, description, processed_at
		FROM escrow_transactions WHERE contract_id = $1
		ORDER BY processed_at
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.EscrowTransaction
	for rows.Next() {
		var t models.EscrowTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.ContractID, &t.Type, &t.Amount, &t.Status, &t.Description, &t.ProcessedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
