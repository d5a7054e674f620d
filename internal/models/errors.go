package models

import "errors"

// Domain error taxonomy. Services wrap these with fmt.Errorf("...: %w") so
// the HTTP layer can map them with errors.Is.
var (
	// ErrValidation covers malformed input: bad dates, non-positive amounts,
	// milestone sums that do not reconcile with the contract total.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden means the actor is not the right party for the aggregate.
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
	// ErrInvalidState means the operation is not allowed from the current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrInsufficientFunds is the one error admin overrides can never bypass:
	// a release or refund exceeded the escrow's available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict covers duplicate creation and lost optimistic-concurrency races.
	ErrConflict = errors.New("conflict")
)
