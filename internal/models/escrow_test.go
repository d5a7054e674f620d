package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func account(held, released, refunded string) *EscrowAccount {
	return &EscrowAccount{
		HeldAmount:     decimal.RequireFromString(held),
		ReleasedAmount: decimal.RequireFromString(released),
		RefundedAmount: decimal.RequireFromString(refunded),
		Status:         EscrowStatusFunded,
	}
}

func TestAvailableBalance(t *testing.T) {
	tests := []struct {
		name                     string
		held, released, refunded string
		want                     string
	}{
		{"freshly funded", "3000.00", "0", "0", "3000"},
		{"after one release", "3000.00", "1000.00", "0", "2000"},
		{"after release and refund", "3000.00", "1000.00", "500.00", "1500"},
		{"fully disbursed", "3000.00", "2000.00", "1000.00", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := account(tt.held, tt.released, tt.refunded)
			got := a.AvailableBalance()
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("AvailableBalance() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanDebit(t *testing.T) {
	// held=3000, released=1000, refunded=0 -> available=2000
	a := account("3000.00", "1000.00", "0")

	tests := []struct {
		name   string
		amount string
		want   bool
	}{
		{"within balance", "1500.00", true},
		{"exactly the balance", "2000.00", true},
		{"over the balance", "2500.00", false},
		{"zero amount", "0", false},
		{"negative amount", "-100.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.CanDebit(decimal.RequireFromString(tt.amount)); got != tt.want {
				t.Errorf("CanDebit(%s) = %v, want %v", tt.amount, got, tt.want)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name                     string
		held, released, refunded string
		want                     string
	}{
		{"funded, nothing moved", "3000.00", "0", "0", EscrowStatusFunded},
		{"partial release", "3000.00", "1000.00", "0", EscrowStatusPartialRelease},
		{"partial refund", "3000.00", "0", "500.00", EscrowStatusPartialRelease},
		{"fully released", "3000.00", "3000.00", "0", EscrowStatusCompleted},
		{"fully refunded", "3000.00", "0", "3000.00", EscrowStatusRefunded},
		{"mixed full disbursement completes", "3000.00", "1000.00", "2000.00", EscrowStatusCompleted},
		{"never funded", "0", "0", "0", EscrowStatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := account(tt.held, tt.released, tt.refunded)
			if got := a.DeriveStatus(); got != tt.want {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHeld(t *testing.T) {
	a := account("3000.00", "0", "0")
	if a.IsHeld() {
		t.Error("funded account should not be held")
	}
	a.Status = EscrowStatusDisputed
	if !a.IsHeld() {
		t.Error("disputed account should be held")
	}
}
