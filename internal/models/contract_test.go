package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIsValidContractTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{ContractStatusDraft, ContractStatusSent, true},
		{ContractStatusSent, ContractStatusAccepted, true},
		{ContractStatusSent, ContractStatusDeclined, true},
		{ContractStatusAccepted, ContractStatusActive, true},
		{ContractStatusActive, ContractStatusCompleted, true},

		// Cancellation from any non-terminal state
		{ContractStatusDraft, ContractStatusCancelled, true},
		{ContractStatusSent, ContractStatusCancelled, true},
		{ContractStatusAccepted, ContractStatusCancelled, true},
		{ContractStatusActive, ContractStatusCancelled, true},
		{ContractStatusDisputed, ContractStatusCancelled, true},

		// Dispute paths
		{ContractStatusAccepted, ContractStatusDisputed, true},
		{ContractStatusActive, ContractStatusDisputed, true},
		{ContractStatusDisputed, ContractStatusActive, true},
		{ContractStatusDisputed, ContractStatusCompleted, true},

		// Activation only follows funding, never acceptance directly
		{ContractStatusSent, ContractStatusActive, false},
		{ContractStatusDraft, ContractStatusActive, false},

		// A contract not in sent cannot be accepted or declined
		{ContractStatusDraft, ContractStatusAccepted, false},
		{ContractStatusActive, ContractStatusAccepted, false},
		{ContractStatusDeclined, ContractStatusAccepted, false},
		{ContractStatusDraft, ContractStatusDeclined, false},

		// Terminal states
		{ContractStatusCompleted, ContractStatusCancelled, false},
		{ContractStatusCancelled, ContractStatusActive, false},
		{ContractStatusDeclined, ContractStatusSent, false},
		{ContractStatusCompleted, ContractStatusDisputed, false},

		{"nonexistent", ContractStatusSent, false},
		{ContractStatusDraft, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidContractTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidContractTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllContractStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		ContractStatusDraft, ContractStatusSent, ContractStatusAccepted,
		ContractStatusDeclined, ContractStatusActive, ContractStatusCompleted,
		ContractStatusCancelled, ContractStatusDisputed,
	}

	for _, status := range allStatuses {
		if _, ok := ValidContractTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidContractTransitions map", status)
		}
	}
}

func TestTerminalContractStatuses(t *testing.T) {
	terminal := []string{ContractStatusDeclined, ContractStatusCompleted, ContractStatusCancelled}
	for _, status := range terminal {
		if !IsTerminalContractStatus(status) {
			t.Errorf("status %q should be terminal", status)
		}
	}
	nonTerminal := []string{ContractStatusDraft, ContractStatusSent, ContractStatusAccepted, ContractStatusActive, ContractStatusDisputed}
	for _, status := range nonTerminal {
		if IsTerminalContractStatus(status) {
			t.Errorf("status %q should not be terminal", status)
		}
	}
}

func baseContract(paymentType string, total string) *Contract {
	return &Contract{
		Title:       "Landing page build",
		TotalAmount: decimal.RequireFromString(total),
		Currency:    "USD",
		PaymentType: paymentType,
		StartDate:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func milestone(title, amount string) Milestone {
	return Milestone{
		Title:   title,
		Amount:  decimal.RequireFromString(amount),
		DueDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateContractTerms(t *testing.T) {
	hourlyRate := decimal.RequireFromString("50")
	hours := 40

	tests := []struct {
		name       string
		mutate     func(c *Contract)
		milestones []Milestone
		wantErr    bool
	}{
		{
			name:   "valid fixed contract",
			mutate: func(c *Contract) {},
		},
		{
			name: "valid hourly contract",
			mutate: func(c *Contract) {
				c.PaymentType = PaymentTypeHourly
				c.HourlyRate = &hourlyRate
				c.EstimatedHours = &hours
			},
		},
		{
			name: "valid milestone contract",
			mutate: func(c *Contract) {
				c.PaymentType = PaymentTypeMilestone
			},
			milestones: []Milestone{
				milestone("Design", "1000.00"),
				milestone("Build", "1000.00"),
				milestone("Launch", "1000.00"),
			},
		},
		{
			name:    "missing title",
			mutate:  func(c *Contract) { c.Title = "" },
			wantErr: true,
		},
		{
			name:    "zero amount",
			mutate:  func(c *Contract) { c.TotalAmount = decimal.Zero },
			wantErr: true,
		},
		{
			name:    "negative amount",
			mutate:  func(c *Contract) { c.TotalAmount = decimal.RequireFromString("-100") },
			wantErr: true,
		},
		{
			name:    "bad currency",
			mutate:  func(c *Contract) { c.Currency = "DOLLARS" },
			wantErr: true,
		},
		{
			name:    "start after end",
			mutate:  func(c *Contract) { c.StartDate, c.EndDate = c.EndDate, c.StartDate },
			wantErr: true,
		},
		{
			name:    "start equals end",
			mutate:  func(c *Contract) { c.EndDate = c.StartDate },
			wantErr: true,
		},
		{
			name:    "unknown payment type",
			mutate:  func(c *Contract) { c.PaymentType = "barter" },
			wantErr: true,
		},
		{
			name:    "hourly without rate",
			mutate:  func(c *Contract) { c.PaymentType = PaymentTypeHourly; c.EstimatedHours = &hours },
			wantErr: true,
		},
		{
			name:    "hourly without estimated hours",
			mutate:  func(c *Contract) { c.PaymentType = PaymentTypeHourly; c.HourlyRate = &hourlyRate },
			wantErr: true,
		},
		{
			name:    "fixed contract with hourly fields",
			mutate:  func(c *Contract) { c.HourlyRate = &hourlyRate },
			wantErr: true,
		},
		{
			name:       "fixed contract with milestones",
			mutate:     func(c *Contract) {},
			milestones: []Milestone{milestone("Design", "3000.00")},
			wantErr:    true,
		},
		{
			name:    "milestone contract without milestones",
			mutate:  func(c *Contract) { c.PaymentType = PaymentTypeMilestone },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseContract(PaymentTypeFixed, "3000.00")
			tt.mutate(c)
			err := ValidateContractTerms(c, tt.milestones)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContractTerms() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMilestoneAmounts(t *testing.T) {
	total := decimal.RequireFromString("3000.00")

	tests := []struct {
		name       string
		milestones []Milestone
		wantErr    bool
	}{
		{
			name: "three equal milestones reconcile",
			milestones: []Milestone{
				milestone("One", "1000.00"),
				milestone("Two", "1000.00"),
				milestone("Three", "1000.00"),
			},
		},
		{
			name: "one milestone bumped without adjusting others",
			milestones: []Milestone{
				milestone("One", "1500.00"),
				milestone("Two", "1000.00"),
				milestone("Three", "1000.00"),
			},
			wantErr: true,
		},
		{
			name: "one cent drift tolerated",
			milestones: []Milestone{
				milestone("One", "1000.00"),
				milestone("Two", "1000.00"),
				milestone("Three", "1000.01"),
			},
		},
		{
			name: "two cent drift rejected",
			milestones: []Milestone{
				milestone("One", "1000.00"),
				milestone("Two", "1000.00"),
				milestone("Three", "1000.02"),
			},
			wantErr: true,
		},
		{
			name: "zero amount milestone",
			milestones: []Milestone{
				milestone("One", "0"),
				milestone("Two", "3000.00"),
			},
			wantErr: true,
		},
		{
			name: "negative amount milestone",
			milestones: []Milestone{
				milestone("One", "-500.00"),
				milestone("Two", "3500.00"),
			},
			wantErr: true,
		},
		{
			name:       "empty list",
			milestones: nil,
			wantErr:    true,
		},
		{
			name: "untitled milestone",
			milestones: []Milestone{
				milestone("", "3000.00"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMilestoneAmounts(total, tt.milestones)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMilestoneAmounts() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
