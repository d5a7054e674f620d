package models

import "testing"

func TestIsValidMilestoneTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Forward path
		{MilestoneStatusPending, MilestoneStatusInProgress, true},
		{MilestoneStatusInProgress, MilestoneStatusSubmitted, true},
		{MilestoneStatusSubmitted, MilestoneStatusApproved, true},
		{MilestoneStatusApproved, MilestoneStatusPaid, true},

		// Submission straight from pending is allowed
		{MilestoneStatusPending, MilestoneStatusSubmitted, true},

		// Revision edge: the only backward movement
		{MilestoneStatusSubmitted, MilestoneStatusInProgress, true},

		// No skipping ahead
		{MilestoneStatusPending, MilestoneStatusApproved, false},
		{MilestoneStatusPending, MilestoneStatusPaid, false},
		{MilestoneStatusInProgress, MilestoneStatusApproved, false},
		{MilestoneStatusInProgress, MilestoneStatusPaid, false},
		{MilestoneStatusSubmitted, MilestoneStatusPaid, false},

		// No moving back except the revision edge
		{MilestoneStatusApproved, MilestoneStatusSubmitted, false},
		{MilestoneStatusApproved, MilestoneStatusInProgress, false},
		{MilestoneStatusPaid, MilestoneStatusApproved, false},
		{MilestoneStatusPaid, MilestoneStatusSubmitted, false},
		{MilestoneStatusInProgress, MilestoneStatusPending, false},

		{"nonexistent", MilestoneStatusSubmitted, false},
		{MilestoneStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidMilestoneTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidMilestoneTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllMilestoneStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusSubmitted,
		MilestoneStatusApproved, MilestoneStatusPaid,
	}

	for _, status := range allStatuses {
		if _, ok := ValidMilestoneTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidMilestoneTransitions map", status)
		}
	}
}

func TestPaidMilestoneIsTerminal(t *testing.T) {
	if transitions := ValidMilestoneTransitions[MilestoneStatusPaid]; len(transitions) != 0 {
		t.Errorf("paid milestone should have no transitions, got %v", transitions)
	}
}
