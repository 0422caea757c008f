package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	s := InitialState()

	assert.Nil(t, s.Loan)
	assert.Empty(t, s.Rationales)
	assert.NotNil(t, s.Rationales)
	assert.Empty(t, s.PendingRationales)
	assert.False(t, s.IsExtracting)
	assert.False(t, s.ShowConfirmation)
	assert.Equal(t, DataSourceNone, s.DataSource)
}

func TestRationaleStatusNeedsReview(t *testing.T) {
	assert.False(t, StatusFresh.NeedsReview())
	assert.True(t, StatusReviewDue.NeedsReview())
	assert.True(t, StatusStale.NeedsReview())
}

func TestCockpitStateClone(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	orig := CockpitState{
		Loan: &LoanInfo{ID: "LN-1", ApprovalDate: now},
		Rationales: []Rationale{{
			ID:                "r1",
			ContextualSignals: []ContextualSignal{{ID: "s1", Description: "a", UpdatedAt: now}},
		}},
		PendingRationales: []PendingRationale{{ID: "p1"}},
		DataSource:        DataSourceDemo,
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Loan.ID = "changed"
	clone.Rationales[0].ContextualSignals[0].Description = "changed"
	clone.PendingRationales[0].Title = "changed"

	assert.Equal(t, "LN-1", orig.Loan.ID)
	assert.Equal(t, "a", orig.Rationales[0].ContextualSignals[0].Description)
	assert.Empty(t, orig.PendingRationales[0].Title)
}
