package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

func TestDemoContentCoversEveryTier(t *testing.T) {
	for _, now := range []time.Time{reducerNow, time.Date(2031, time.February, 28, 23, 59, 0, 0, time.UTC)} {
		loan, rationales := DemoContent(now)

		assert.Equal(t, DemoLoanID, loan.ID)
		assert.Equal(t, DemoBorrowerReference, loan.BorrowerReference)
		require.Len(t, rationales, 3)

		statuses := []model.RationaleStatus{}
		for _, r := range rationales {
			statuses = append(statuses, r.Status)
			assert.Equal(t, CalculateStatus(r.LastReviewedAt, now), r.Status)
			assert.LessOrEqual(t, len(r.ContextualSignals), model.MaxSignalsDisplayed)
		}
		assert.Equal(t, []model.RationaleStatus{model.StatusFresh, model.StatusReviewDue, model.StatusStale}, statuses)
	}
}
