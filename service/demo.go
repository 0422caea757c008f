package service

import (
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

// Demo loan identity. The approval date is fixed; review ages are anchored to the
// moment the demo is loaded so each staleness tier is represented.
const (
	DemoLoanID            = "DEMO-LN-2023-0417"
	DemoBorrowerReference = "BRW-DEMO-7F3A"
)

var demoApprovalDate = time.Date(2023, time.April, 17, 0, 0, 0, 0, time.UTC)

func ago(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// DemoContent returns the demo loan and its three rationales: one Fresh, one Review Due
// and one Stale as seen at now
func DemoContent(now time.Time) (model.LoanInfo, []model.Rationale) {
	loan := model.LoanInfo{
		ID:                DemoLoanID,
		ApprovalDate:      demoApprovalDate,
		BorrowerReference: DemoBorrowerReference,
	}

	rationales := []model.Rationale{
		{
			ID:             "demo-rationale-cash-flow",
			Title:          "Cash Flow Predictability",
			Description:    "Approval relied on contracted revenue from three anchor customers covering projected debt service by 1.6x.",
			CreatedAt:      demoApprovalDate,
			LastReviewedAt: ago(now, 12),
			ContextualSignals: []model.ContextualSignal{
				{ID: "demo-signal-1", Description: "Quarterly financial statements received for the latest period.", UpdatedAt: ago(now, 9)},
				{ID: "demo-signal-2", Description: "Two of three anchor customer contracts renewed.", UpdatedAt: ago(now, 20)},
			},
		},
		{
			ID:             "demo-rationale-asset-coverage",
			Title:          "Asset Coverage",
			Description:    "Facility secured by a first charge over warehouse property valued at 1.8x the approved amount.",
			CreatedAt:      demoApprovalDate,
			LastReviewedAt: ago(now, 47),
			ContextualSignals: []model.ContextualSignal{
				{ID: "demo-signal-3", Description: "Property valuation report is 14 months old.", UpdatedAt: ago(now, 40)},
			},
		},
		{
			ID:             "demo-rationale-track-record",
			Title:          "Operational Track Record",
			Description:    "Borrower has operated for twelve years with no covenant breaches recorded.",
			CreatedAt:      demoApprovalDate,
			LastReviewedAt: ago(now, 124),
			ContextualSignals: []model.ContextualSignal{
				{ID: "demo-signal-4", Description: "Change in chief financial officer reported.", UpdatedAt: ago(now, 60)},
				{ID: "demo-signal-5", Description: "Annual compliance certificate received.", UpdatedAt: ago(now, 100)},
			},
		},
	}

	for i := range rationales {
		rationales[i].Status = CalculateStatus(rationales[i].LastReviewedAt, now)
	}

	return loan, rationales
}
