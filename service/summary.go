package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

const (
	summaryTitle      = "LOAN RATIONALE REVIEW SUMMARY"
	summaryListHeader = "RATIONALES REQUIRING REVIEW"
	summaryAllCurrent = "All approval rationales are current. No reviews are required at this time."
	summaryDateLayout = "January 2, 2006"
)

// GenerateReviewSummary reports the rationales that are Review Due or Stale at now,
// most stale first. Status is recomputed from LastReviewedAt rather than trusted.
func GenerateReviewSummary(rationales []model.Rationale, loanID string, now time.Time) model.ReviewSummary {
	items := make([]model.ReviewItem, 0, len(rationales))
	for _, r := range rationales {
		days := DaysSinceReview(r.LastReviewedAt, now)
		status := ClassifyDays(days)
		if !status.NeedsReview() {
			continue
		}
		items = append(items, model.ReviewItem{
			Title:           r.Title,
			Status:          status,
			DaysSinceReview: days,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysSinceReview > items[j].DaysSinceReview
	})

	return model.ReviewSummary{
		GeneratedAt:             now,
		LoanID:                  loanID,
		RationalesNeedingReview: items,
		SummaryText:             renderSummary(items, loanID, now),
	}
}

func renderSummary(items []model.ReviewItem, loanID string, now time.Time) string {
	var b strings.Builder

	b.WriteString(summaryTitle + "\n")
	b.WriteString(strings.Repeat("=", len(summaryTitle)) + "\n\n")
	fmt.Fprintf(&b, "Loan ID: %s\n", loanID)
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(summaryDateLayout))

	if len(items) == 0 {
		b.WriteString(summaryAllCurrent + "\n")
		return b.String()
	}

	b.WriteString(summaryListHeader + "\n")
	b.WriteString(strings.Repeat("-", len(summaryListHeader)) + "\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Title)
		fmt.Fprintf(&b, "   Status: %s\n", item.Status)
		fmt.Fprintf(&b, "   Days since last review: %d\n\n", item.DaysSinceReview)
	}
	fmt.Fprintf(&b, "Total rationales requiring review: %d\n", len(items))

	return b.String()
}
