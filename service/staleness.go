package service

import (
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

// Staleness tier upper bounds, in whole days since the last review
const (
	FreshMaxDays     = 30
	ReviewDueMaxDays = 90
)

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// DaysSinceReview returns the whole days elapsed between lastReviewedAt and now,
// floored. A lastReviewedAt in the future yields a negative count.
func DaysSinceReview(lastReviewedAt, now time.Time) int {
	elapsed := now.Sub(lastReviewedAt).Milliseconds()
	days := elapsed / millisPerDay
	if elapsed%millisPerDay != 0 && elapsed < 0 {
		days--
	}
	return int(days)
}

// ClassifyDays maps a day count to its staleness tier
func ClassifyDays(days int) model.RationaleStatus {
	switch {
	case days <= FreshMaxDays:
		return model.StatusFresh
	case days <= ReviewDueMaxDays:
		return model.StatusReviewDue
	default:
		return model.StatusStale
	}
}

// CalculateStatus classifies a rationale last reviewed at lastReviewedAt as seen at now
func CalculateStatus(lastReviewedAt, now time.Time) model.RationaleStatus {
	return ClassifyDays(DaysSinceReview(lastReviewedAt, now))
}

// CurrentStatus is CalculateStatus against the wall clock
func CurrentStatus(lastReviewedAt time.Time) model.RationaleStatus {
	return CalculateStatus(lastReviewedAt, time.Now())
}

// RefreshStatuses recomputes every cached rationale status against now
func RefreshStatuses(state model.CockpitState, now time.Time) model.CockpitState {
	out := state.Clone()
	for i := range out.Rationales {
		out.Rationales[i].Status = CalculateStatus(out.Rationales[i].LastReviewedAt, now)
	}
	return out
}
