package service

import (
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

// MarkRationaleReviewed records a human review at reviewTime. Only LastReviewedAt and
// Status change.
func MarkRationaleReviewed(rationale model.Rationale, reviewTime time.Time) model.Rationale {
	rationale.LastReviewedAt = reviewTime
	rationale.Status = CalculateStatus(reviewTime, reviewTime)
	return rationale
}
