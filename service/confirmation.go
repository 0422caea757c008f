package service

import (
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

// ConfirmPending promotes a pending rationale to a confirmed one reviewed at confirmTime
func ConfirmPending(pending model.PendingRationale, confirmTime time.Time) model.Rationale {
	return model.Rationale{
		ID:                pending.ID,
		Title:             truncateRunes(pending.Title, model.MaxTitleLength),
		Description:       truncateRunes(pending.Description, model.MaxDescriptionLength),
		CreatedAt:         confirmTime,
		LastReviewedAt:    confirmTime,
		Status:            CalculateStatus(confirmTime, confirmTime),
		ContextualSignals: []model.ContextualSignal{},
	}
}

// RejectPending returns pending without the entry matching id. Unknown ids are a no-op.
func RejectPending(pending []model.PendingRationale, id string) []model.PendingRationale {
	out := make([]model.PendingRationale, 0, len(pending))
	for _, p := range pending {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// ConfirmAllPending confirms every pending rationale in order
func ConfirmAllPending(pending []model.PendingRationale, confirmTime time.Time) []model.Rationale {
	out := make([]model.Rationale, 0, len(pending))
	for _, p := range pending {
		out = append(out, ConfirmPending(p, confirmTime))
	}
	return out
}

// EditPending replaces the title and description of a pending rationale, truncating
// each to its maximum length
func EditPending(pending model.PendingRationale, title, description string) model.PendingRationale {
	pending.Title = truncateRunes(title, model.MaxTitleLength)
	pending.Description = truncateRunes(description, model.MaxDescriptionLength)
	return pending
}

// FindPending returns the pending rationale with id
func FindPending(pending []model.PendingRationale, id string) (model.PendingRationale, bool) {
	for _, p := range pending {
		if p.ID == id {
			return p, true
		}
	}
	return model.PendingRationale{}, false
}
