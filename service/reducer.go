package service

import (
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

// Action is a state transition dispatched to the cockpit
type Action interface {
	// Name identifies the action in logs and metrics
	Name() string
}

// LoadDemo replaces the loan and rationales with the demo content, anchored at Now
type LoadDemo struct {
	Now time.Time
}

// StartExtraction loads a freshly extracted loan. Previously confirmed rationales are discarded.
type StartExtraction struct {
	Loan    model.LoanInfo
	Pending []model.PendingRationale
}

// ExtractionError resets the cockpit after a failed import
type ExtractionError struct{}

// AddPendingRationales appends extraction candidates
type AddPendingRationales struct {
	Pending []model.PendingRationale
}

// ConfirmRationale promotes the pending rationale with ID to a confirmed rationale reviewed At
type ConfirmRationale struct {
	ID string
	At time.Time
}

// RejectRationale discards the pending rationale with ID
type RejectRationale struct {
	ID string
}

// ConfirmAllRationales confirms every pending rationale At
type ConfirmAllRationales struct {
	At time.Time
}

// EditPendingRationale replaces the title and description of a pending rationale
type EditPendingRationale struct {
	ID          string
	Title       string
	Description string
}

// MarkReviewed records a human review of the rationale with ID
type MarkReviewed struct {
	ID string
	At time.Time
}

// SetExtracting flags an outstanding extraction
type SetExtracting struct {
	Value bool
}

// SetShowConfirmation shows or hides the confirmation surface
type SetShowConfirmation struct {
	Value bool
}

// ClearState resets the cockpit
type ClearState struct{}

// RestoreState replaces the whole state with a restored snapshot
type RestoreState struct {
	State model.CockpitState
}

func (LoadDemo) Name() string             { return "load_demo" }
func (StartExtraction) Name() string      { return "start_extraction" }
func (ExtractionError) Name() string      { return "extraction_error" }
func (AddPendingRationales) Name() string { return "add_pending_rationales" }
func (ConfirmRationale) Name() string     { return "confirm_rationale" }
func (RejectRationale) Name() string      { return "reject_rationale" }
func (ConfirmAllRationales) Name() string { return "confirm_all_rationales" }
func (EditPendingRationale) Name() string { return "edit_pending_rationale" }
func (MarkReviewed) Name() string         { return "mark_reviewed" }
func (SetExtracting) Name() string        { return "set_extracting" }
func (SetShowConfirmation) Name() string  { return "set_show_confirmation" }
func (ClearState) Name() string           { return "clear_state" }
func (RestoreState) Name() string         { return "restore_state" }

// Conditional is implemented by actions that target an existing pending or confirmed
// rationale. Reduce leaves the state unchanged when AppliesTo is false.
type Conditional interface {
	Action
	AppliesTo(state model.CockpitState) bool
}

func (a ConfirmRationale) AppliesTo(state model.CockpitState) bool {
	_, ok := FindPending(state.PendingRationales, a.ID)
	return ok
}

func (a RejectRationale) AppliesTo(state model.CockpitState) bool {
	_, ok := FindPending(state.PendingRationales, a.ID)
	return ok
}

func (a EditPendingRationale) AppliesTo(state model.CockpitState) bool {
	_, ok := FindPending(state.PendingRationales, a.ID)
	return ok
}

func (a MarkReviewed) AppliesTo(state model.CockpitState) bool {
	for _, r := range state.Rationales {
		if r.ID == a.ID {
			return true
		}
	}
	return false
}

// Reduce applies action to state and returns the next state. It is pure: the input is
// never modified and every timestamp comes from the action.
func Reduce(state model.CockpitState, action Action) model.CockpitState {
	if c, ok := action.(Conditional); ok && !c.AppliesTo(state) {
		return state.Clone()
	}
	next := state.Clone()

	switch a := action.(type) {
	case LoadDemo:
		loan, rationales := DemoContent(a.Now)
		next.Loan = &loan
		next.Rationales = rationales
		next.PendingRationales = []model.PendingRationale{}
		next.ShowConfirmation = false
		next.DataSource = model.DataSourceDemo

	case StartExtraction:
		loan := a.Loan
		next.Loan = &loan
		next.Rationales = []model.Rationale{}
		next.PendingRationales = append([]model.PendingRationale{}, a.Pending...)
		next.ShowConfirmation = len(a.Pending) > 0
		next.IsExtracting = false
		next.DataSource = model.DataSourceExtracted

	case ExtractionError:
		next = model.InitialState()

	case AddPendingRationales:
		next.PendingRationales = append(next.PendingRationales, a.Pending...)
		next.ShowConfirmation = len(a.Pending) > 0

	case ConfirmRationale:
		pending, _ := FindPending(next.PendingRationales, a.ID)
		next.Rationales = append(next.Rationales, ConfirmPending(pending, a.At))
		next.PendingRationales = RejectPending(next.PendingRationales, a.ID)
		next.ShowConfirmation = len(next.PendingRationales) > 1

	case RejectRationale:
		next.PendingRationales = RejectPending(next.PendingRationales, a.ID)
		next.ShowConfirmation = len(next.PendingRationales) > 1

	case ConfirmAllRationales:
		next.Rationales = append(next.Rationales, ConfirmAllPending(next.PendingRationales, a.At)...)
		next.PendingRationales = []model.PendingRationale{}
		next.ShowConfirmation = false

	case EditPendingRationale:
		for i, p := range next.PendingRationales {
			if p.ID == a.ID {
				next.PendingRationales[i] = EditPending(p, a.Title, a.Description)
			}
		}

	case MarkReviewed:
		for i, r := range next.Rationales {
			if r.ID == a.ID {
				next.Rationales[i] = MarkRationaleReviewed(r, a.At)
			}
		}

	case SetExtracting:
		next.IsExtracting = a.Value

	case SetShowConfirmation:
		next.ShowConfirmation = a.Value

	case ClearState:
		next = model.InitialState()

	case RestoreState:
		next = a.State.Clone()
		if next.DataSource == "" {
			next.DataSource = model.DataSourceNone
		}
	}

	return next
}
