package model

import (
	"time"
)

// Field limits for confirmed and pending rationales
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 250
	MaxSignalsDisplayed  = 2
)

// RationaleStatus is the staleness tier of a rationale
type RationaleStatus string

// RationaleStatus values
const (
	StatusFresh     RationaleStatus = "Fresh"
	StatusReviewDue RationaleStatus = "Review Due"
	StatusStale     RationaleStatus = "Stale"
)

// NeedsReview reports whether the status calls for a human review
func (s RationaleStatus) NeedsReview() bool {
	return s == StatusReviewDue || s == StatusStale
}

// DataSource tags where the loaded loan came from
type DataSource string

// DataSource values
const (
	DataSourceNone      DataSource = "none"
	DataSourceDemo      DataSource = "demo"
	DataSourceExtracted DataSource = "extracted"
)

// LoanInfo identifies the loan under governance
type LoanInfo struct {
	ID                string    `json:"id"`
	ApprovalDate      time.Time `json:"approvalDate"`
	BorrowerReference string    `json:"borrowerReference"`
}

// ContextualSignal is a passive, read-only data point attached to a rationale
type ContextualSignal struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Rationale is a confirmed approval-logic record.
// Status is cached and must be recomputed from LastReviewedAt before it is trusted.
type Rationale struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	CreatedAt         time.Time          `json:"createdAt"`
	LastReviewedAt    time.Time          `json:"lastReviewedAt"`
	Status            RationaleStatus    `json:"status"`
	ContextualSignals []ContextualSignal `json:"contextualSignals"`
}

// PendingRationale is an unconfirmed extraction candidate
type PendingRationale struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExtractedAt time.Time `json:"extractedAt"`
	SourceText  string    `json:"sourceText"`
}

// CockpitState is the aggregate root of a session
type CockpitState struct {
	Loan              *LoanInfo          `json:"loan"`
	Rationales        []Rationale        `json:"rationales"`
	PendingRationales []PendingRationale `json:"pendingRationales"`
	IsExtracting      bool               `json:"isExtracting"`
	ShowConfirmation  bool               `json:"showConfirmation"`
	DataSource        DataSource         `json:"dataSource"`
}

// InitialState returns the empty state a session starts from
func InitialState() CockpitState {
	return CockpitState{
		Rationales:        []Rationale{},
		PendingRationales: []PendingRationale{},
		DataSource:        DataSourceNone,
	}
}

// Clone returns a deep copy so callers can never alias the owner's slices
func (s CockpitState) Clone() CockpitState {
	out := s
	if s.Loan != nil {
		loan := *s.Loan
		out.Loan = &loan
	}
	out.Rationales = make([]Rationale, len(s.Rationales))
	for i, r := range s.Rationales {
		if r.ContextualSignals != nil {
			signals := make([]ContextualSignal, len(r.ContextualSignals))
			copy(signals, r.ContextualSignals)
			r.ContextualSignals = signals
		}
		out.Rationales[i] = r
	}
	out.PendingRationales = make([]PendingRationale, len(s.PendingRationales))
	copy(out.PendingRationales, s.PendingRationales)
	return out
}

// LoanMetadata holds labeled fields found in extracted document text.
// Empty strings and a nil ApprovalDate mean the field was not found.
type LoanMetadata struct {
	Borrower       string     `json:"borrower,omitempty"`
	FacilityType   string     `json:"facilityType,omitempty"`
	FacilityAmount string     `json:"facilityAmount,omitempty"`
	Tenor          string     `json:"tenor,omitempty"`
	ApprovalDate   *time.Time `json:"approvalDate,omitempty"`
}

// ReviewItem is one entry of a review summary
type ReviewItem struct {
	Title           string          `json:"title"`
	Status          RationaleStatus `json:"status"`
	DaysSinceReview int             `json:"daysSinceReview"`
}

// ReviewSummary is a point-in-time report of rationales needing review
type ReviewSummary struct {
	GeneratedAt             time.Time    `json:"generatedAt"`
	LoanID                  string       `json:"loanId"`
	RationalesNeedingReview []ReviewItem `json:"rationalesNeedingReview"`
	SummaryText             string       `json:"summaryText"`
}
