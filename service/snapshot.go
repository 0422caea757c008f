package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

// SnapshotTimeLayout is the ISO-8601 form every persisted date is written in
const SnapshotTimeLayout = "2006-01-02T15:04:05.000Z"

var snapshotValidator = validator.New(validator.WithRequiredStructEnabled())

type snapshotLoan struct {
	ID                string `json:"id" validate:"required"`
	ApprovalDate      string `json:"approvalDate" validate:"required"`
	BorrowerReference string `json:"borrowerReference"`
}

type snapshotSignal struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updatedAt" validate:"required"`
}

type snapshotRationale struct {
	ID                string           `json:"id" validate:"required"`
	Title             string           `json:"title" validate:"required,max=100"`
	Description       string           `json:"description" validate:"max=250"`
	CreatedAt         string           `json:"createdAt" validate:"required"`
	LastReviewedAt    string           `json:"lastReviewedAt" validate:"required"`
	Status            string           `json:"status"`
	ContextualSignals []snapshotSignal `json:"contextualSignals" validate:"dive"`
}

type snapshotPending struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description"`
	ExtractedAt string `json:"extractedAt" validate:"required"`
	SourceText  string `json:"sourceText"`
}

type snapshotState struct {
	Loan              *snapshotLoan       `json:"loan"`
	Rationales        []snapshotRationale `json:"rationales" validate:"required,dive"`
	PendingRationales []snapshotPending   `json:"pendingRationales" validate:"required,dive"`
	IsExtracting      bool                `json:"isExtracting"`
	ShowConfirmation  bool                `json:"showConfirmation"`
	DataSource        string              `json:"dataSource" validate:"omitempty,oneof=none demo extracted"`
}

func formatSnapshotTime(t time.Time) string {
	return t.UTC().Format(SnapshotTimeLayout)
}

// EncodeSnapshot serializes the whole state with every date as an ISO-8601 UTC string
func EncodeSnapshot(state model.CockpitState) ([]byte, error) {
	dto := snapshotState{
		Rationales:        make([]snapshotRationale, 0, len(state.Rationales)),
		PendingRationales: make([]snapshotPending, 0, len(state.PendingRationales)),
		IsExtracting:      state.IsExtracting,
		ShowConfirmation:  state.ShowConfirmation,
		DataSource:        string(state.DataSource),
	}
	if dto.DataSource == "" {
		dto.DataSource = string(model.DataSourceNone)
	}

	if state.Loan != nil {
		dto.Loan = &snapshotLoan{
			ID:                state.Loan.ID,
			ApprovalDate:      formatSnapshotTime(state.Loan.ApprovalDate),
			BorrowerReference: state.Loan.BorrowerReference,
		}
	}

	for _, r := range state.Rationales {
		signals := make([]snapshotSignal, 0, len(r.ContextualSignals))
		for _, sig := range r.ContextualSignals {
			signals = append(signals, snapshotSignal{
				ID:          sig.ID,
				Description: sig.Description,
				UpdatedAt:   formatSnapshotTime(sig.UpdatedAt),
			})
		}
		dto.Rationales = append(dto.Rationales, snapshotRationale{
			ID:                r.ID,
			Title:             r.Title,
			Description:       r.Description,
			CreatedAt:         formatSnapshotTime(r.CreatedAt),
			LastReviewedAt:    formatSnapshotTime(r.LastReviewedAt),
			Status:            string(r.Status),
			ContextualSignals: signals,
		})
	}

	for _, p := range state.PendingRationales {
		dto.PendingRationales = append(dto.PendingRationales, snapshotPending{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			ExtractedAt: formatSnapshotTime(p.ExtractedAt),
			SourceText:  p.SourceText,
		})
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates a persisted snapshot. Any shape mismatch or
// unparseable date yields an error wrapping ErrCorruptSnapshot. Statuses are taken as
// stored; callers recompute them.
func DecodeSnapshot(data []byte) (model.CockpitState, error) {
	var dto snapshotState
	if err := json.Unmarshal(data, &dto); err != nil {
		return model.CockpitState{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := snapshotValidator.Struct(dto); err != nil {
		return model.CockpitState{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	d := &dateDecoder{}
	state := model.CockpitState{
		Rationales:        make([]model.Rationale, 0, len(dto.Rationales)),
		PendingRationales: make([]model.PendingRationale, 0, len(dto.PendingRationales)),
		IsExtracting:      dto.IsExtracting,
		ShowConfirmation:  dto.ShowConfirmation,
		DataSource:        model.DataSource(dto.DataSource),
	}
	if state.DataSource == "" {
		state.DataSource = model.DataSourceNone
	}

	if dto.Loan != nil {
		state.Loan = &model.LoanInfo{
			ID:                dto.Loan.ID,
			ApprovalDate:      d.parse("loan.approvalDate", dto.Loan.ApprovalDate),
			BorrowerReference: dto.Loan.BorrowerReference,
		}
	}

	for _, r := range dto.Rationales {
		signals := make([]model.ContextualSignal, 0, len(r.ContextualSignals))
		for _, sig := range r.ContextualSignals {
			signals = append(signals, model.ContextualSignal{
				ID:          sig.ID,
				Description: sig.Description,
				UpdatedAt:   d.parse("signal.updatedAt", sig.UpdatedAt),
			})
		}
		state.Rationales = append(state.Rationales, model.Rationale{
			ID:                r.ID,
			Title:             r.Title,
			Description:       r.Description,
			CreatedAt:         d.parse("rationale.createdAt", r.CreatedAt),
			LastReviewedAt:    d.parse("rationale.lastReviewedAt", r.LastReviewedAt),
			Status:            model.RationaleStatus(r.Status),
			ContextualSignals: signals,
		})
	}

	for _, p := range dto.PendingRationales {
		state.PendingRationales = append(state.PendingRationales, model.PendingRationale{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			ExtractedAt: d.parse("pending.extractedAt", p.ExtractedAt),
			SourceText:  p.SourceText,
		})
	}

	if d.err != nil {
		return model.CockpitState{}, d.err
	}
	return state, nil
}

// dateDecoder keeps the first parse failure so decoding reads straight through
type dateDecoder struct {
	err error
}

func (d *dateDecoder) parse(field, value string) time.Time {
	if d.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		d.err = fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, field, err)
		return time.Time{}
	}
	return t.UTC()
}
