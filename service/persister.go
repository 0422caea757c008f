package service

import (
	"context"
	"errors"
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/kvstore"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
)

// DefaultSnapshotKey is the fixed key the cockpit snapshot is stored under
const DefaultSnapshotKey = "loan-cockpit-state"

const (
	noticeSaveFailed      = "Changes could not be saved and will be lost on restart."
	noticeSnapshotDropped = "The saved cockpit could not be read and was discarded. Starting with an empty cockpit."
	noticeStoreOffline    = "Saved data is unavailable. Changes are kept in memory only."
)

// Persister mirrors every committed cockpit transition into a key-value store.
// Store failures never roll back the in-memory state; they become standing notices.
type Persister struct {
	kv      kvstore.Store
	key     string
	cockpit *CockpitStore
	timeout time.Duration
	now     func() time.Time
}

// NewPersister subscribes to cockpit. An empty key selects DefaultSnapshotKey.
func NewPersister(kv kvstore.Store, key string, cockpit *CockpitStore) *Persister {
	if key == "" {
		key = DefaultSnapshotKey
	}
	p := &Persister{
		kv:      kv,
		key:     key,
		cockpit: cockpit,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	cockpit.Subscribe(p.onTransition)
	return p
}

// MarkUnavailable records that the configured store could not be opened
func MarkUnavailable(cockpit *CockpitStore) {
	cockpit.SetNotice(NoticePersistence, "warning", noticeStoreOffline)
}

// Restore loads the persisted snapshot into the cockpit. A missing key keeps the
// initial state. A corrupt payload is removed and reported as a notice.
func (p *Persister) Restore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.kv.Get(ctx, p.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		logger.Info(ctx, "no saved cockpit found", "key", p.key)
		return nil
	}
	if err != nil {
		persistenceFailures.WithLabelValues("restore").Inc()
		p.cockpit.SetNotice(NoticePersistence, "warning", noticeStoreOffline)
		return err
	}

	state, err := DecodeSnapshot(data)
	if err != nil {
		logger.Warn(ctx, "discarding corrupt cockpit snapshot", "key", p.key, "error", err)
		persistenceFailures.WithLabelValues("decode").Inc()
		if rmErr := p.kv.Remove(ctx, p.key); rmErr != nil {
			logger.Error(ctx, "failed to remove corrupt snapshot", "key", p.key, "error", rmErr)
		}
		p.cockpit.SetNotice(NoticeSnapshot, "warning", noticeSnapshotDropped)
		return nil
	}

	// no extraction survives a restart
	state.IsExtracting = false
	state = RefreshStatuses(state, p.now())
	p.cockpit.Dispatch(ctx, RestoreState{State: state})

	loanID := ""
	if state.Loan != nil {
		loanID = state.Loan.ID
	}
	logger.Info(ctx, "cockpit restored",
		"loan_id", loanID,
		"rationales", len(state.Rationales),
		"pending", len(state.PendingRationales),
	)
	return nil
}

func (p *Persister) onTransition(ctx context.Context, action Action, state model.CockpitState) {
	if _, ok := action.(RestoreState); ok {
		return
	}

	// the request context may already be cancelled once the handler returns
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if _, ok := action.(ClearState); ok {
		if err := p.kv.Remove(ctx, p.key); err != nil {
			p.fail(ctx, "remove", action, err)
			return
		}
		p.cockpit.ClearNotice(NoticeSnapshot)
		p.recovered()
		return
	}

	data, err := EncodeSnapshot(state)
	if err != nil {
		p.fail(ctx, "encode", action, err)
		return
	}
	if err := p.kv.Set(ctx, p.key, data); err != nil {
		p.fail(ctx, "save", action, err)
		return
	}
	p.recovered()
}

func (p *Persister) fail(ctx context.Context, op string, action Action, err error) {
	persistenceFailures.WithLabelValues(op).Inc()
	logger.Error(ctx, "cockpit persistence failed", "operation", op, "action", action.Name(), "error", err)
	p.cockpit.SetNotice(NoticePersistence, "warning", noticeSaveFailed)
}

func (p *Persister) recovered() {
	for _, n := range p.cockpit.Notices() {
		if n.Kind == NoticePersistence && n.Message == noticeSaveFailed {
			p.cockpit.ClearNotice(NoticePersistence)
		}
	}
}
