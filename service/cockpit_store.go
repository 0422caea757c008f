package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
)

// Subscriber observes committed transitions. It runs after the new state is visible
// and must not dispatch on the same store.
type Subscriber func(ctx context.Context, action Action, state model.CockpitState)

// NoticeKind groups standing notices so a newer notice of the same kind replaces the older one
type NoticeKind string

const (
	NoticePersistence NoticeKind = "persistence"
	NoticeSnapshot    NoticeKind = "snapshot"
	NoticeExtraction  NoticeKind = "extraction"
)

// Notice is a non-fatal, user-visible message
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Level     string     `json:"level"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CockpitStore owns the single cockpit state. All mutation goes through Dispatch.
type CockpitStore struct {
	dispatchMu sync.Mutex // serializes transitions and their subscribers

	mu          sync.RWMutex
	state       model.CockpitState
	subscribers []Subscriber
	notices     map[NoticeKind]Notice
}

func NewCockpitStore() *CockpitStore {
	return &CockpitStore{
		state:   model.InitialState(),
		notices: make(map[NoticeKind]Notice),
	}
}

// Subscribe registers fn for every subsequent transition
func (s *CockpitStore) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Dispatch applies action and notifies subscribers with the committed state.
// Transitions never interleave; the next Dispatch waits until subscribers return.
func (s *CockpitStore) Dispatch(ctx context.Context, action Action) model.CockpitState {
	state, _ := s.TryDispatch(ctx, action)
	return state
}

// TryDispatch is Dispatch that reports whether action applied. A Conditional action
// whose target is gone is not committed and subscribers are not notified.
func (s *CockpitStore) TryDispatch(ctx context.Context, action Action) (model.CockpitState, bool) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if c, ok := action.(Conditional); ok && !c.AppliesTo(s.state) {
		current := s.state.Clone()
		s.mu.Unlock()
		logger.WithContext(ctx).Debug("action skipped, target not found", "action", action.Name())
		return current, false
	}
	next := Reduce(s.state, action)
	s.state = next
	subscribers := append([]Subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	actionsDispatched.WithLabelValues(action.Name()).Inc()
	logger.WithContext(ctx).Debug("action dispatched",
		"action", action.Name(),
		"rationales", len(next.Rationales),
		"pending", len(next.PendingRationales),
	)

	for _, fn := range subscribers {
		fn(ctx, action, next.Clone())
	}
	return next.Clone(), true
}

// State returns a copy of the committed state as stored
func (s *CockpitStore) State() model.CockpitState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Snapshot returns a copy of the state with every status recomputed at now
func (s *CockpitStore) Snapshot(now time.Time) model.CockpitState {
	return RefreshStatuses(s.State(), now)
}

func (s *CockpitStore) SetNotice(kind NoticeKind, level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices[kind] = Notice{Kind: kind, Level: level, Message: message, CreatedAt: time.Now().UTC()}
	slog.Info("notice raised", "kind", kind, "level", level, "message", message)
}

func (s *CockpitStore) ClearNotice(kind NoticeKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notices, kind)
}

// Notices returns the standing notices ordered by kind
func (s *CockpitStore) Notices() []Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notice, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
