package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

func TestCockpitStoreStartsEmpty(t *testing.T) {
	store := NewCockpitStore()

	assert.Equal(t, model.InitialState(), store.State())
	assert.Empty(t, store.Notices())
}

func TestCockpitStoreNotifiesSubscribersAfterCommit(t *testing.T) {
	store := NewCockpitStore()
	var seen []string
	store.Subscribe(func(_ context.Context, action Action, state model.CockpitState) {
		// the committed state is already visible to readers
		assert.Equal(t, state, store.State())
		seen = append(seen, action.Name())
	})

	store.Dispatch(context.Background(), LoadDemo{Now: reducerNow})
	store.Dispatch(context.Background(), SetExtracting{Value: true})

	assert.Equal(t, []string{"load_demo", "set_extracting"}, seen)
	assert.True(t, store.State().IsExtracting)
}

func TestCockpitStoreReturnsCopies(t *testing.T) {
	store := NewCockpitStore()
	state := store.Dispatch(context.Background(), LoadDemo{Now: reducerNow})

	state.Rationales[0].Title = "changed"
	state.Loan.ID = "changed"

	fresh := store.State()
	assert.NotEqual(t, "changed", fresh.Rationales[0].Title)
	assert.Equal(t, DemoLoanID, fresh.Loan.ID)
}

func TestCockpitStoreSnapshotRecomputesStatuses(t *testing.T) {
	store := NewCockpitStore()
	store.Dispatch(context.Background(), LoadDemo{Now: reducerNow})

	later := store.Snapshot(reducerNow.Add(200 * 24 * time.Hour))

	for _, r := range later.Rationales {
		assert.Equal(t, model.StatusStale, r.Status)
	}
	assert.Equal(t, model.StatusFresh, store.State().Rationales[0].Status, "stored state is untouched")
}

func TestCockpitStoreSerializesDispatch(t *testing.T) {
	store := NewCockpitStore()
	store.Dispatch(context.Background(), StartExtraction{
		Loan:    model.LoanInfo{ID: "LN-1", ApprovalDate: date(2023, 1, 1)},
		Pending: samplePending("a"),
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Dispatch(context.Background(), AddPendingRationales{Pending: samplePending("x")})
		}()
	}
	wg.Wait()

	assert.Len(t, store.State().PendingRationales, 51)
}

func TestCockpitStoreConfirmsPendingOnce(t *testing.T) {
	store := NewCockpitStore()
	store.Dispatch(context.Background(), StartExtraction{
		Loan:    model.LoanInfo{ID: "LN-1", ApprovalDate: date(2023, 1, 1)},
		Pending: samplePending("p1", "p2"),
	})

	notified := 0
	store.Subscribe(func(context.Context, Action, model.CockpitState) { notified++ })

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.TryDispatch(context.Background(), ConfirmRationale{ID: "p1", At: reducerNow}); ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	state := store.State()
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, notified, "skipped actions are not published")
	assert.Equal(t, []string{"p1"}, rationaleIDs(state))
	assert.Equal(t, []string{"p2"}, pendingIDs(state))
}

func TestCockpitStoreNotices(t *testing.T) {
	store := NewCockpitStore()

	store.SetNotice(NoticeSnapshot, "warning", "first")
	store.SetNotice(NoticePersistence, "warning", "saving failed")
	store.SetNotice(NoticeSnapshot, "warning", "second")

	notices := store.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, NoticePersistence, notices[0].Kind)
	assert.Equal(t, "second", notices[1].Message)

	store.ClearNotice(NoticePersistence)
	assert.Len(t, store.Notices(), 1)
}
