package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/kvstore"
)

type mockKV struct {
	mock.Mock
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockKV) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockKV) Close() error {
	return m.Called().Error(0)
}

func TestPersisterSavesEveryTransition(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	cockpit := NewCockpitStore()
	NewPersister(kv, "", cockpit)

	cockpit.Dispatch(ctx, LoadDemo{Now: reducerNow})

	data, err := kv.Get(ctx, DefaultSnapshotKey)
	require.NoError(t, err)
	saved, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, DemoLoanID, saved.Loan.ID)

	cockpit.Dispatch(ctx, MarkReviewed{ID: saved.Rationales[2].ID, At: reducerNow})

	data, err = kv.Get(ctx, DefaultSnapshotKey)
	require.NoError(t, err)
	saved, err = DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, reducerNow, saved.Rationales[2].LastReviewedAt)
}

func TestPersisterClearRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	cockpit := NewCockpitStore()
	NewPersister(kv, "custom-key", cockpit)

	cockpit.Dispatch(ctx, LoadDemo{Now: reducerNow})
	_, err := kv.Get(ctx, "custom-key")
	require.NoError(t, err)

	cockpit.Dispatch(ctx, ClearState{})

	_, err = kv.Get(ctx, "custom-key")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestPersisterRestore(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	first := NewCockpitStore()
	NewPersister(kv, "", first)
	first.Dispatch(ctx, LoadDemo{Now: reducerNow})
	first.Dispatch(ctx, SetExtracting{Value: true})

	second := NewCockpitStore()
	p := NewPersister(kv, "", second)
	p.now = func() time.Time { return reducerNow.Add(100 * 24 * time.Hour) }

	require.NoError(t, p.Restore(ctx))

	restored := second.State()
	require.NotNil(t, restored.Loan)
	assert.Equal(t, DemoLoanID, restored.Loan.ID)
	assert.False(t, restored.IsExtracting)
	for _, r := range restored.Rationales {
		assert.Equal(t, model.StatusStale, r.Status)
	}
	assert.Empty(t, second.Notices())
}

func TestPersisterRestoreMissingKey(t *testing.T) {
	cockpit := NewCockpitStore()
	p := NewPersister(kvstore.NewMemory(), "", cockpit)

	require.NoError(t, p.Restore(context.Background()))

	assert.Equal(t, model.InitialState(), cockpit.State())
	assert.Empty(t, cockpit.Notices())
}

func TestPersisterRestoreDiscardsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, DefaultSnapshotKey, []byte(`{"rationales": 42`)))
	cockpit := NewCockpitStore()
	p := NewPersister(kv, "", cockpit)

	require.NoError(t, p.Restore(ctx))

	assert.Equal(t, model.InitialState(), cockpit.State())
	_, err := kv.Get(ctx, DefaultSnapshotKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	notices := cockpit.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeSnapshot, notices[0].Kind)
}

func TestPersisterRestoreStoreUnavailable(t *testing.T) {
	kv := &mockKV{}
	kv.On("Get", mock.Anything, DefaultSnapshotKey).Return(nil, errors.New("connection refused"))
	cockpit := NewCockpitStore()
	p := NewPersister(kv, "", cockpit)

	err := p.Restore(context.Background())

	assert.Error(t, err)
	assert.Equal(t, model.InitialState(), cockpit.State())
	require.Len(t, cockpit.Notices(), 1)
	assert.Equal(t, NoticePersistence, cockpit.Notices()[0].Kind)
	kv.AssertExpectations(t)
}

func TestPersisterSaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	kv := &mockKV{}
	kv.On("Set", mock.Anything, DefaultSnapshotKey, mock.Anything).Return(errors.New("quota exceeded")).Once()
	kv.On("Set", mock.Anything, DefaultSnapshotKey, mock.Anything).Return(nil)
	cockpit := NewCockpitStore()
	NewPersister(kv, "", cockpit)

	state := cockpit.Dispatch(ctx, LoadDemo{Now: reducerNow})

	assert.Equal(t, DemoLoanID, state.Loan.ID, "transition is not rolled back")
	require.Len(t, cockpit.Notices(), 1)
	assert.Equal(t, noticeSaveFailed, cockpit.Notices()[0].Message)

	cockpit.Dispatch(ctx, SetShowConfirmation{Value: true})
	assert.Empty(t, cockpit.Notices(), "notice clears once saving works again")
	kv.AssertExpectations(t)
}

func TestPersisterSkipsRestoreTransitions(t *testing.T) {
	kv := &mockKV{}
	cockpit := NewCockpitStore()
	NewPersister(kv, "", cockpit)

	cockpit.Dispatch(context.Background(), RestoreState{State: model.InitialState()})

	kv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}
